package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sensetrack/app"
	"sensetrack/domain/tracking"
)

// RecordsHandler serves the caregiver's logs, crises, schedule, goals and profile
type RecordsHandler struct {
	tracker  *app.Tracker
	narrator *app.Narrator
}

// NewRecordsHandler creates a records handler. The narrator, when set, has its
// cached narrative dropped after every change.
func NewRecordsHandler(tracker *app.Tracker, narrator *app.Narrator) *RecordsHandler {
	return &RecordsHandler{tracker: tracker, narrator: narrator}
}

func (h *RecordsHandler) changed() {
	if h.narrator != nil {
		h.narrator.Invalidate()
	}
}

func (h *RecordsHandler) ListLogs(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Logs())
}

func (h *RecordsHandler) AddLog(c *gin.Context) {
	var entry tracking.LogEntry
	if !bindJSON(c, &entry) {
		return
	}
	added, err := h.tracker.AddLog(c.Request.Context(), entry)
	if err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusCreated, added)
}

func (h *RecordsHandler) DeleteLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tracker.DeleteLog(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.Status(http.StatusNoContent)
}

func (h *RecordsHandler) ListCrises(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Crises())
}

func (h *RecordsHandler) AddCrisis(c *gin.Context) {
	var event tracking.CrisisEvent
	if !bindJSON(c, &event) {
		return
	}
	added, err := h.tracker.AddCrisis(c.Request.Context(), event)
	if err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusCreated, added)
}

func (h *RecordsHandler) DeleteCrisis(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tracker.DeleteCrisis(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.Status(http.StatusNoContent)
}

func (h *RecordsHandler) ListSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.ScheduleEntries())
}

func (h *RecordsHandler) AddScheduleEntry(c *gin.Context) {
	var entry tracking.ScheduleEntry
	if !bindJSON(c, &entry) {
		return
	}
	added, err := h.tracker.AddScheduleEntry(c.Request.Context(), entry)
	if err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusCreated, added)
}

// UpdateScheduleEntry replaces an entry; the path id wins over any id in the body
func (h *RecordsHandler) UpdateScheduleEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var entry tracking.ScheduleEntry
	if !bindJSON(c, &entry) {
		return
	}
	entry.ID = id
	updated, err := h.tracker.UpdateScheduleEntry(c.Request.Context(), entry)
	if err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusOK, updated)
}

func (h *RecordsHandler) ListGoals(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Goals())
}

func (h *RecordsHandler) GetGoal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	goal, err := h.tracker.Goal(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *RecordsHandler) AddGoal(c *gin.Context) {
	var goal tracking.Goal
	if !bindJSON(c, &goal) {
		return
	}
	added, err := h.tracker.AddGoal(c.Request.Context(), goal)
	if err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusCreated, added)
}

func (h *RecordsHandler) RecordProgress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var progress tracking.GoalProgress
	if !bindJSON(c, &progress) {
		return
	}
	update, err := h.tracker.RecordGoalProgress(c.Request.Context(), id, progress)
	if err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusOK, update)
}

func (h *RecordsHandler) DiscontinueGoal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	update, err := h.tracker.DiscontinueGoal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusOK, update)
}

func (h *RecordsHandler) GetProfile(c *gin.Context) {
	profile, err := h.tracker.Profile()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *RecordsHandler) PutProfile(c *gin.Context) {
	var profile tracking.ChildProfile
	if !bindJSON(c, &profile) {
		return
	}
	if err := h.tracker.SetProfile(c.Request.Context(), profile); err != nil {
		respondError(c, err)
		return
	}
	h.changed()
	c.JSON(http.StatusOK, profile)
}
