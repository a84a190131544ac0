package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/risk"
	"sensetrack/internal/analysis/transitions"
	"sensetrack/internal/logger"
	"sensetrack/ports"
)

// NarrativeSource says who wrote a narrative
type NarrativeSource string

const (
	SourceLLM   NarrativeSource = "llm"
	SourceRules NarrativeSource = "rules"
)

const maxRuleInsights = 6

// Narrative is a caregiver-facing summary of a snapshot
type Narrative struct {
	Summary     string           `json:"summary"`
	Insights    []string         `json:"insights"`
	Source      NarrativeSource  `json:"source"`
	GeneratedAt time.Time        `json:"generated_at"`
	Usage       *ports.UsageData `json:"usage,omitempty"`
}

// NarratorConfig controls LLM narration
type NarratorConfig struct {
	Model     string
	MaxTokens int
	CacheTTL  time.Duration
}

// Narrator turns snapshots into plain-language insights, through an LLM when one
// is configured and from fixed rules otherwise
type Narrator struct {
	client ports.LLMClient
	cfg    NarratorConfig
	memo   *memo[Narrative]
	usage  ports.UsageRecorder
	log    *logger.Logger
}

// NewNarrator creates a narrator; a nil client always narrates from rules
func NewNarrator(client ports.LLMClient, cfg NarratorConfig, clock core.Clock, log *logger.Logger) *Narrator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Narrator{
		client: client,
		cfg:    cfg,
		memo:   newMemo[Narrative](cfg.CacheTTL, clock),
		log:    log.With("component", "narrator"),
	}
}

// Narrate describes snap. Identical snapshot content within the cache TTL returns
// the cached narrative. LLM failures fall back to rule-based insights.
func (n *Narrator) Narrate(ctx context.Context, snap *Snapshot, profile *tracking.ChildProfile) (Narrative, error) {
	if snap == nil {
		return Narrative{}, fmt.Errorf("narrate: %w", core.NewValidationError("snapshot", "is required"))
	}

	key, err := narrativeKey(snap, profile)
	if err != nil {
		return Narrative{}, fmt.Errorf("failed to fingerprint snapshot: %w", err)
	}
	if cached, ok := n.memo.get(key); ok {
		n.log.Debug("narrative cache hit", "key", key.String()[:12])
		return cached, nil
	}

	narrative := n.narrate(ctx, snap, profile)
	if err := ctx.Err(); err != nil {
		return Narrative{}, err
	}
	n.memo.put(key, narrative)
	return narrative, nil
}

// SetUsageRecorder reports token usage of every successful LLM call to r
func (n *Narrator) SetUsageRecorder(r ports.UsageRecorder) {
	n.usage = r
}

// Invalidate drops the cached narrative
func (n *Narrator) Invalidate() {
	n.memo.reset()
}

func (n *Narrator) narrate(ctx context.Context, snap *Snapshot, profile *tracking.ChildProfile) Narrative {
	if n.client == nil {
		return RuleNarrative(snap)
	}

	start := time.Now()
	resp, err := n.client.ChatCompletionWithUsage(ctx, n.cfg.Model, BuildPrompt(snap, profile), n.cfg.MaxTokens)
	if err != nil {
		n.log.Warn("llm narration failed, using rules", "error", err)
		return RuleNarrative(snap)
	}

	narrative, err := ParseNarrative(resp.Content)
	if err != nil {
		n.log.Warn("llm response unusable, using rules", "error", err)
		return RuleNarrative(snap)
	}
	narrative.GeneratedAt = snap.GeneratedAt
	narrative.Usage = resp.Usage

	fields := []interface{}{"insights", len(narrative.Insights), "elapsed_ms", time.Since(start).Milliseconds()}
	if resp.Usage != nil {
		fields = append(fields, "total_tokens", resp.Usage.TotalTokens)
		if n.usage != nil {
			n.usage.RecordUsage("narrative", resp.Usage)
		}
	}
	n.log.Info("narrative generated", fields...)
	return narrative
}

// narrativeKey fingerprints snapshot content and profile, ignoring when the snapshot was taken
func narrativeKey(snap *Snapshot, profile *tracking.ChildProfile) (core.Hash, error) {
	content := *snap
	content.GeneratedAt = time.Time{}
	return core.ComputeFingerprint(struct {
		Snapshot Snapshot               `json:"snapshot"`
		Profile  *tracking.ChildProfile `json:"profile"`
	}{content, profile})
}

// BuildPrompt renders the snapshot as a compact prompt asking for JSON insights
func BuildPrompt(snap *Snapshot, profile *tracking.ChildProfile) string {
	var b strings.Builder

	b.WriteString("Summarise these observations for the child's caregiver.\n\n")
	if profile != nil {
		b.WriteString("CHILD\n")
		if profile.Name != "" {
			fmt.Fprintf(&b, "- name: %s\n", profile.Name)
		}
		if profile.Age > 0 {
			fmt.Fprintf(&b, "- age: %d\n", profile.Age)
		}
		writeList(&b, "diagnoses", profile.Diagnoses)
		if profile.CommunicationStyle != "" {
			fmt.Fprintf(&b, "- communication: %s\n", profile.CommunicationStyle)
		}
		writeList(&b, "sensory sensitivities", profile.SensorySensitivities)
		writeList(&b, "sensory seeking", profile.SeekingSensory)
		writeList(&b, "strategies that usually help", profile.EffectiveStrategies)
		if profile.AdditionalContext != "" {
			fmt.Fprintf(&b, "- notes: %s\n", profile.AdditionalContext)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "DATA\n- %d logs, %d crisis events\n", snap.LogCount, snap.CrisisCount)

	fmt.Fprintf(&b, "\nRISK TODAY: %s (score %d)\n", snap.Risk.Level, snap.Risk.Score)
	for _, f := range snap.Risk.ContributingFactors {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	fmt.Fprintf(&b, "\nTRANSITIONS: %d rated, average difficulty %.1f/10\n",
		snap.Transitions.TotalTransitions, snap.Transitions.AverageDifficulty)
	for _, a := range snap.Transitions.Activities {
		fmt.Fprintf(&b, "- %s: average %.1f over %d, trend %s (%s confidence)\n",
			a.Activity, a.AverageDifficulty, a.Count, a.Trend, a.Confidence)
	}
	for _, s := range snap.Transitions.EffectiveSupports {
		fmt.Fprintf(&b, "- support %q used %d times, average difficulty %.1f\n", s.Strategy, s.UsageCount, s.AverageDifficulty)
	}

	b.WriteString("\nHOME VS SCHOOL\n")
	if snap.Contexts == nil {
		b.WriteString("- not enough logs in both contexts yet\n")
	} else {
		fmt.Fprintf(&b, "- home: %d logs, average arousal %.1f\n", snap.Contexts.Home.LogCount, snap.Contexts.Home.AverageArousal)
		fmt.Fprintf(&b, "- school: %d logs, average arousal %.1f\n", snap.Contexts.School.LogCount, snap.Contexts.School.AverageArousal)
		for _, d := range snap.Contexts.Differences {
			fmt.Fprintf(&b, "- [%s] %s\n", d.Significance, d.Description)
		}
	}

	if len(snap.Goals) > 0 {
		b.WriteString("\nGOALS\n")
		for _, g := range snap.Goals {
			fmt.Fprintf(&b, "- %s: %s, %.0f%% complete, %d days left\n", g.Title, g.Status, g.Percent, g.DaysRemaining)
		}
	}

	b.WriteString("\nRespond with JSON only, in this shape:\n")
	b.WriteString(`{"summary": "two sentences", "insights": ["short practical suggestion", "..."]}`)
	b.WriteString("\nGive at most 5 insights. Do not diagnose. Refer only to patterns in the data.\n")
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(items, ", "))
}

// ParseNarrative extracts summary and insights from an LLM reply. Markdown code
// fences and text around the JSON object are tolerated.
func ParseNarrative(content string) (Narrative, error) {
	body := stripFences(content)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return Narrative{}, fmt.Errorf("no JSON object in response")
	}
	body = body[start : end+1]
	if !gjson.Valid(body) {
		return Narrative{}, fmt.Errorf("response is not valid JSON")
	}

	parsed := gjson.Parse(body)
	narrative := Narrative{
		Summary:  strings.TrimSpace(parsed.Get("summary").String()),
		Insights: []string{},
		Source:   SourceLLM,
	}
	parsed.Get("insights").ForEach(func(_, v gjson.Result) bool {
		if s := strings.TrimSpace(v.String()); s != "" {
			narrative.Insights = append(narrative.Insights, s)
		}
		return true
	})
	if narrative.Summary == "" && len(narrative.Insights) == 0 {
		return Narrative{}, fmt.Errorf("response has neither summary nor insights")
	}
	return narrative, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

// RuleNarrative builds deterministic insights from the snapshot alone
func RuleNarrative(snap *Snapshot) Narrative {
	insights := []string{}
	insights = append(insights, riskInsights(snap.Risk)...)
	insights = append(insights, contextInsights(snap.Contexts)...)
	insights = append(insights, transitionInsights(snap.Transitions)...)
	insights = append(insights, goalInsights(snap.Goals)...)
	if len(insights) > maxRuleInsights {
		insights = insights[:maxRuleInsights]
	}
	if len(insights) == 0 {
		insights = append(insights, "Keep logging: more observations are needed before patterns can be reported.")
	}

	summary := fmt.Sprintf("%d logs and %d crisis events analysed. Risk for the rest of today is %s.",
		snap.LogCount, snap.CrisisCount, snap.Risk.Level)
	return Narrative{
		Summary:     summary,
		Insights:    insights,
		Source:      SourceRules,
		GeneratedAt: snap.GeneratedAt,
	}
}

func riskInsights(r risk.Result) []string {
	if r.Level == risk.LevelLow || len(r.ContributingFactors) == 0 {
		return nil
	}
	out := fmt.Sprintf("Risk is %s today (score %d). %s.", r.Level, r.Score, r.ContributingFactors[0])
	if r.PredictedHighArousalWindow != "" {
		out += fmt.Sprintf(" Plan calm activities for %s.", r.PredictedHighArousalWindow)
	}
	return []string{out}
}

func contextInsights(c *contexts.Comparison) []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, d := range c.Differences {
		if d.Significance == contexts.SignificanceLow {
			continue
		}
		out = append(out, d.Description+".")
		if len(out) == 2 {
			break
		}
	}
	return out
}

func transitionInsights(s transitions.Stats) []string {
	var out []string
	if len(s.HardestTransitions) > 0 {
		h := s.HardestTransitions[0]
		out = append(out, fmt.Sprintf("Transitions to %s are the hardest (average %.1f/10).", h.Activity, h.AverageDifficulty))
	}
	for _, a := range s.Activities {
		if a.Trend == transitions.TrendWorsening {
			out = append(out, fmt.Sprintf("Transitions to %s are getting harder.", a.Activity))
		}
	}
	if len(s.EffectiveSupports) > 0 {
		sup := s.EffectiveSupports[0]
		out = append(out, fmt.Sprintf("%s goes with the easiest transitions (average %.1f/10 over %d uses).",
			sup.Strategy, sup.AverageDifficulty, sup.UsageCount))
	}
	return out
}

func goalInsights(list []GoalSummary) []string {
	var out []string
	for _, g := range list {
		switch g.Status {
		case tracking.GoalAtRisk:
			out = append(out, fmt.Sprintf("Goal %q is at risk at %.0f%% with %d days left.", g.Title, g.Percent, g.DaysRemaining))
		case tracking.GoalAchieved:
			out = append(out, fmt.Sprintf("Goal %q has been achieved.", g.Title))
		}
	}
	return out
}
