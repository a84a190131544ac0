package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/logger"
)

const reportTitle = "Caregiver report"

// ReportService renders every analysis as a caregiver report
type ReportService struct {
	tracker  *Tracker
	insights *InsightsService
	narrator *Narrator
	log      *logger.Logger
}

// NewReportService creates the service; narrator may be nil to leave out the narrative section
func NewReportService(tracker *Tracker, insights *InsightsService, narrator *Narrator, log *logger.Logger) *ReportService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReportService{tracker: tracker, insights: insights, narrator: narrator, log: log.With("component", "report")}
}

// Markdown builds the report at now
func (s *ReportService) Markdown(ctx context.Context, now time.Time) (string, error) {
	snap, err := s.insights.Snapshot(ctx, now)
	if err != nil {
		return "", fmt.Errorf("failed to compute snapshot: %w", err)
	}

	var narrative *Narrative
	if s.narrator != nil {
		var profile *tracking.ChildProfile
		if p, err := s.tracker.Profile(); err == nil {
			profile = &p
		}
		n, err := s.narrator.Narrate(ctx, snap, profile)
		if err != nil {
			return "", fmt.Errorf("failed to narrate: %w", err)
		}
		narrative = &n
	}

	var name string
	if p, err := s.tracker.Profile(); err == nil {
		name = p.Name
	}
	md := RenderMarkdown(snap, narrative, name, s.tracker.Location())
	s.log.Info("report rendered", "bytes", len(md))
	return md, nil
}

// HTML builds the report at now as a standalone HTML page
func (s *ReportService) HTML(ctx context.Context, now time.Time) ([]byte, error) {
	md, err := s.Markdown(ctx, now)
	if err != nil {
		return nil, err
	}
	return MarkdownToHTML(md), nil
}

// MarkdownToHTML renders markdown with tables into a complete HTML page. Raw HTML in the
// markdown is dropped and only safe link schemes are emitted, since titles, tags and the
// narrative are caregiver or model text.
func MarkdownToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: reportTitle,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank | html.SkipHTML | html.Safelink,
	})
	return markdown.Render(doc, renderer)
}

// RenderMarkdown lays out a snapshot as markdown sections with summary tables
func RenderMarkdown(snap *Snapshot, narrative *Narrative, childName string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder

	title := reportTitle
	if childName != "" {
		title += ": " + childName
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated %s from %d logs and %d crisis events.\n\n",
		snap.GeneratedAt.In(loc).Format("Mon 2 Jan 2006 15:04"), snap.LogCount, snap.CrisisCount)

	if narrative != nil {
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "%s\n\n", narrative.Summary)
		for _, insight := range narrative.Insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		b.WriteString("\n")
	}

	writeRiskSection(&b, snap)
	writeTransitionSection(&b, snap)
	writeContextSection(&b, snap.Contexts)
	writeGoalSection(&b, snap.Goals)
	return b.String()
}

func writeRiskSection(b *strings.Builder, snap *Snapshot) {
	r := snap.Risk
	b.WriteString("## Risk for the rest of today\n\n")
	fmt.Fprintf(b, "**%s** (score %d/100)", strings.ToUpper(string(r.Level)), r.Score)
	if r.PredictedHighArousalWindow != "" {
		fmt.Fprintf(b, ", watch %s", r.PredictedHighArousalWindow)
	}
	b.WriteString("\n\n")
	for _, f := range r.ContributingFactors {
		fmt.Fprintf(b, "- %s\n", f)
	}
	b.WriteString("\n")
}

func writeTransitionSection(b *strings.Builder, snap *Snapshot) {
	t := snap.Transitions
	b.WriteString("## Transitions\n\n")
	if t.TotalTransitions == 0 {
		b.WriteString("No rated transitions yet.\n\n")
		return
	}
	fmt.Fprintf(b, "%d rated transitions, average difficulty %.1f/10.\n\n", t.TotalTransitions, t.AverageDifficulty)
	if t.ConfidenceWarning != "" {
		fmt.Fprintf(b, "> %s\n\n", t.ConfidenceWarning)
	}

	b.WriteString("| Activity | Average | Count | Trend | Confidence |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, a := range t.Activities {
		fmt.Fprintf(b, "| %s | %.1f | %d | %s | %s |\n", cell(a.Activity), a.AverageDifficulty, a.Count, a.Trend, a.Confidence)
	}
	b.WriteString("\n")

	if len(t.EffectiveSupports) > 0 {
		b.WriteString("| Support | Uses | Average difficulty |\n")
		b.WriteString("|---|---|---|\n")
		for _, s := range t.EffectiveSupports {
			fmt.Fprintf(b, "| %s | %d | %.1f |\n", cell(s.Strategy), s.UsageCount, s.AverageDifficulty)
		}
		b.WriteString("\n")
	}
}

func writeContextSection(b *strings.Builder, c *contexts.Comparison) {
	b.WriteString("## Home and school\n\n")
	if c == nil {
		b.WriteString("Not enough logs in both contexts to compare yet.\n\n")
		return
	}

	b.WriteString("| | Home | School |\n")
	b.WriteString("|---|---|---|\n")
	fmt.Fprintf(b, "| Logs | %d | %d |\n", c.Home.LogCount, c.School.LogCount)
	fmt.Fprintf(b, "| Average arousal | %.1f | %.1f |\n", c.Home.AverageArousal, c.School.AverageArousal)
	fmt.Fprintf(b, "| Average energy | %.1f | %.1f |\n", c.Home.AverageEnergy, c.School.AverageEnergy)
	fmt.Fprintf(b, "| Average valence | %.1f | %.1f |\n", c.Home.AverageValence, c.School.AverageValence)
	fmt.Fprintf(b, "| Crises | %d | %d |\n", c.Home.CrisisCount, c.School.CrisisCount)
	fmt.Fprintf(b, "| Crises per logged day | %.2f | %.2f |\n", c.Home.CrisisPerDay, c.School.CrisisPerDay)
	b.WriteString("\n")

	if len(c.Differences) == 0 {
		b.WriteString("No notable differences.\n\n")
		return
	}
	for _, d := range c.Differences {
		fmt.Fprintf(b, "- **%s**: %s\n", d.Significance, d.Description)
	}
	b.WriteString("\n")
}

func writeGoalSection(b *strings.Builder, list []GoalSummary) {
	b.WriteString("## Goals\n\n")
	if len(list) == 0 {
		b.WriteString("No goals yet.\n")
		return
	}
	b.WriteString("| Goal | Status | Complete | Current | Target | Days left |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, g := range list {
		fmt.Fprintf(b, "| %s | %s | %.0f%% | %g | %g %s | %d |\n",
			cell(g.Title), statusLabel(g.Status), g.Percent, g.CurrentValue, g.TargetValue, cell(g.TargetUnit), g.DaysRemaining)
	}
}

func statusLabel(s tracking.GoalStatus) string {
	if s == "" {
		s = tracking.GoalNotStarted
	}
	return strings.ReplaceAll(string(s), "_", " ")
}

// cell escapes pipes so free text cannot break a table row
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
