package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
)

func TestRenderMarkdown(t *testing.T) {
	at := time.Date(2024, 5, 14, 14, 30, 0, 0, time.UTC)
	snap := sampleSnapshot(at)
	snap.Goals[0].Title = "Fewer | meltdowns"
	narrative := RuleNarrative(snap)

	md := RenderMarkdown(snap, &narrative, "Sam", time.UTC)

	assert.True(t, strings.HasPrefix(md, "# Caregiver report: Sam\n"))
	assert.Contains(t, md, "Generated Tue 14 May 2024 14:30 from 42 logs and 3 crisis events.")
	assert.Contains(t, md, "## Summary")
	assert.Contains(t, md, "**HIGH** (score 63/100), watch 15:00-16:00")
	assert.Contains(t, md, "| Recess | 7.5 | 6 | worsening | medium |")
	assert.Contains(t, md, "| visual timer | 4 | 3.2 |")
	assert.Contains(t, md, "- **high**: Average arousal is 2.0 points higher at school than at home")
	assert.Contains(t, md, `| Fewer \| meltdowns | at risk | 20% |`)
}

func TestRenderMarkdown_EmptySections(t *testing.T) {
	md := RenderMarkdown(&Snapshot{}, nil, "", time.UTC)

	assert.True(t, strings.HasPrefix(md, "# Caregiver report\n"))
	assert.NotContains(t, md, "## Summary")
	assert.Contains(t, md, "No rated transitions yet.")
	assert.Contains(t, md, "Not enough logs in both contexts to compare yet.")
	assert.Contains(t, md, "No goals yet.")
}

func TestMarkdownToHTML(t *testing.T) {
	out := string(MarkdownToHTML("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))

	assert.Contains(t, out, "<title>Caregiver report</title>")
	assert.Contains(t, out, `<h1 id="title">Title</h1>`)
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>1</td>")
}

func TestMarkdownToHTML_DropsRawHTML(t *testing.T) {
	snap := &Snapshot{Goals: []GoalSummary{{Title: "<script>alert(1)</script>", TargetUnit: "<b>times</b>"}}}
	narrative := &Narrative{Summary: "<iframe src=x></iframe> calm week", Insights: []string{"[tap](javascript:alert(3))"}}

	out := string(MarkdownToHTML(RenderMarkdown(snap, narrative, "<img src=x onerror=alert(2)>", time.UTC)))

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "<iframe")
	assert.NotContains(t, out, "<b>times</b>")
	assert.NotContains(t, out, `href="javascript:`)
	assert.Contains(t, out, "calm week")
}

func TestReportService(t *testing.T) {
	tr := seededTracker(t)
	require.NoError(t, tr.SetProfile(context.Background(), tracking.ChildProfile{Name: "Sam"}))
	insights := NewInsightsService(tr, nil, nil, nil, core.FixedClock(trackerNow), nil)
	svc := NewReportService(tr, insights, NewNarrator(nil, NarratorConfig{}, nil, nil), nil)

	md, err := svc.Markdown(context.Background(), trackerNow)
	require.NoError(t, err)
	assert.Contains(t, md, "# Caregiver report: Sam")
	assert.Contains(t, md, "## Summary")
	assert.Contains(t, md, "28 logs and 0 crisis events")
	assert.Contains(t, md, "| Recess |")

	page, err := svc.HTML(context.Background(), trackerNow)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h2 id=\"transitions\">Transitions</h2>")
}

func TestReportService_WithoutNarrator(t *testing.T) {
	tr := seededTracker(t)
	svc := NewReportService(tr, NewInsightsService(tr, nil, nil, nil, nil, nil), nil, nil)

	md, err := svc.Markdown(context.Background(), trackerNow)
	require.NoError(t, err)
	assert.NotContains(t, md, "## Summary")
	assert.True(t, strings.HasPrefix(md, "# Caregiver report\n"))
}
