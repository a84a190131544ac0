package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/risk"
	"sensetrack/internal/analysis/transitions"
	"sensetrack/ports"
)

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) ChatCompletion(ctx context.Context, model string, prompt string, maxTokens int) (string, error) {
	args := m.Called(ctx, model, prompt, maxTokens)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) ChatCompletionWithUsage(ctx context.Context, model string, prompt string, maxTokens int) (*ports.LLMResponse, error) {
	args := m.Called(ctx, model, prompt, maxTokens)
	resp, _ := args.Get(0).(*ports.LLMResponse)
	return resp, args.Error(1)
}

func sampleSnapshot(at time.Time) *Snapshot {
	return &Snapshot{
		GeneratedAt: at,
		LogCount:    42,
		CrisisCount: 3,
		Transitions: transitions.Stats{
			TotalTransitions:  10,
			AverageDifficulty: 5.5,
			Activities: []transitions.ActivityStats{
				{Activity: "Recess", AverageDifficulty: 7.5, Count: 6, Trend: transitions.TrendWorsening, Confidence: transitions.ConfidenceMedium},
			},
			HardestTransitions: []transitions.ActivityStats{{Activity: "Recess", AverageDifficulty: 7.5, Count: 6}},
			EffectiveSupports:  []transitions.SupportEffectiveness{{Strategy: "visual timer", UsageCount: 4, AverageDifficulty: 3.2}},
		},
		Contexts: &contexts.Comparison{
			Differences: []contexts.Difference{
				{Kind: contexts.KindArousal, Significance: contexts.SignificanceHigh, Description: "Average arousal is 2.0 points higher at school than at home"},
				{Kind: contexts.KindStrategy, Significance: contexts.SignificanceLow, Description: "ignored"},
			},
		},
		Risk: risk.Result{
			Level:                      risk.LevelHigh,
			Score:                      63,
			ContributingFactors:        []string{"High arousal has clustered around 15:00-16:00 on recent tuesdays (3 incidents)"},
			PredictedHighArousalWindow: "15:00-16:00",
		},
		Goals: []GoalSummary{
			{Title: "Fewer meltdowns", Status: tracking.GoalAtRisk, Percent: 20, DaysRemaining: 5},
			{Title: "Ask for breaks", Status: tracking.GoalAchieved, Percent: 100},
		},
	}
}

func TestRuleNarrative(t *testing.T) {
	at := time.Date(2024, 5, 14, 14, 30, 0, 0, time.UTC)
	n := RuleNarrative(sampleSnapshot(at))

	assert.Equal(t, SourceRules, n.Source)
	assert.Equal(t, at, n.GeneratedAt)
	assert.Contains(t, n.Summary, "42 logs and 3 crisis events")
	assert.Contains(t, n.Summary, "high")
	require.Len(t, n.Insights, maxRuleInsights)
	assert.Contains(t, n.Insights[0], "Plan calm activities for 15:00-16:00")
	assert.Equal(t, "Average arousal is 2.0 points higher at school than at home.", n.Insights[1])
	assert.Contains(t, n.Insights[2], "Recess")
	assert.NotContains(t, n.Insights, "ignored.")
}

func TestRuleNarrative_EmptySnapshot(t *testing.T) {
	n := RuleNarrative(&Snapshot{Risk: risk.Result{Level: risk.LevelLow, ContributingFactors: []string{}}})
	require.Len(t, n.Insights, 1)
	assert.Contains(t, n.Insights[0], "Keep logging")
}

func TestParseNarrative(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		summary  string
		insights []string
		wantErr  bool
	}{
		{
			name:     "plain json",
			content:  `{"summary": "Calm week.", "insights": ["Keep the timer", " "]}`,
			summary:  "Calm week.",
			insights: []string{"Keep the timer"},
		},
		{
			name:     "fenced json",
			content:  "```json\n{\"summary\": \"Busy week.\", \"insights\": [\"Rest after school\"]}\n```",
			summary:  "Busy week.",
			insights: []string{"Rest after school"},
		},
		{
			name:     "prose around json",
			content:  "Here you go:\n{\"insights\": [\"One\"]}\nHope this helps.",
			insights: []string{"One"},
		},
		{name: "no json", content: "I cannot help with that.", wantErr: true},
		{name: "broken json", content: `{"summary": "x", "insights": [}`, wantErr: true},
		{name: "empty object", content: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseNarrative(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SourceLLM, n.Source)
			assert.Equal(t, tt.summary, n.Summary)
			assert.Equal(t, tt.insights, n.Insights)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	profile := &tracking.ChildProfile{
		Name:                 "Sam",
		Age:                  9,
		SensorySensitivities: []string{"noise", "bright light"},
	}
	prompt := BuildPrompt(sampleSnapshot(time.Now()), profile)

	assert.Contains(t, prompt, "- name: Sam")
	assert.Contains(t, prompt, "- sensory sensitivities: noise, bright light")
	assert.Contains(t, prompt, "RISK TODAY: high (score 63)")
	assert.Contains(t, prompt, "- Recess: average 7.5 over 6, trend worsening (medium confidence)")
	assert.Contains(t, prompt, "- Fewer meltdowns: at_risk, 20% complete, 5 days left")
	assert.Contains(t, prompt, `"insights"`)

	noProfile := BuildPrompt(&Snapshot{}, nil)
	assert.NotContains(t, noProfile, "CHILD")
	assert.Contains(t, noProfile, "not enough logs in both contexts yet")
}

func TestNarrator_UsesLLMAndCaches(t *testing.T) {
	client := new(MockLLMClient)
	client.On("ChatCompletionWithUsage", mock.Anything, "gpt-test", mock.AnythingOfType("string"), 400).
		Return(&ports.LLMResponse{
			Content: `{"summary": "Afternoons are hard.", "insights": ["Quiet lunch"]}`,
			Usage:   &ports.UsageData{TotalTokens: 120},
		}, nil).Once()

	now := time.Date(2024, 5, 14, 14, 30, 0, 0, time.UTC)
	clock := now
	n := NewNarrator(client, NarratorConfig{Model: "gpt-test", MaxTokens: 400, CacheTTL: time.Minute},
		func() time.Time { return clock }, nil)
	recorder := &usageRecorder{}
	n.SetUsageRecorder(recorder)

	first, err := n.Narrate(context.Background(), sampleSnapshot(now), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, first.Source)
	assert.Equal(t, "Afternoons are hard.", first.Summary)
	require.NotNil(t, first.Usage)
	assert.Equal(t, 120, first.Usage.TotalTokens)

	// same content taken later is served from the cache
	clock = now.Add(30 * time.Second)
	second, err := n.Narrate(context.Background(), sampleSnapshot(now.Add(30*time.Second)), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	client.AssertNumberOfCalls(t, "ChatCompletionWithUsage", 1)

	// cache hits cost nothing
	assert.Equal(t, []string{"narrative"}, recorder.operations)
	assert.Equal(t, 120, recorder.tokens)
}

type usageRecorder struct {
	operations []string
	tokens     int
}

func (r *usageRecorder) RecordUsage(operation string, usage *ports.UsageData) {
	r.operations = append(r.operations, operation)
	r.tokens += usage.TotalTokens
}

func TestNarrator_CacheExpiresAndKeysOnContent(t *testing.T) {
	client := new(MockLLMClient)
	client.On("ChatCompletionWithUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&ports.LLMResponse{Content: `{"summary": "ok"}`}, nil)

	now := time.Date(2024, 5, 14, 14, 30, 0, 0, time.UTC)
	clock := now
	n := NewNarrator(client, NarratorConfig{CacheTTL: time.Minute}, func() time.Time { return clock }, nil)

	snap := sampleSnapshot(now)
	_, err := n.Narrate(context.Background(), snap, nil)
	require.NoError(t, err)

	changed := sampleSnapshot(now)
	changed.LogCount++
	_, err = n.Narrate(context.Background(), changed, nil)
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "ChatCompletionWithUsage", 2)

	clock = now.Add(2 * time.Minute)
	_, err = n.Narrate(context.Background(), changed, nil)
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "ChatCompletionWithUsage", 3)

	n.Invalidate()
	_, err = n.Narrate(context.Background(), changed, nil)
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "ChatCompletionWithUsage", 4)
}

func TestNarrator_FallsBackToRules(t *testing.T) {
	tests := []struct {
		name string
		resp *ports.LLMResponse
		err  error
	}{
		{"llm error", nil, errors.New("rate limited")},
		{"unusable reply", &ports.LLMResponse{Content: "sorry"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockLLMClient)
			client.On("ChatCompletionWithUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tt.resp, tt.err)

			n := NewNarrator(client, NarratorConfig{}, nil, nil)
			out, err := n.Narrate(context.Background(), sampleSnapshot(time.Now()), nil)
			require.NoError(t, err)
			assert.Equal(t, SourceRules, out.Source)
			assert.NotEmpty(t, out.Insights)
		})
	}
}

func TestNarrator_WithoutClient(t *testing.T) {
	n := NewNarrator(nil, NarratorConfig{}, nil, nil)
	out, err := n.Narrate(context.Background(), sampleSnapshot(time.Now()), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceRules, out.Source)

	_, err = n.Narrate(context.Background(), nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}

func TestNarrator_CancelledContext(t *testing.T) {
	client := new(MockLLMClient)
	client.On("ChatCompletionWithUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := NewNarrator(client, NarratorConfig{}, nil, nil)
	_, err := n.Narrate(ctx, sampleSnapshot(time.Now()), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
