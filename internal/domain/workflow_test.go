package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDefinition() Definition {
	return Definition{
		Name:  "sample",
		Start: "a",
		Steps: map[StepID]Step{
			"a":    {DisplayName: "A", Next: []StepID{"b", "fail"}},
			"b":    {DisplayName: "B", Next: []StepID{"a", "done"}},
			"done": {DisplayName: "Done", Terminal: true},
			"fail": {DisplayName: "Failed", Terminal: true, Failure: true},
		},
		CanonicalOrder:     []StepID{"a", "b", "done"},
		ExpectedCompletion: 48 * time.Hour,
	}
}

func TestDefinitionValidate(t *testing.T) {
	require.NoError(t, sampleDefinition().Validate())

	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"missing name", func(d *Definition) { d.Name = "" }},
		{"no steps", func(d *Definition) { d.Steps = nil }},
		{"undeclared start", func(d *Definition) { d.Start = "zzz" }},
		{"empty step id", func(d *Definition) { d.Steps[""] = Step{} }},
		{"terminal with next", func(d *Definition) {
			d.Steps["done"] = Step{Terminal: true, Next: []StepID{"a"}}
		}},
		{"non terminal failure", func(d *Definition) {
			d.Steps["b"] = Step{Failure: true, Next: []StepID{"done"}}
		}},
		{"undeclared next", func(d *Definition) {
			d.Steps["a"] = Step{Next: []StepID{"nowhere"}}
		}},
		{"unknown canonical step", func(d *Definition) {
			d.CanonicalOrder = append(d.CanonicalOrder, "nowhere")
		}},
		{"repeated canonical step", func(d *Definition) {
			d.CanonicalOrder = []StepID{"a", "a"}
		}},
		{"negative expected completion", func(d *Definition) { d.ExpectedCompletion = -time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := sampleDefinition()
			tt.mutate(&def)

			err := def.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestDefinitionQueries(t *testing.T) {
	def := sampleDefinition()

	assert.True(t, def.HasStep("a"))
	assert.False(t, def.HasStep("zzz"))
	assert.True(t, def.IsTerminal("done"))
	assert.False(t, def.IsTerminal("a"))
	assert.True(t, def.IsFailure("fail"))
	assert.False(t, def.IsFailure("done"))
	assert.Equal(t, map[StepID]bool{"done": true, "fail": true}, def.TerminalSteps())

	idx, ok := def.CanonicalIndex("b")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = def.CanonicalIndex("fail")
	assert.False(t, ok)

	assert.True(t, def.Steps["a"].Allows("b"))
	assert.False(t, def.Steps["a"].Allows("a"))
}

func TestDefinitionParseStep(t *testing.T) {
	def := sampleDefinition()

	id, err := def.ParseStep("b")
	require.NoError(t, err)
	assert.Equal(t, StepID("b"), id)

	_, err = def.ParseStep("unknown")
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestDefinitionCloneIsDeep(t *testing.T) {
	def := sampleDefinition()
	clone := def.Clone()

	clone.Steps["a"].Next[0] = "done"
	clone.Steps["new"] = Step{}
	clone.CanonicalOrder[0] = "b"

	assert.Equal(t, StepID("b"), def.Steps["a"].Next[0])
	assert.False(t, def.HasStep("new"))
	assert.Equal(t, StepID("a"), def.CanonicalOrder[0])
}

func TestWorkflowStateHelpers(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewWorkflowState("wf-1", "sample", "a", start, Metadata{Actor: "ops"})

	assert.True(t, s.Consistent())
	assert.Equal(t, start, s.EnteredCurrentStepAt())
	_, ok := s.Duration()
	assert.False(t, ok)

	s.History = append(s.History, HistoryEntry{StepID: "b", Timestamp: start.Add(3 * time.Hour)})
	assert.False(t, s.Consistent())
	s.CurrentStep = "b"
	assert.True(t, s.Consistent())

	d, ok := s.Duration()
	assert.True(t, ok)
	assert.Equal(t, 3*time.Hour, d)

	clone := s.Clone()
	clone.History[0].Actor = "someone else"
	assert.Equal(t, "ops", s.History[0].Actor)
}

func TestDateRangeContains(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	assert.True(t, DateRange{}.Contains(from))
	assert.True(t, DateRange{From: from, To: to}.Contains(from))
	assert.False(t, DateRange{From: from, To: to}.Contains(to))
	assert.False(t, DateRange{From: from}.Contains(from.Add(-time.Second)))
	assert.True(t, DateRange{To: to}.Contains(from.Add(-time.Hour)))
}

func TestDateRangeIncludesOpenSteps(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := DateRange{From: from, OpenSteps: sampleDefinition().OpenSteps()}
	assert.Equal(t, []StepID{"a", "b"}, rng.OpenSteps)

	old := NewWorkflowState("wf-old", "sample", "b", from.AddDate(0, 0, -100), Metadata{})
	assert.True(t, rng.Includes(old))

	old.CurrentStep = "done"
	assert.False(t, rng.Includes(old))

	recent := NewWorkflowState("wf-new", "sample", "done", from.Add(time.Hour), Metadata{})
	assert.True(t, rng.Includes(recent))
}
