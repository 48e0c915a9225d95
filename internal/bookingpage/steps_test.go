package bookingpage

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepIDsOf(steps []Step) []StepID {
	ids := make([]StepID, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}

func permutations(steps []Step) [][]Step {
	if len(steps) <= 1 {
		return [][]Step{cloneSteps(steps)}
	}
	var out [][]Step
	for i := range steps {
		rest := make([]Step, 0, len(steps)-1)
		rest = append(rest, steps[:i]...)
		rest = append(rest, steps[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]Step{steps[i]}, p...))
		}
	}
	return out
}

func TestDefaultSteps(t *testing.T) {
	steps := DefaultSteps()
	require.NoError(t, ValidateSteps(steps))
	assert.Equal(t, []StepID{StepService, StepDate, StepTime, StepClient, StepPayment}, stepIDsOf(steps))
	for _, s := range steps {
		assert.True(t, s.Enabled, "step %s should start enabled", s.ID)
	}

	steps[0].Name = "mutated"
	assert.Equal(t, "Service", DefaultSteps()[0].Name, "seed must not be shared")
}

func TestValidateSteps(t *testing.T) {
	valid := DefaultSteps()

	dup := DefaultSteps()
	dup[4] = dup[0]

	unknown := DefaultSteps()
	unknown[2].ID = "coupon"

	tests := []struct {
		name  string
		steps []Step
		ok    bool
	}{
		{"canonical", valid, true},
		{"missing", valid[:4], false},
		{"extra", append(DefaultSteps(), DefaultSteps()[0]), false},
		{"duplicate", dup, false},
		{"unknown id", unknown, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSteps(tt.steps)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidSteps), "got %v", err)
		})
	}
}

func TestMoveStep(t *testing.T) {
	steps := DefaultSteps()

	moved, err := MoveStep(steps, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []StepID{StepDate, StepService, StepTime, StepClient, StepPayment}, stepIDsOf(moved))

	moved, err = MoveStep(steps, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []StepID{StepDate, StepTime, StepClient, StepService, StepPayment}, stepIDsOf(moved))

	moved, err = MoveStep(steps, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []StepID{StepService, StepPayment, StepDate, StepTime, StepClient}, stepIDsOf(moved))

	assert.Equal(t, []StepID{StepService, StepDate, StepTime, StepClient, StepPayment}, stepIDsOf(steps), "input must not be mutated")
}

func TestMoveStepSameIndexIsNoop(t *testing.T) {
	steps, err := RelabelStep(DefaultSteps(), StepClient, "About you")
	require.NoError(t, err)
	steps, err = ToggleStep(steps, StepTime, false)
	require.NoError(t, err)

	for i := range steps {
		moved, err := MoveStep(steps, i, i)
		require.NoError(t, err)
		assert.Equal(t, steps, moved)
	}
}

func TestMoveStepOutOfRange(t *testing.T) {
	for _, tc := range [][2]int{{-1, 0}, {0, 5}, {5, 0}, {2, -3}} {
		_, err := MoveStep(DefaultSteps(), tc[0], tc[1])
		assert.ErrorIs(t, err, ErrStepIndex)
	}
}

func TestReorder(t *testing.T) {
	current := DefaultSteps()
	ordered := []Step{current[3], current[1], current[0], current[4], current[2]}

	out, err := Reorder(current, ordered)
	require.NoError(t, err)
	assert.Equal(t, ordered, out)

	_, err = Reorder(current, ordered[:3])
	assert.ErrorIs(t, err, ErrInvalidSteps)

	changed := cloneSteps(ordered)
	changed[0].Enabled = false
	_, err = Reorder(current, changed)
	assert.ErrorIs(t, err, ErrInvalidSteps, "reorder must not change content")
}

func TestToggleStep(t *testing.T) {
	steps := DefaultSteps()
	out, err := ToggleStep(steps, StepPayment, false)
	require.NoError(t, err)

	assert.Equal(t, stepIDsOf(steps), stepIDsOf(out))
	for _, s := range out {
		assert.Equal(t, s.ID != StepPayment, s.Enabled)
	}

	_, err = ToggleStep(steps, "coupon", true)
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestRelabelStep(t *testing.T) {
	steps, err := RelabelStep(DefaultSteps(), StepService, "Treatment")
	require.NoError(t, err)
	assert.Equal(t, "Treatment", steps[0].Label())
	assert.Equal(t, "Service", steps[0].Name)

	for _, blank := range []string{"", "   ", "\t\n"} {
		cleared, err := RelabelStep(steps, StepService, blank)
		require.NoError(t, err)
		assert.Empty(t, cleared[0].CustomLabel)
		assert.Equal(t, "Service", cleared[0].Label())
	}

	_, err = RelabelStep(steps, "coupon", "x")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestFirstEnabledAcrossPermutationsAndSubsets(t *testing.T) {
	for _, perm := range permutations(DefaultSteps()) {
		for mask := 0; mask < 1<<len(perm); mask++ {
			steps := cloneSteps(perm)
			want := -1
			for i := range steps {
				steps[i].Enabled = mask&(1<<i) != 0
				if steps[i].Enabled && want < 0 {
					want = i
				}
			}

			got := FirstEnabled(steps)
			if want < 0 {
				assert.Nil(t, got, "mask %b", mask)
				continue
			}
			require.NotNil(t, got, "mask %b", mask)
			assert.Equal(t, steps[want].ID, got.ID)
		}
	}
}

func TestFirstEnabledAllDisabled(t *testing.T) {
	steps := DefaultSteps()
	for i := range steps {
		steps[i].Enabled = false
	}
	assert.Nil(t, FirstEnabled(steps))
	assert.Nil(t, FirstEnabled(nil))
	assert.Empty(t, EnabledSteps(steps))
}

func TestEnabledStepsPreservesOrder(t *testing.T) {
	steps, _ := MoveStep(DefaultSteps(), 4, 0)
	steps, _ = ToggleStep(steps, StepDate, false)
	assert.Equal(t, []StepID{StepPayment, StepService, StepTime, StepClient}, stepIDsOf(EnabledSteps(steps)))
}

func TestStepSetInvariantUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := StepIDs()
	steps := DefaultSteps()

	for i := 0; i < 2000; i++ {
		var err error
		switch rng.Intn(4) {
		case 0:
			steps, err = MoveStep(steps, rng.Intn(len(steps)), rng.Intn(len(steps)))
		case 1:
			steps, err = ToggleStep(steps, ids[rng.Intn(len(ids))], rng.Intn(2) == 0)
		case 2:
			steps, err = RelabelStep(steps, ids[rng.Intn(len(ids))], []string{"", " ", "Label", "Other"}[rng.Intn(4)])
		case 3:
			perm := rng.Perm(len(steps))
			ordered := make([]Step, len(steps))
			for j, p := range perm {
				ordered[j] = steps[p]
			}
			steps, err = Reorder(steps, ordered)
		}
		require.NoError(t, err, "operation %d", i)
		require.NoError(t, ValidateSteps(steps), "operation %d", i)
	}
}
