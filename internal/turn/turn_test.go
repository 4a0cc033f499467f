package turn_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dice-arena-backend/internal/fair"
	"dice-arena-backend/internal/turn"
	"dice-arena-backend/internal/variant"
)

// scriptedVariant plays back predetermined rolls so transitions are
// fully deterministic. Scoring rule: ones are worth 100, fives 50,
// anything else is junk; a roll that adds no 1s or 5s does not score.
type scriptedVariant struct {
	cfg   variant.Config
	rolls map[int][]int // rollSeq -> faces
	signs map[int]int   // rollSeq -> sign die face
}

func newScripted(rolls map[int][]int, signs map[int]int) *scriptedVariant {
	return &scriptedVariant{
		cfg: variant.Config{
			Tag:        "scripted",
			DiceCount:  6,
			FaceMin:    1,
			FaceMax:    6,
			SignDie:    true,
			MinPlayers: 2,
			MaxPlayers: 6,
			MaxRounds:  10,
			Actions:    variant.ActionSet{variant.ActionRoll, variant.ActionHold, variant.ActionBank},
		},
		rolls: rolls,
		signs: signs,
	}
}

func (v *scriptedVariant) Tag() variant.Tag                  { return v.cfg.Tag }
func (v *scriptedVariant) Config() variant.Config            { return v.cfg }
func (v *scriptedVariant) AllowedActions() variant.ActionSet { return v.cfg.Actions }

func (v *scriptedVariant) RollDice(_ fair.SeedPair, round, rollSeq, count int) (variant.DiceOutcome, error) {
	faces := v.rolls[rollSeq]
	if len(faces) != count {
		panic("script does not match requested dice count")
	}
	out := variant.DiceOutcome{Dice: make([]variant.Die, count)}
	for i, f := range faces {
		out.Dice[i] = variant.Die{Value: f, Nonce: fair.Nonce(round, rollSeq, i)}
	}
	sign := 1
	if s, ok := v.signs[rollSeq]; ok {
		sign = s
	}
	out.Sign = &variant.Die{Value: sign, Nonce: fair.Nonce(round, rollSeq, count)}
	return out, nil
}

func (v *scriptedVariant) Score(dice []int, ctx variant.ScoreContext) (variant.ScoreBreakdown, error) {
	total := 0
	scoring := false
	for _, f := range append(append([]int{}, ctx.Held...), dice...) {
		switch f {
		case 1:
			total += 100
		case 5:
			total += 50
		}
	}
	for _, f := range dice {
		if f == 1 || f == 5 {
			scoring = true
		}
	}
	return variant.ScoreBreakdown{
		Total:   total,
		Best:    variant.Combination{Name: "script", Points: total},
		Scoring: scoring,
	}, nil
}

func (v *scriptedVariant) ValidateSettings(s variant.Settings) (variant.Settings, error) {
	return s, nil
}

func newTestMachine(rolls map[int][]int, signs map[int]int) (*turn.Machine, turn.State, *scriptedVariant) {
	v := newScripted(rolls, signs)
	m := turn.NewMachine(v, fair.SeedPair{ServerSeed: "s", ClientSeed: "c"})
	return m, turn.NewState("alice", 1, v.Config()), v
}

func TestRollBustResetsPending(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{
		1: {1, 1, 5, 2, 3, 4},
		2: {2, 2, 3, 3},
	}, nil)

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	s, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 1}})
	require.NoError(t, err)
	require.Equal(t, 200, s.Pending)

	s, events, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 2})
	require.NoError(t, err)

	assert.Equal(t, turn.StatusBusted, s.Status)
	assert.Equal(t, 0, s.Pending, "bust forfeits all unbanked points")
	assert.Empty(t, s.Available)

	require.Len(t, events, 2)
	assert.Equal(t, turn.EventRolled, events[0].Type)
	assert.Equal(t, turn.EventBusted, events[1].Type)
}

func TestHoldUnknownIndex(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, nil)

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)

	before := s
	_, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 9}})
	require.ErrorIs(t, err, turn.ErrUnknownDieIndex)
	assert.Equal(t, before, s, "failed hold must not mutate state")

	// Holding the same die twice in one request is just as unknown.
	_, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 0}})
	require.ErrorIs(t, err, turn.ErrUnknownDieIndex)
}

func TestHoldMovesDiceAndRescoresPending(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, nil)

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	require.Len(t, s.Available, 6)

	s, events, err := m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 1}})
	require.NoError(t, err)

	assert.Equal(t, turn.StatusAwaitingRoll, s.Status)
	assert.Equal(t, 150, s.Pending)
	assert.Len(t, s.Held, 2)
	assert.Len(t, s.Available, 4)
	assert.Equal(t, 4, s.Remaining)
	require.Len(t, events, 1)
	assert.Equal(t, turn.EventHeld, events[0].Type)
}

func TestHotDice(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{
		1: {1, 1, 1, 5, 5, 5},
		2: {1, 2, 3, 4, 5, 6},
	}, nil)

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)

	s, events, err := m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 1, 2, 3, 4, 5}})
	require.NoError(t, err)

	assert.Equal(t, turn.StatusAwaitingRoll, s.Status)
	assert.Equal(t, 6, s.Remaining, "full set comes back")
	assert.Equal(t, 450, s.Pending, "pending survives hot dice")
	assert.Len(t, s.Held, 6, "held history survives hot dice")
	require.Len(t, events, 2)
	assert.Equal(t, turn.EventHotDice, events[1].Type)

	// The fresh set is rollable again within the same turn.
	s, _, err = m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 2})
	require.NoError(t, err)
	assert.Equal(t, turn.StatusAwaitingDecision, s.Status)

	// Dice held after the reset add to the settled score instead of
	// replacing it or combining with the previous cycle.
	s, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 4}})
	require.NoError(t, err)
	assert.Equal(t, 600, s.Pending, "450 settled plus 100 and 50 from the new cycle")
	assert.Len(t, s.Held, 8)
	assert.Equal(t, 4, s.Remaining)
}

func TestHotDiceWithTenThousandVariant(t *testing.T) {
	v, err := variant.Get("tenthousand")
	require.NoError(t, err)

	// A six-die roll busts only without any 1, 5, triple or straight,
	// so one of these fixed seed pairs scores on the first roll.
	for i := 0; i < 16; i++ {
		seeds := fair.SeedPair{ServerSeed: "abc", ClientSeed: fmt.Sprintf("table-%d", i)}
		m := turn.NewMachine(v, seeds)

		s := turn.NewState("alice", 1, v.Config())
		s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
		require.NoError(t, err)
		if s.Status != turn.StatusAwaitingDecision {
			continue
		}

		s, events, err := m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 1, 2, 3, 4, 5}})
		require.NoError(t, err)
		require.Equal(t, turn.EventHotDice, events[len(events)-1].Type)
		require.Equal(t, 6, s.Remaining)
		settled := s.Pending

		// The fresh set must score cleanly against the real rules even
		// though six dice are already held.
		s, _, err = m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 2})
		require.NoError(t, err, "full fresh set must be rollable after hot dice")
		assert.Equal(t, 2, s.RollCount)
		assert.Len(t, s.Held, 6, "held history survives the reset")

		if s.Status == turn.StatusAwaitingDecision {
			assert.Equal(t, settled, s.Pending, "pending survives the reset")
			s, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0}})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, s.Pending, settled, "new holds never lose settled points")
		}
		return
	}
	t.Fatal("no seed pair produced a scoring first roll")
}

func TestRollIdempotentReplay(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, nil)

	s, first, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)

	replayState, replay, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)

	assert.Equal(t, s, replayState, "replay must not advance state")
	require.Len(t, replay, 1)
	assert.True(t, replay[0].Replayed)
	assert.Equal(t, first[0].Outcome, replay[0].Outcome, "replay returns the original outcome")
	assert.Equal(t, 1, replayState.RollCount, "no double roll")
}

func TestRollReplayEchoesPendingAtRollTime(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, nil)

	s, first, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	require.Equal(t, 0, first[0].Pending)

	s, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 1}})
	require.NoError(t, err)
	require.Equal(t, 150, s.Pending)

	// The pending the roll originally reported, not the current one.
	_, replay, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	require.Len(t, replay, 1)
	assert.True(t, replay[0].Replayed)
	assert.Equal(t, first[0].Pending, replay[0].Pending)
}

func TestRollOutOfOrder(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, nil)

	_, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 3})
	require.ErrorIs(t, err, turn.ErrIllegalTransition)
}

func TestBankRequiresHold(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, nil)

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)

	_, _, err = m.Transition(s, turn.ActionBank, turn.Payload{})
	require.ErrorIs(t, err, turn.ErrIllegalTransition)
}

func TestBankPositiveCreditsSelf(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, map[int]int{1: 3})

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	s, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0}})
	require.NoError(t, err)

	s, events, err := m.Transition(s, turn.ActionBank, turn.Payload{})
	require.NoError(t, err)

	assert.Equal(t, turn.StatusBanked, s.Status)
	require.Len(t, events, 1)
	assert.Equal(t, turn.EventBanked, events[0].Type)
	assert.Equal(t, 100, events[0].Amount)
	assert.Equal(t, "alice", events[0].Target)
	assert.True(t, events[0].Positive)
}

func TestBankNegativeSign(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, map[int]int{1: 6})

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	require.False(t, s.SignPositive)
	s, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0, 1}})
	require.NoError(t, err)

	_, _, err = m.Transition(s, turn.ActionBank, turn.Payload{})
	require.ErrorIs(t, err, turn.ErrMissingBankTarget)

	_, _, err = m.Transition(s, turn.ActionBank, turn.Payload{BankTarget: "alice"})
	require.ErrorIs(t, err, turn.ErrSelfTargetNotAllowed)

	s, events, err := m.Transition(s, turn.ActionBank, turn.Payload{BankTarget: "bob"})
	require.NoError(t, err)
	assert.Equal(t, turn.StatusBanked, s.Status)
	require.Len(t, events, 1)
	assert.Equal(t, "bob", events[0].Target)
	assert.False(t, events[0].Positive)
	assert.Equal(t, 150, events[0].Amount)
}

func TestTerminalStatesRejectActions(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {2, 2, 3, 3, 4, 6}}, nil)

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	require.Equal(t, turn.StatusBusted, s.Status)

	_, _, err = m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 2})
	require.ErrorIs(t, err, turn.ErrIllegalTransition)
	_, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0}})
	require.ErrorIs(t, err, turn.ErrIllegalTransition)
	_, _, err = m.Transition(s, turn.ActionBank, turn.Payload{})
	require.ErrorIs(t, err, turn.ErrIllegalTransition)
	_, _, err = m.Transition(s, turn.ActionBust, turn.Payload{})
	require.ErrorIs(t, err, turn.ErrIllegalTransition)
}

func TestForcedBust(t *testing.T) {
	m, s, _ := newTestMachine(map[int][]int{1: {1, 5, 2, 3, 4, 6}}, nil)

	s, _, err := m.Transition(s, turn.ActionRoll, turn.Payload{RollSeq: 1})
	require.NoError(t, err)
	s, _, err = m.Transition(s, turn.ActionHold, turn.Payload{HoldIndices: []int{0}})
	require.NoError(t, err)
	require.Equal(t, 100, s.Pending)

	// External timeout forces the same entry point players use.
	s, events, err := m.Transition(s, turn.ActionBust, turn.Payload{})
	require.NoError(t, err)
	assert.Equal(t, turn.StatusBusted, s.Status)
	assert.Equal(t, 0, s.Pending)
	require.Len(t, events, 1)
	assert.Equal(t, turn.EventBusted, events[0].Type)
}

func TestRoundComplete(t *testing.T) {
	cfg := newScripted(nil, nil).Config()

	a := turn.NewState("alice", 1, cfg)
	b := turn.NewState("bob", 1, cfg)

	assert.False(t, turn.RoundComplete(nil))
	assert.False(t, turn.RoundComplete([]turn.State{a, b}))

	a.Status = turn.StatusBanked
	assert.False(t, turn.RoundComplete([]turn.State{a, b}))

	b.Status = turn.StatusBusted
	assert.True(t, turn.RoundComplete([]turn.State{a, b}))
}
