// Package turn tracks one player's progress through a round: roll,
// hold, bank or bust. Transitions are pure functions over an explicit
// state value; persistence and cross-player effects belong to the
// caller.
package turn

import (
	"errors"
	"fmt"

	"dice-arena-backend/internal/fair"
	"dice-arena-backend/internal/variant"
)

var (
	ErrIllegalTransition    = errors.New("turn: illegal transition")
	ErrUnknownDieIndex      = errors.New("turn: die index not available")
	ErrMissingBankTarget    = errors.New("turn: negative sign bank requires a target player")
	ErrSelfTargetNotAllowed = errors.New("turn: bank target must be another player")
)

type Status string

const (
	StatusAwaitingRoll     Status = "awaiting_roll"
	StatusAwaitingDecision Status = "awaiting_decision"
	StatusBusted           Status = "busted"
	StatusBanked           Status = "banked"
)

// Terminal reports whether the round is over for this player.
func (s Status) Terminal() bool {
	return s == StatusBusted || s == StatusBanked
}

type Action string

const (
	ActionRoll Action = "roll"
	ActionHold Action = "hold"
	ActionBank Action = "bank"
	// ActionBust is the forced entry point external timers must use
	// instead of mutating state directly.
	ActionBust Action = "bust"
)

// Payload carries the action parameters. RollSeq identifies a roll
// request for replay detection.
type Payload struct {
	RollSeq     int    `json:"roll_seq,omitempty"`
	HoldIndices []int  `json:"hold_indices,omitempty"`
	BankTarget  string `json:"bank_target,omitempty"`
}

// HeldDie keeps the face and the index it occupied in the roll it was
// held from.
type HeldDie struct {
	Value int `json:"value"`
	Index int `json:"index"`
}

// AvailableDie is a die of the current roll not yet held, addressable
// by the index it had in that roll.
type AvailableDie struct {
	Value int   `json:"value"`
	Index int   `json:"index"`
	Nonce int64 `json:"nonce"`
}

// RollRecord preserves a past roll so replayed requests return the
// original outcome instead of re-rolling.
type RollRecord struct {
	Seq       int                    `json:"seq"`
	Outcome   variant.DiceOutcome    `json:"outcome"`
	Breakdown variant.ScoreBreakdown `json:"breakdown"`
	Pending   int                    `json:"pending"`
	Busted    bool                   `json:"busted"`
}

// State is one player's turn for one round. It is only ever advanced
// through Machine.Transition. Held accumulates over the whole turn;
// CycleStart marks where the current dice cycle begins, since hot dice
// bring the full set back while the history stays. CycleScore is the
// pending score locked in by completed cycles.
type State struct {
	Player       string         `json:"player"`
	Round        int            `json:"round"`
	Status       Status         `json:"status"`
	Held         []HeldDie      `json:"held,omitempty"`
	Available    []AvailableDie `json:"available,omitempty"`
	Remaining    int            `json:"remaining"`
	Pending      int            `json:"pending"`
	CycleStart   int            `json:"cycle_start,omitempty"`
	CycleScore   int            `json:"cycle_score,omitempty"`
	RollCount    int            `json:"roll_count"`
	HoldCount    int            `json:"hold_count"`
	SignPositive bool           `json:"sign_positive"`
	Rolls        []RollRecord   `json:"rolls,omitempty"`
}

// NewState starts a fresh turn in AwaitingRoll with the full dice set.
func NewState(player string, round int, cfg variant.Config) State {
	return State{
		Player:       player,
		Round:        round,
		Status:       StatusAwaitingRoll,
		Remaining:    cfg.DiceCount,
		SignPositive: true,
	}
}

// heldValues returns the faces held in the current dice cycle. Dice
// held before the last hot dice are settled in CycleScore and no
// longer combine with new rolls.
func (s State) heldValues() []int {
	cycle := s.Held[s.CycleStart:]
	vals := make([]int, len(cycle))
	for i, h := range cycle {
		vals[i] = h.Value
	}
	return vals
}

// clone deep-copies the state so transitions never alias the caller's
// slices.
func (s State) clone() State {
	out := s
	out.Held = append([]HeldDie(nil), s.Held...)
	out.Available = append([]AvailableDie(nil), s.Available...)
	out.Rolls = append([]RollRecord(nil), s.Rolls...)
	return out
}

type EventType string

const (
	EventRolled  EventType = "rolled"
	EventBusted  EventType = "busted"
	EventHeld    EventType = "held"
	EventHotDice EventType = "hot_dice"
	EventBanked  EventType = "banked"
)

type Event struct {
	Type      EventType               `json:"type"`
	Outcome   *variant.DiceOutcome    `json:"outcome,omitempty"`
	Breakdown *variant.ScoreBreakdown `json:"breakdown,omitempty"`
	Indices   []int                   `json:"indices,omitempty"`
	Pending   int                     `json:"pending,omitempty"`
	Amount    int                     `json:"amount,omitempty"`
	Target    string                  `json:"target,omitempty"`
	Positive  bool                    `json:"positive,omitempty"`
	Replayed  bool                    `json:"replayed,omitempty"`
}

// Machine binds a variant and a seed pair to drive turn transitions.
// It holds no mutable state and is safe to share.
type Machine struct {
	variant variant.Variant
	seeds   fair.SeedPair
}

func NewMachine(v variant.Variant, seeds fair.SeedPair) *Machine {
	return &Machine{variant: v, seeds: seeds}
}

// Transition applies one action and returns the new state plus the
// events the caller should persist and broadcast. On error the input
// state is returned unchanged.
func (m *Machine) Transition(s State, action Action, p Payload) (State, []Event, error) {
	switch action {
	case ActionRoll:
		return m.roll(s, p)
	case ActionHold:
		return m.hold(s, p)
	case ActionBank:
		return m.bank(s, p)
	case ActionBust:
		return m.bust(s)
	default:
		return s, nil, fmt.Errorf("%w: unknown action %q", ErrIllegalTransition, action)
	}
}

func (m *Machine) roll(s State, p Payload) (State, []Event, error) {
	// Replay of an already-applied roll returns the stored outcome
	// unchanged, even after the turn went terminal.
	if p.RollSeq >= 1 && p.RollSeq <= s.RollCount {
		for _, rec := range s.Rolls {
			if rec.Seq == p.RollSeq {
				ev := Event{Type: EventRolled, Outcome: &rec.Outcome, Breakdown: &rec.Breakdown, Pending: rec.Pending, Replayed: true}
				return s, []Event{ev}, nil
			}
		}
		return s, nil, fmt.Errorf("%w: roll %d not recorded", ErrIllegalTransition, p.RollSeq)
	}

	if s.Status != StatusAwaitingRoll {
		return s, nil, fmt.Errorf("%w: cannot roll while %s", ErrIllegalTransition, s.Status)
	}
	if p.RollSeq != s.RollCount+1 {
		return s, nil, fmt.Errorf("%w: expected roll sequence %d, got %d", ErrIllegalTransition, s.RollCount+1, p.RollSeq)
	}

	outcome, err := m.variant.RollDice(m.seeds, s.Round, p.RollSeq, s.Remaining)
	if err != nil {
		return s, nil, err
	}

	breakdown, err := m.variant.Score(outcome.Values(), variant.ScoreContext{
		Round:  s.Round,
		Player: s.Player,
		Held:   s.heldValues(),
	})
	if err != nil {
		return s, nil, err
	}

	next := s.clone()
	next.RollCount++
	if outcome.Sign != nil {
		next.SignPositive = outcome.SignPositive()
	}

	rec := RollRecord{Seq: p.RollSeq, Outcome: outcome, Breakdown: breakdown}
	events := []Event{{Type: EventRolled, Outcome: &rec.Outcome, Breakdown: &rec.Breakdown}}

	if !breakdown.Scoring {
		rec.Busted = true
		next.Status = StatusBusted
		next.Pending = 0
		next.Available = nil
		next.Rolls = append(next.Rolls, rec)
		events = append(events, Event{Type: EventBusted})
		return next, events, nil
	}

	next.Status = StatusAwaitingDecision
	next.Available = make([]AvailableDie, len(outcome.Dice))
	for i, die := range outcome.Dice {
		next.Available[i] = AvailableDie{Value: die.Value, Index: i, Nonce: die.Nonce}
	}
	if !m.variant.AllowedActions().Contains(variant.ActionHold) {
		// No hold step: the latest roll is the pending score.
		next.Pending = breakdown.Total
	}
	rec.Pending = next.Pending
	next.Rolls = append(next.Rolls, rec)
	events[0].Pending = next.Pending

	return next, events, nil
}

func (m *Machine) hold(s State, p Payload) (State, []Event, error) {
	if !m.variant.AllowedActions().Contains(variant.ActionHold) {
		return s, nil, fmt.Errorf("%w: variant %s has no hold action", ErrIllegalTransition, m.variant.Tag())
	}
	if s.Status != StatusAwaitingDecision {
		return s, nil, fmt.Errorf("%w: cannot hold while %s", ErrIllegalTransition, s.Status)
	}
	if len(p.HoldIndices) == 0 {
		return s, nil, fmt.Errorf("%w: hold requires at least one die", ErrIllegalTransition)
	}

	// Validate before mutating anything.
	seen := make(map[int]bool, len(p.HoldIndices))
	for _, idx := range p.HoldIndices {
		if seen[idx] {
			return s, nil, fmt.Errorf("%w: duplicate index %d", ErrUnknownDieIndex, idx)
		}
		seen[idx] = true
		if availablePos(s.Available, idx) < 0 {
			return s, nil, fmt.Errorf("%w: index %d", ErrUnknownDieIndex, idx)
		}
	}

	next := s.clone()
	for _, idx := range p.HoldIndices {
		pos := availablePos(next.Available, idx)
		die := next.Available[pos]
		next.Available = append(next.Available[:pos], next.Available[pos+1:]...)
		next.Held = append(next.Held, HeldDie{Value: die.Value, Index: die.Index})
	}
	next.HoldCount++

	// Pending is re-scored over the current cycle's held pool so
	// combinations completed across holds count at the higher value.
	// Earlier cycles are already settled in CycleScore.
	breakdown, err := m.variant.Score(next.heldValues(), variant.ScoreContext{
		Round:  s.Round,
		Player: s.Player,
	})
	if err != nil {
		return s, nil, err
	}
	next.Pending = next.CycleScore + breakdown.Total

	events := []Event{{Type: EventHeld, Indices: p.HoldIndices, Pending: next.Pending}}

	if len(next.Available) == 0 {
		// Hot dice: every rollable die is held, the full set comes
		// back while pending score and held history stay. The settled
		// cycle stops combining with future rolls.
		next.Remaining = m.variant.Config().DiceCount
		next.Status = StatusAwaitingRoll
		next.CycleScore = next.Pending
		next.CycleStart = len(next.Held)
		events = append(events, Event{Type: EventHotDice, Pending: next.Pending})
	} else {
		next.Remaining = len(next.Available)
		next.Status = StatusAwaitingRoll
	}

	return next, events, nil
}

func (m *Machine) bank(s State, p Payload) (State, []Event, error) {
	if s.Status.Terminal() {
		return s, nil, fmt.Errorf("%w: cannot bank while %s", ErrIllegalTransition, s.Status)
	}

	if m.variant.AllowedActions().Contains(variant.ActionHold) {
		if s.HoldCount == 0 {
			return s, nil, fmt.Errorf("%w: cannot bank before holding", ErrIllegalTransition)
		}
	} else if s.Status != StatusAwaitingDecision {
		return s, nil, fmt.Errorf("%w: cannot bank before rolling", ErrIllegalTransition)
	}

	target := s.Player
	if !s.SignPositive {
		if p.BankTarget == "" {
			return s, nil, ErrMissingBankTarget
		}
		if p.BankTarget == s.Player {
			return s, nil, ErrSelfTargetNotAllowed
		}
		target = p.BankTarget
	}

	next := s.clone()
	next.Status = StatusBanked

	ev := Event{
		Type:     EventBanked,
		Amount:   next.Pending,
		Target:   target,
		Positive: s.SignPositive,
	}
	return next, []Event{ev}, nil
}

func (m *Machine) bust(s State) (State, []Event, error) {
	if s.Status.Terminal() {
		return s, nil, fmt.Errorf("%w: cannot bust while %s", ErrIllegalTransition, s.Status)
	}

	next := s.clone()
	next.Status = StatusBusted
	next.Pending = 0
	next.Available = nil

	return next, []Event{{Type: EventBusted}}, nil
}

func availablePos(dice []AvailableDie, index int) int {
	for pos, d := range dice {
		if d.Index == index {
			return pos
		}
	}
	return -1
}

// RoundComplete reports whether every player's state for the round is
// terminal. It is a pure read; the caller is responsible for taking a
// consistent snapshot of all states.
func RoundComplete(states []State) bool {
	if len(states) == 0 {
		return false
	}
	for _, s := range states {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}
