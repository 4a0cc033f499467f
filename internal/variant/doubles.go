package variant

import (
	"fmt"

	"dice-arena-backend/internal/fair"
)

// Doubles is the two-die variant: every roll scores its sum, matching
// pairs and a sum of seven add bonuses. There is no hold step and no
// sign die; a turn is exactly one roll followed by a bank, with the
// roll total as the pending score.
type Doubles struct {
	cfg Config
}

func NewDoubles() *Doubles {
	return &Doubles{cfg: Config{
		Tag:        TagDoubles,
		DiceCount:  2,
		FaceMin:    1,
		FaceMax:    6,
		SignDie:    false,
		MinPlayers: 2,
		MaxPlayers: 8,
		MaxRounds:  10,
		Actions:    ActionSet{ActionRoll, ActionBank},
	}}
}

func (d *Doubles) Tag() Tag                  { return d.cfg.Tag }
func (d *Doubles) Config() Config            { return d.cfg }
func (d *Doubles) AllowedActions() ActionSet { return d.cfg.Actions }

func (d *Doubles) RollDice(seeds fair.SeedPair, round, rollSeq, count int) (DiceOutcome, error) {
	return rollDice(d.cfg, seeds, round, rollSeq, count)
}

func (d *Doubles) ValidateSettings(s Settings) (Settings, error) {
	return clampSettings(s, d.cfg)
}

// Score evaluates two dice. The sum is the base scoring pattern, so
// this variant never busts. At most one pair bonus applies, checked
// snake-eyes then boxcars then plain doubles; the seven bonus stacks
// since it depends on the sum rather than the faces.
func (d *Doubles) Score(dice []int, ctx ScoreContext) (ScoreBreakdown, error) {
	if len(dice) != d.cfg.DiceCount {
		return ScoreBreakdown{}, fmt.Errorf("%w: got %d, want %d", ErrInvalidDiceCount, len(dice), d.cfg.DiceCount)
	}

	sum := dice[0] + dice[1]
	both := []int{0, 1}

	combos := []Combination{{Name: "sum", Priority: 9, Points: sum, DiceIndices: both}}

	bonus := 0
	switch {
	case dice[0] == 1 && dice[1] == 1:
		combos = append(combos, Combination{Name: "snake_eyes", Priority: 1, Points: 10, DiceIndices: both})
		bonus += 10
	case dice[0] == 6 && dice[1] == 6:
		combos = append(combos, Combination{Name: "boxcars", Priority: 2, Points: 15, DiceIndices: both})
		bonus += 15
	case dice[0] == dice[1]:
		combos = append(combos, Combination{Name: "doubles", Priority: 3, Points: 5, DiceIndices: both})
		bonus += 5
	}

	if sum == 7 {
		combos = append(combos, Combination{Name: "seven", Priority: 4, Points: 3, DiceIndices: both})
		bonus += 3
	}

	return ScoreBreakdown{
		Total:        sum + bonus,
		Best:         selectBest(combos),
		Combinations: combos,
		Scoring:      true,
	}, nil
}
