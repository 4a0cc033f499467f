// Package variant holds the game-variant registry and the combination
// scoring engines. Variants are pure: no I/O, no shared mutable state.
package variant

import (
	"errors"
	"fmt"
	"sort"

	"dice-arena-backend/internal/fair"
)

var (
	ErrInvalidDiceCount = errors.New("variant: dice count does not match variant config")
	ErrUnknownVariant   = errors.New("variant: unknown variant")
)

// Tag identifies a registered variant.
type Tag string

const (
	TagDoubles     Tag = "doubles"
	TagTenThousand Tag = "tenthousand"
)

type Action string

const (
	ActionRoll Action = "roll"
	ActionHold Action = "hold"
	ActionBank Action = "bank"
)

type ActionSet []Action

func (s ActionSet) Contains(a Action) bool {
	for _, x := range s {
		if x == a {
			return true
		}
	}
	return false
}

// Config is the fixed rule set of a variant. It is validated once at
// registration and never mutated by the engine or the turn machine.
type Config struct {
	Tag        Tag       `json:"tag"`
	DiceCount  int       `json:"dice_count"` // scoring dice, sign die excluded
	FaceMin    int       `json:"face_min"`
	FaceMax    int       `json:"face_max"`
	SignDie    bool      `json:"sign_die"`
	MinPlayers int       `json:"min_players"`
	MaxPlayers int       `json:"max_players"`
	MaxRounds  int       `json:"max_rounds"`
	Actions    ActionSet `json:"actions"`
}

// Settings are the per-match knobs a host may override within the
// bounds of the variant config.
type Settings struct {
	MaxRounds  int `json:"max_rounds" yaml:"max_rounds"`
	MaxPlayers int `json:"max_players" yaml:"max_players"`
}

// Die is one rolled face together with the nonce that produced it, so
// every face is independently verifiable after the seed reveal.
type Die struct {
	Value int   `json:"value"`
	Nonce int64 `json:"nonce"`
}

type DiceOutcome struct {
	Dice []Die `json:"dice"`
	Sign *Die  `json:"sign,omitempty"`
}

func (o DiceOutcome) Values() []int {
	vals := make([]int, len(o.Dice))
	for i, d := range o.Dice {
		vals[i] = d.Value
	}
	return vals
}

// SignPositive reports the sign die routing: faces 1-4 credit the
// banking player, 5-6 debit a target. Variants without a sign die are
// always positive.
func (o DiceOutcome) SignPositive() bool {
	return o.Sign == nil || o.Sign.Value <= 4
}

// Combination is one matched scoring pattern. Lower priority wins ties
// on equal points.
type Combination struct {
	Name        string `json:"name"`
	Priority    int    `json:"priority"`
	Points      int    `json:"points"`
	DiceIndices []int  `json:"dice_indices"`
}

// ScoreBreakdown is the engine output for one evaluation. Indices in
// the combinations refer to the merged dice set: held dice first, then
// the current roll.
type ScoreBreakdown struct {
	Total        int           `json:"total"`
	Best         Combination   `json:"best"`
	Combinations []Combination `json:"combinations"`

	// Scoring is false when no pattern beyond the sum fallback
	// consumed any die of the current roll; the turn machine treats
	// that as a bust.
	Scoring bool `json:"scoring"`
}

// ScoreContext carries the turn state relevant to cumulative scoring.
type ScoreContext struct {
	Round  int
	Player string
	Held   []int // dice held earlier this turn, merged ahead of the roll
}

// Variant is the capability set a dice game implements. The turn
// machine and the service layer never branch on variant identity.
type Variant interface {
	Tag() Tag
	Config() Config
	RollDice(seeds fair.SeedPair, round, rollSeq, count int) (DiceOutcome, error)
	Score(dice []int, ctx ScoreContext) (ScoreBreakdown, error)
	ValidateSettings(s Settings) (Settings, error)
	AllowedActions() ActionSet
}

var registry = map[Tag]Variant{}

func init() {
	MustRegister(NewDoubles())
	MustRegister(NewTenThousand())
}

// Register adds a variant after validating its config. Malformed
// configs are fatal at registration, not at play time.
func Register(v Variant) error {
	cfg := v.Config()
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if _, exists := registry[cfg.Tag]; exists {
		return fmt.Errorf("variant: %q already registered", cfg.Tag)
	}
	registry[cfg.Tag] = v
	return nil
}

func MustRegister(v Variant) {
	if err := Register(v); err != nil {
		panic(err)
	}
}

// Get resolves a variant by name.
func Get(name string) (Variant, error) {
	v, ok := registry[Tag(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// List returns the registered variant tags in stable order.
func List() []Tag {
	tags := make([]Tag, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Tag == "":
		return errors.New("variant: config requires a tag")
	case cfg.DiceCount < 1:
		return errors.New("variant: dice count must be >= 1")
	case cfg.FaceMin < 1 || cfg.FaceMax <= cfg.FaceMin:
		return errors.New("variant: face range must satisfy 1 <= min < max")
	case cfg.MinPlayers < 2 || cfg.MaxPlayers < cfg.MinPlayers:
		return errors.New("variant: player limits must satisfy 2 <= min <= max")
	case cfg.MaxRounds < 1:
		return errors.New("variant: max rounds must be >= 1")
	case !cfg.Actions.Contains(ActionRoll) || !cfg.Actions.Contains(ActionBank):
		return errors.New("variant: actions must include roll and bank")
	}
	return nil
}

// rollDice draws count faces plus the sign die when the config has
// one. Shared by all variants; nonces follow fair.Nonce so draws are
// re-derivable from (round, rollSeq, dieIndex) alone.
func rollDice(cfg Config, seeds fair.SeedPair, round, rollSeq, count int) (DiceOutcome, error) {
	if count < 1 || count > cfg.DiceCount {
		return DiceOutcome{}, fmt.Errorf("%w: requested %d of %d", ErrInvalidDiceCount, count, cfg.DiceCount)
	}

	out := DiceOutcome{Dice: make([]Die, count)}
	for i := range out.Dice {
		nonce := fair.Nonce(round, rollSeq, i)
		v, err := fair.Draw(seeds.ServerSeed, seeds.ClientSeed, nonce, cfg.FaceMin, cfg.FaceMax)
		if err != nil {
			return DiceOutcome{}, err
		}
		out.Dice[i] = Die{Value: v, Nonce: nonce}
	}

	if cfg.SignDie {
		// The sign die always uses the index past the scoring dice,
		// even on partial re-rolls, so its nonce never collides.
		nonce := fair.Nonce(round, rollSeq, cfg.DiceCount)
		v, err := fair.Draw(seeds.ServerSeed, seeds.ClientSeed, nonce, 1, 6)
		if err != nil {
			return DiceOutcome{}, err
		}
		out.Sign = &Die{Value: v, Nonce: nonce}
	}

	return out, nil
}

// selectBest picks the winning combination: highest points, ties by
// ascending priority, then by lowest first consumed index so the
// result never depends on detection order.
func selectBest(combos []Combination) Combination {
	best := combos[0]
	for _, c := range combos[1:] {
		if c.Points > best.Points {
			best = c
			continue
		}
		if c.Points == best.Points && c.Priority < best.Priority {
			best = c
			continue
		}
		if c.Points == best.Points && c.Priority == best.Priority &&
			len(c.DiceIndices) > 0 && len(best.DiceIndices) > 0 &&
			c.DiceIndices[0] < best.DiceIndices[0] {
			best = c
		}
	}
	return best
}

func overlaps(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
