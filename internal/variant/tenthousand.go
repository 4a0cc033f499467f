package variant

import (
	"fmt"

	"dice-arena-backend/internal/fair"
)

// TenThousand is the six-die push-your-luck variant plus a binary sign
// die. Players roll, hold scoring dice, and either press on or bank;
// a roll that adds nothing scorable busts the turn. The sign die never
// scores, it only routes where banked points land.
type TenThousand struct {
	cfg Config
}

func NewTenThousand() *TenThousand {
	return &TenThousand{cfg: Config{
		Tag:        TagTenThousand,
		DiceCount:  6,
		FaceMin:    1,
		FaceMax:    6,
		SignDie:    true,
		MinPlayers: 2,
		MaxPlayers: 6,
		MaxRounds:  10,
		Actions:    ActionSet{ActionRoll, ActionHold, ActionBank},
	}}
}

func (t *TenThousand) Tag() Tag                  { return t.cfg.Tag }
func (t *TenThousand) Config() Config            { return t.cfg }
func (t *TenThousand) AllowedActions() ActionSet { return t.cfg.Actions }

func (t *TenThousand) RollDice(seeds fair.SeedPair, round, rollSeq, count int) (DiceOutcome, error) {
	return rollDice(t.cfg, seeds, round, rollSeq, count)
}

func (t *TenThousand) ValidateSettings(s Settings) (Settings, error) {
	return clampSettings(s, t.cfg)
}

// Combination priorities, ascending significance order.
const (
	prioLargeStraight = 1
	prioSmallStraight = 2
	prioSixOfAKind    = 3
	prioFiveOfAKind   = 4
	prioFourOfAKind   = 5
	prioFullHouse     = 6
	prioThreeOfAKind  = 7
	prioSingleOne     = 8
	prioSingleFive    = 9
	prioSumFallback   = 99
)

// Score evaluates the current roll merged with the dice held earlier
// in the turn, so patterns may complete across holds. Indices in the
// result refer to the merged set, held dice first. A result is
// non-scoring when no pattern beyond the fallback consumes at least
// one die of the current roll.
func (t *TenThousand) Score(dice []int, ctx ScoreContext) (ScoreBreakdown, error) {
	if len(dice) < 1 || len(dice)+len(ctx.Held) > t.cfg.DiceCount {
		return ScoreBreakdown{}, fmt.Errorf("%w: %d rolled with %d held, limit %d",
			ErrInvalidDiceCount, len(dice), len(ctx.Held), t.cfg.DiceCount)
	}

	merged := make([]int, 0, len(ctx.Held)+len(dice))
	merged = append(merged, ctx.Held...)
	merged = append(merged, dice...)
	newFrom := len(ctx.Held)

	combos := detectTenThousand(merged, t.cfg)
	scoring := false
	for _, c := range combos {
		if c.Priority == prioSumFallback {
			continue
		}
		for _, idx := range c.DiceIndices {
			if idx >= newFrom {
				scoring = true
			}
		}
	}

	best := selectBest(combos)

	// Leftover single 1s and 5s outside the best pattern still count
	// toward the total.
	total := best.Points
	for _, c := range combos {
		if c.Priority != prioSingleOne && c.Priority != prioSingleFive {
			continue
		}
		if c.Name == best.Name && c.DiceIndices[0] == best.DiceIndices[0] {
			continue
		}
		if !overlaps(c.DiceIndices, best.DiceIndices) {
			total += c.Points
		}
	}

	return ScoreBreakdown{
		Total:        total,
		Best:         best,
		Combinations: combos,
		Scoring:      scoring,
	}, nil
}

func detectTenThousand(dice []int, cfg Config) []Combination {
	indicesByFace := map[int][]int{}
	sum := 0
	for i, v := range dice {
		indicesByFace[v] = append(indicesByFace[v], i)
		sum += v
	}

	var combos []Combination

	// Large straight: exactly the faces 1-6, each once.
	if len(dice) == 6 {
		straight := true
		for face := 1; face <= 6; face++ {
			if len(indicesByFace[face]) != 1 {
				straight = false
				break
			}
		}
		if straight {
			combos = append(combos, Combination{
				Name:        "large_straight",
				Priority:    prioLargeStraight,
				Points:      1500,
				DiceIndices: allIndices(len(dice)),
			})
		}
	}

	// Small straight: faces 1-5 all present.
	small := true
	for face := 1; face <= 5; face++ {
		if len(indicesByFace[face]) == 0 {
			small = false
			break
		}
	}
	if small {
		idx := make([]int, 0, 5)
		for face := 1; face <= 5; face++ {
			idx = append(idx, indicesByFace[face][0])
		}
		combos = append(combos, Combination{
			Name:        "small_straight",
			Priority:    prioSmallStraight,
			Points:      500,
			DiceIndices: idx,
		})
	}

	triples, pairs := 0, 0
	var tripleFace, pairFace int
	for face := cfg.FaceMin; face <= cfg.FaceMax; face++ {
		n := len(indicesByFace[face])

		switch n {
		case 2:
			pairs++
			pairFace = face
		case 3:
			triples++
			tripleFace = face
		}

		if n == 6 {
			combos = append(combos, Combination{
				Name:        "six_of_a_kind",
				Priority:    prioSixOfAKind,
				Points:      face * 1000,
				DiceIndices: indicesByFace[face],
			})
		}
		if n >= 5 {
			combos = append(combos, Combination{
				Name:        fmt.Sprintf("five_%ds", face),
				Priority:    prioFiveOfAKind,
				Points:      face * 500,
				DiceIndices: indicesByFace[face][:5],
			})
		}
		if n >= 4 {
			combos = append(combos, Combination{
				Name:        fmt.Sprintf("four_%ds", face),
				Priority:    prioFourOfAKind,
				Points:      face * 200,
				DiceIndices: indicesByFace[face][:4],
			})
		}
		if n >= 3 {
			points := face * 100
			if face == 1 {
				points = 1000
			}
			combos = append(combos, Combination{
				Name:        fmt.Sprintf("three_%ds", face),
				Priority:    prioThreeOfAKind,
				Points:      points,
				DiceIndices: indicesByFace[face][:3],
			})
		}
	}

	// Full house: exactly one triple plus exactly one pair. A
	// four-plus-pair split is not a full house.
	if triples == 1 && pairs == 1 {
		idx := append(append([]int{}, indicesByFace[tripleFace]...), indicesByFace[pairFace]...)
		combos = append(combos, Combination{
			Name:        "full_house",
			Priority:    prioFullHouse,
			Points:      300,
			DiceIndices: idx,
		})
	}

	// Single 1s and 5s score only below three of that face.
	if n := len(indicesByFace[1]); n > 0 && n < 3 {
		for _, i := range indicesByFace[1] {
			combos = append(combos, Combination{
				Name:        "single_one",
				Priority:    prioSingleOne,
				Points:      100,
				DiceIndices: []int{i},
			})
		}
	}
	if n := len(indicesByFace[5]); n > 0 && n < 3 {
		for _, i := range indicesByFace[5] {
			combos = append(combos, Combination{
				Name:        "single_five",
				Priority:    prioSingleFive,
				Points:      50,
				DiceIndices: []int{i},
			})
		}
	}

	if len(combos) == 0 {
		combos = append(combos, Combination{
			Name:        "sum",
			Priority:    prioSumFallback,
			Points:      sum,
			DiceIndices: allIndices(len(dice)),
		})
	}

	return combos
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
