package variant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dice-arena-backend/internal/fair"
	"dice-arena-backend/internal/variant"
)

func TestTenThousandScore(t *testing.T) {
	v := variant.NewTenThousand()

	cases := []struct {
		name    string
		dice    []int
		total   int
		best    string
		scoring bool
	}{
		{"six of a kind outranks everything", []int{6, 6, 6, 6, 6, 6}, 6000, "six_of_a_kind", true},
		{"six ones ties broken by priority", []int{1, 1, 1, 1, 1, 1}, 1000, "six_of_a_kind", true},
		{"five of a kind", []int{4, 4, 4, 4, 4, 2}, 2000, "five_4s", true},
		{"four of a kind with singles", []int{2, 2, 2, 2, 5, 5}, 500, "four_2s", true},
		{"full house", []int{2, 2, 2, 5, 5, 3}, 300, "full_house", true},
		{"large straight", []int{1, 2, 3, 4, 5, 6}, 1500, "large_straight", true},
		{"small straight", []int{1, 2, 3, 4, 5, 3}, 500, "small_straight", true},
		{"three ones worth a thousand", []int{1, 1, 1, 2, 3, 4}, 1000, "three_1s", true},
		{"three of a kind by value", []int{3, 3, 3, 2, 4, 6}, 300, "three_3s", true},
		{"loose ones and fives stack", []int{1, 1, 5, 2, 3, 6}, 250, "single_one", true},
		{"lone five", []int{5, 2, 3, 3, 4, 6}, 50, "single_five", true},
		{"nothing scores", []int{2, 2, 3, 3, 4, 6}, 20, "sum", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.Score(tc.dice, variant.ScoreContext{})
			require.NoError(t, err)

			assert.Equal(t, tc.total, got.Total)
			assert.Equal(t, tc.best, got.Best.Name)
			assert.Equal(t, tc.scoring, got.Scoring)
		})
	}
}

func TestTenThousandFullHouseStrict(t *testing.T) {
	v := variant.NewTenThousand()

	// Four plus pair is not a full house.
	got, err := v.Score([]int{2, 2, 2, 2, 5, 5}, variant.ScoreContext{})
	require.NoError(t, err)
	for _, c := range got.Combinations {
		assert.NotEqual(t, "full_house", c.Name)
	}

	// Two triples are two triples, not a full house.
	got, err = v.Score([]int{3, 3, 3, 4, 4, 4}, variant.ScoreContext{})
	require.NoError(t, err)
	for _, c := range got.Combinations {
		assert.NotEqual(t, "full_house", c.Name)
	}
	assert.Equal(t, "three_4s", got.Best.Name)
	assert.Equal(t, 400, got.Total)
}

func TestTenThousandCumulativeScoring(t *testing.T) {
	v := variant.NewTenThousand()

	// Two held ones complete a triple with a freshly rolled one.
	got, err := v.Score([]int{1, 2, 3, 4}, variant.ScoreContext{Held: []int{1, 1}})
	require.NoError(t, err)
	assert.True(t, got.Scoring)
	assert.Equal(t, "three_1s", got.Best.Name)
	assert.Equal(t, 1000, got.Total)

	// Held dice alone cannot save a roll that adds nothing.
	got, err = v.Score([]int{2, 3, 4, 6}, variant.ScoreContext{Held: []int{1, 1}})
	require.NoError(t, err)
	assert.False(t, got.Scoring, "held singles must not rescue a dead roll")
}

func TestTenThousandInvalidDiceCount(t *testing.T) {
	v := variant.NewTenThousand()

	_, err := v.Score([]int{1, 2, 3, 4, 5, 6, 1}, variant.ScoreContext{})
	require.ErrorIs(t, err, variant.ErrInvalidDiceCount)

	_, err = v.Score([]int{1, 2, 3}, variant.ScoreContext{Held: []int{1, 1, 1, 1}})
	require.ErrorIs(t, err, variant.ErrInvalidDiceCount)

	_, err = v.Score(nil, variant.ScoreContext{})
	require.ErrorIs(t, err, variant.ErrInvalidDiceCount)
}

func TestTenThousandRollDice(t *testing.T) {
	v := variant.NewTenThousand()
	seeds := fair.SeedPair{ServerSeed: "abc", ClientSeed: "def"}

	out, err := v.RollDice(seeds, 1, 1, 6)
	require.NoError(t, err)

	assert.Len(t, out.Dice, 6)
	require.NotNil(t, out.Sign, "variant carries a sign die")

	// Every face must verify against its recorded nonce.
	for _, die := range out.Dice {
		ok, err := fair.Verify(seeds.ServerSeed, seeds.ClientSeed, die.Nonce, die.Value, 1, 6)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := fair.Verify(seeds.ServerSeed, seeds.ClientSeed, out.Sign.Nonce, out.Sign.Value, 1, 6)
	require.NoError(t, err)
	assert.True(t, ok)

	// Partial re-rolls keep the sign die on its own nonce slot.
	partial, err := v.RollDice(seeds, 1, 2, 3)
	require.NoError(t, err)
	assert.Len(t, partial.Dice, 3)
	require.NotNil(t, partial.Sign)
	assert.Equal(t, fair.Nonce(1, 2, 6), partial.Sign.Nonce)

	_, err = v.RollDice(seeds, 1, 1, 7)
	require.ErrorIs(t, err, variant.ErrInvalidDiceCount)
}

func TestSignRouting(t *testing.T) {
	low := variant.DiceOutcome{Sign: &variant.Die{Value: 4}}
	high := variant.DiceOutcome{Sign: &variant.Die{Value: 5}}
	none := variant.DiceOutcome{}

	assert.True(t, low.SignPositive())
	assert.False(t, high.SignPositive())
	assert.True(t, none.SignPositive())
}
