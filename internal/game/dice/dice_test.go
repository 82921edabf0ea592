package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/marcaocj/R1/internal/game/dice"
)

// fixedSource returns values from a fixed cycle, clamped into [0, n).
type fixedSource struct {
	vals []int
	i    int
}

func (f *fixedSource) Intn(n int) int {
	v := f.vals[f.i%len(f.vals)]
	f.i++
	if v >= n {
		return n - 1
	}
	return v
}

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
	assert.Equal(t, "2d6+3 -> [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}}
	assert.Panics(t, func() { _ = r.String() })
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in   string
		want dice.Expression
	}{
		{"3", dice.Expression{Raw: "3", Modifier: 3}},
		{"d6", dice.Expression{Raw: "d6", Count: 1, Sides: 6}},
		{"2d6", dice.Expression{Raw: "2d6", Count: 2, Sides: 6}},
		{"1d3+1", dice.Expression{Raw: "1d3+1", Count: 1, Sides: 3, Modifier: 1}},
		{"4D8-2", dice.Expression{Raw: "4D8-2", Count: 4, Sides: 8, Modifier: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "x", "0d6", "2d1", "2dx", "2d6+y"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected %q to be rejected", in)
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("bogus") })
}

func TestRoll_ConstantHasNoDice(t *testing.T) {
	res := dice.Roll(dice.MustParse("5"), dice.NewCryptoSource())
	assert.Empty(t, res.Dice)
	assert.Equal(t, 5, res.Total())
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestRoller_LogsLabel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(&fixedSource{vals: []int{500_000}}, zap.New(core))

	assert.InDelta(t, 0.5, r.Chance("loot:sword"), 1e-9)
	assert.InDelta(t, 50.0, r.Percent("crit"), 1e-9)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "loot:sword", entries[0].ContextMap()["label"])
}

func TestRoller_RangeDegenerate(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewCryptoSource(), nil)
	assert.Equal(t, 3.0, r.Range("x", 3, 3))
	assert.Equal(t, 0, r.Intn("x", 0))
}

func TestProperty_RollWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-5, 5).Draw(rt, "mod")
		expr := dice.Expression{Raw: "NdS", Count: count, Sides: sides, Modifier: mod}
		res := dice.Roll(expr, dice.NewSeededSource(rapid.Uint64Min(1).Draw(rt, "seed")))
		assert.Len(rt, res.Dice, count)
		assert.GreaterOrEqual(rt, res.Total(), count+mod)
		assert.LessOrEqual(rt, res.Total(), count*sides+mod)
	})
}

func TestProperty_ChanceInUnitInterval(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := dice.NewLoggedRoller(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), nil)
		v := r.Chance("p")
		assert.GreaterOrEqual(rt, v, 0.0)
		assert.Less(rt, v, 1.0)
	})
}
