package axis

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffle_AlwaysPermutation(t *testing.T) {
	for i := 0; i < 1000; i++ {
		d, err := Shuffle()
		require.NoError(t, err)
		require.True(t, d.Valid(), "shuffle %d returned %v", i, d)
	}
}

func TestShuffle_PositionsRoughlyUniform(t *testing.T) {
	const runs = 20000
	var counts [Size][Size]int
	fixedPoints := 0
	for i := 0; i < runs; i++ {
		d, err := Shuffle()
		require.NoError(t, err)
		for pos, v := range d {
			counts[pos][v]++
			if pos == v {
				fixedPoints++
			}
		}
	}

	want := float64(runs) / Size
	for pos := range counts {
		for v, got := range counts[pos] {
			assert.InDelta(t, want, float64(got), want*0.15, "digit %d at position %d", v, pos)
		}
	}
	// A uniform permutation has one fixed point on average.
	assert.InDelta(t, 1.0, float64(fixedPoints)/runs, 0.1)
}

func TestShuffleFrom_ExhaustedSource(t *testing.T) {
	_, err := ShuffleFrom(bytes.NewReader(make([]byte, 8)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRandomUnavailable)
	assert.ErrorIs(t, err, io.EOF)
}

func TestShuffleFrom_ZeroSourceStillPermutes(t *testing.T) {
	d, err := ShuffleFrom(bytes.NewReader(make([]byte, 64)))
	require.NoError(t, err)
	assert.True(t, d.Valid())
}

func TestScale(t *testing.T) {
	assert.Equal(t, 0, scale(0, 10))
	assert.Equal(t, 9, scale(math.MaxUint32, 10))
	assert.Equal(t, 5, scale(1<<31, 10))
	assert.Equal(t, 1, scale(math.MaxUint32, 2))
}

func TestParse(t *testing.T) {
	good := Digits{3, 1, 4, 0, 2, 9, 8, 5, 7, 6}

	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{"valid", "[3,1,4,0,2,9,8,5,7,6]", true},
		{"empty", "", false},
		{"null", "null", false},
		{"not json", "3,1,4", false},
		{"object", `{"a":1}`, false},
		{"too short", "[0,1,2,3,4,5,6,7,8]", false},
		{"too long", "[0,1,2,3,4,5,6,7,8,9,0]", false},
		{"duplicate digit", "[0,0,2,3,4,5,6,7,8,9]", false},
		{"out of range", "[0,1,2,3,4,5,6,7,8,10]", false},
		{"non integer", "[0,1,2,3,4,5,6,7,8,9.5]", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, ok := Parse(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, good, d)
			} else {
				assert.Equal(t, Digits{}, d)
			}
		})
	}
}

func TestEncodeParse_PreservesOrder(t *testing.T) {
	d, err := Shuffle()
	require.NoError(t, err)

	s := Encode(d)
	back, ok := Parse(s)
	require.True(t, ok)
	assert.Equal(t, d, back)
	assert.Equal(t, d[:], back.Slice())
}
