package surf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildRawBitVector packs a []bool into the MSB-first word layout every
// vector in this package shares, for use as a reference oracle.
func buildRawBitVector(bools []bool) []uint64 {
	words := make([]uint64, (len(bools)+wordSize-1)/wordSize)
	for i, b := range bools {
		if b {
			words[i/wordSize] |= uint64(1) << (wordSize - 1 - uint(i%wordSize))
		}
	}
	return words
}

func randomBools(n int, seed int64) []bool {
	r := rand.New(rand.NewSource(seed))
	bools := make([]bool, n)
	for i := range bools {
		bools[i] = r.Intn(2) == 1
	}
	return bools
}

// TestRankSelectStress exercises rank and select against a naive oracle
// over a 4096-bit vector, the scale at which block/sample boundaries
// actually get crossed.
func TestRankSelectStress(t *testing.T) {
	const n = 4096
	bools := randomBools(n, 42)
	words := buildRawBitVector(bools)

	var rv rankVectorSparse
	rv.init([][]uint64{words}, []uint32{n}, 0, 1)

	var naiveRank []uint32
	var cum uint32
	for _, b := range bools {
		if b {
			cum++
		}
		naiveRank = append(naiveRank, cum)
	}
	for pos := 0; pos < n; pos++ {
		require.Equal(t, naiveRank[pos], rv.Rank(uint32(pos)), "rank mismatch at pos %d", pos)
	}

	var sv selectVector
	sv.init([][]uint64{words}, []uint32{n}, 0, 1)

	var naiveSelect []uint32
	for i, b := range bools {
		if b {
			naiveSelect = append(naiveSelect, uint32(i))
		}
	}
	for rank := 1; rank <= len(naiveSelect); rank++ {
		require.Equal(t, naiveSelect[rank-1], sv.Select(uint32(rank)), "select mismatch at rank %d", rank)
	}
}

func TestBitVectorDistanceToNextSetBit(t *testing.T) {
	bools := []bool{false, false, true, false, false, true, false}
	words := buildRawBitVector(bools)
	var bv bitVector
	bv.init([][]uint64{words}, []uint32{uint32(len(bools))}, 0, 1)

	require.Equal(t, uint32(2), bv.DistanceToNextSetBit(0))
	require.Equal(t, uint32(1), bv.DistanceToNextSetBit(1))
	require.Equal(t, uint32(3), bv.DistanceToNextSetBit(2))
}

func TestBitVectorDistanceToPrevSetBit(t *testing.T) {
	bools := []bool{false, false, true, false, false, true, false}
	words := buildRawBitVector(bools)
	var bv bitVector
	bv.init([][]uint64{words}, []uint32{uint32(len(bools))}, 0, 1)

	require.Equal(t, uint32(0), bv.DistanceToPrevSetBit(0))
	require.Equal(t, uint32(3), bv.DistanceToPrevSetBit(5))
	require.Equal(t, uint32(1), bv.DistanceToPrevSetBit(3))
}

func TestLabelVectorSearchDispatch(t *testing.T) {
	// Cover all three dispatch tiers: linear (<3), binary (<12), wide (>=12).
	for _, n := range []int{2, 10, 20} {
		labels := make([]byte, n)
		for i := range labels {
			labels[i] = byte(i * 2)
		}
		var lv labelVector
		lv.init([][]byte{labels}, 0, 1)

		for i, want := range labels {
			pos, ok := lv.Search(want, 0, uint32(n))
			require.True(t, ok)
			require.EqualValues(t, i, pos)
		}
		_, ok := lv.Search(1, 0, uint32(n))
		require.False(t, ok)
	}
}
