package surf

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/stretchr/testify/require"

	"github.com/loudstrie/surf/options"
)

func buildAndCheck(t *testing.T, keys [][]byte) *SuRF {
	t.Helper()
	vals := make([]uint64, len(keys))
	for i := range keys {
		vals[i] = uint64(i)
	}
	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)
	checkAllPresent(t, s, keys, vals)
	return s
}

func checkAllPresent(t *testing.T, s *SuRF, keys [][]byte, vals []uint64) {
	t.Helper()
	for i, k := range keys {
		v, ok := s.Get(k)
		require.True(t, ok, "expected key %x present", k)
		require.Equal(t, vals[i], v, "value mismatch for key %x", k)
	}
}

func TestBuildPrefixKeys(t *testing.T) {
	buildAndCheck(t, [][]byte{
		{1},
		{1, 1},
		{1, 1, 1},
		{1, 1, 1, 1},
		{2},
		{2, 2},
		{2, 2, 2},
	})
}

func TestBuildCompressPath(t *testing.T) {
	buildAndCheck(t, [][]byte{
		{1, 1, 1},
		{1, 1, 1, 2, 2},
		{1, 1, 1, 2, 2, 2},
		{1, 1, 1, 2, 2, 3},
		{2, 1, 3},
		{2, 2, 3},
		{2, 3, 1, 1, 1, 1, 1, 1, 1},
		{2, 3, 1, 1, 1, 2, 2, 2, 2},
	})
}

func TestBuildLongSharedKeys(t *testing.T) {
	buildAndCheck(t, [][]byte{
		bytes.Repeat([]byte{1}, 30),
		bytes.Repeat([]byte{2}, 30),
		bytes.Repeat([]byte{3}, 30),
		bytes.Repeat([]byte{4}, 30),
	})
}

// TestBigEndianUint32Keys mirrors the canonical SuRF stress scenario: a
// large run of big-endian uint32 keys, which forces both deep path sharing
// and long flat runs through the sparse tier.
func TestBigEndianUint32Keys(t *testing.T) {
	const n = 250000
	keys := make([][]byte, 0, n)
	vals := make([]uint64, 0, n)
	// Even values whose encoding holds the reserved byte 0xff are skipped.
	for x := uint32(0); len(keys) < n; x += 2 {
		k := make([]byte, 4)
		binary.BigEndian.PutUint32(k, x)
		if bytes.IndexByte(k, labelTerminator) >= 0 {
			continue
		}
		vals = append(vals, uint64(len(keys)))
		keys = append(keys, k)
	}

	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)
	checkAllPresent(t, s, keys, vals)

	// Odd values were never inserted and must miss.
	for i := 0; i < 1000; i++ {
		probe := make([]byte, 4)
		binary.BigEndian.PutUint32(probe, uint32(i*2+1))
		_, ok := s.Get(probe)
		require.False(t, ok)
	}
}

// TestPrefixTerminator covers the "apple"/"application" scenario: apple is
// a proper prefix of application and must be stored and retrieved as its
// own terminal key via the reserved terminator label.
func TestPrefixTerminator(t *testing.T) {
	keys := [][]byte{[]byte("apple"), []byte("application")}
	vals := []uint64{1, 2}
	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)

	v, ok := s.Get([]byte("apple"))
	require.True(t, ok)
	require.EqualValues(t, 1, v)

	v, ok = s.Get([]byte("application"))
	require.True(t, ok)
	require.EqualValues(t, 2, v)

	_, ok = s.Get([]byte("app"))
	require.False(t, ok)
	_, ok = s.Get([]byte("applications"))
	require.False(t, ok)
}

func TestGetMissingKeys(t *testing.T) {
	s := buildAndCheck(t, [][]byte{[]byte("a"), []byte("ab"), []byte("b"), []byte("ba")})
	for _, miss := range [][]byte{[]byte(""), []byte("aa"), []byte("c"), []byte("ab0")} {
		_, ok := s.Get(miss)
		require.False(t, ok, "expected %q to miss", miss)
	}
}

// collectRange walks the half-open [begin, end) pair LookupRange returns;
// this single idiom is correct regardless of which bound (if either) was
// inclusive, since LookupRange already folds that into where begin/end land.
func collectRange(begin, end *Iterator) []string {
	var got []string
	for it := begin; it.Valid() && !it.Equal(end); it.Next() {
		got = append(got, string(it.Key()))
	}
	return got
}

func TestRangeExclusiveInclusive(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	vals := []uint64{0, 1, 2, 3}
	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)

	begin, end := s.LookupRange([]byte("a"), false, []byte("d"), false)
	require.Equal(t, []string{"b", "c"}, collectRange(begin, end))

	begin, end = s.LookupRange([]byte("a"), true, []byte("d"), true)
	require.Equal(t, []string{"a", "b", "c", "d"}, collectRange(begin, end))
}

func TestRangeEmptyWhenLoGreaterThanHi(t *testing.T) {
	s := buildAndCheck(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	begin, end := s.LookupRange([]byte("c"), true, []byte("a"), true)
	require.False(t, begin.Valid())
	require.False(t, end.Valid())
	require.True(t, begin.Equal(end))
}

// TestRangeBoundaryAtRightEnd covers spec's scenario 5: an exclusive upper
// bound past the last key leaves end invalid, and the half-open scan still
// yields the correct keys by running until begin itself goes invalid.
func TestRangeBoundaryAtRightEnd(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	vals := []uint64{0, 1, 2}
	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)

	begin, end := s.LookupRange([]byte("b"), true, []byte("z"), false)
	require.False(t, end.Valid())
	require.Equal(t, []string{"b", "c"}, collectRange(begin, end))
}

// TestSeekEmptyProbe covers move_to_key_ge("", ...): the empty key sorts
// before every stored key, so Seek must behave like SeekToFirst rather than
// panic, for both dense (level-0 keys) and dense+sparse tries.
func TestSeekEmptyProbe(t *testing.T) {
	for _, keys := range [][][]byte{
		{[]byte("a"), []byte("b"), []byte("c")},
		randomSortedKeys(500, 12, 1),
	} {
		s := buildAndCheck(t, keys)

		it := s.NewIterator()
		it.Seek(nil, true)
		require.True(t, it.Valid())
		require.Equal(t, keys[0], it.Key())

		it2 := s.NewIterator()
		it2.Seek([]byte{}, false)
		require.True(t, it2.Valid())
		require.Equal(t, keys[0], it2.Key())
	}
}

func TestIteratorForwardMatchesSortedKeys(t *testing.T) {
	keys := randomSortedKeys(500, 12, 1)
	vals := make([]uint64, len(keys))
	for i := range keys {
		vals[i] = uint64(i)
	}
	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)

	it := s.NewIterator()
	it.SeekToFirst()
	var i int
	for ; it.Valid(); it.Next() {
		require.Equal(t, keys[i], it.Key())
		require.Equal(t, vals[i], it.Value())
		i++
	}
	require.Equal(t, len(keys), i)
}

func TestIteratorBackwardMatchesSortedKeys(t *testing.T) {
	keys := randomSortedKeys(500, 12, 1)
	vals := make([]uint64, len(keys))
	for i := range keys {
		vals[i] = uint64(i)
	}
	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)

	it := s.NewIterator()
	it.SeekToLast()
	i := len(keys) - 1
	for ; it.Valid(); it.Prev() {
		require.Equal(t, keys[i], it.Key())
		i--
	}
	require.Equal(t, -1, i)
}

func TestRandomKeysSparseAndDense(t *testing.T) {
	keys := randomSortedKeys(20000, 40, 0)
	vals := make([]uint64, len(keys))
	for i := range keys {
		vals[i] = uint64(i)
	}

	for _, includeDense := range []bool{true, false} {
		s, err := Build(keys, vals, options.BuildOptions{IncludeDense: includeDense})
		require.NoError(t, err)
		checkAllPresent(t, s, keys, vals)
	}
}

// TestNegativeClosure builds an index from a set of fake words and checks
// that every word not in the set misses, covering P2 over realistically
// shaped string keys rather than random bytes.
func TestNegativeClosure(t *testing.T) {
	gofakeit.Seed(1)
	present := make(map[string]struct{})
	var keys [][]byte
	for len(keys) < 500 {
		w := gofakeit.HackerNoun() + gofakeit.HackerVerb()
		if _, ok := present[w]; ok {
			continue
		}
		present[w] = struct{}{}
		keys = append(keys, []byte(w))
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	vals := make([]uint64, len(keys))
	for i := range keys {
		vals[i] = uint64(i)
	}

	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)
	checkAllPresent(t, s, keys, vals)

	var misses int
	for misses < 200 {
		w := gofakeit.HackerAdjective() + gofakeit.HackerNoun()
		if _, ok := present[w]; ok {
			continue
		}
		_, ok := s.Get([]byte(w))
		require.False(t, ok, "expected %q to miss", w)
		misses++
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(nil, nil, options.BuildOptions{})
	require.Equal(t, ErrEmptyInput, err)

	_, err = Build([][]byte{[]byte("a")}, nil, options.BuildOptions{})
	require.Equal(t, ErrLengthMismatch, err)

	_, err = Build([][]byte{[]byte("b"), []byte("a")}, []uint64{0, 1}, options.BuildOptions{})
	require.Equal(t, ErrUnsorted, err)

	_, err = Build([][]byte{{'a', 0xff}}, []uint64{0}, options.BuildOptions{})
	require.Equal(t, ErrReservedByte, err)
}

func TestBuildDedupesDuplicateKeys(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("a"), []byte("b")}
	vals := []uint64{1, 2, 3}
	s, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)

	v, ok := s.Get([]byte("a"))
	require.True(t, ok)
	require.EqualValues(t, 1, v)
}

func TestMarshalRoundTrip(t *testing.T) {
	keys := randomSortedKeys(3000, 20, 3)
	vals := make([]uint64, len(keys))
	for i := range keys {
		vals[i] = uint64(i)
	}
	s1, err := Build(keys, vals, options.BuildOptions{IncludeDense: true})
	require.NoError(t, err)

	buf := s1.Marshal()
	require.EqualValues(t, s1.MarshalSize(), len(buf))

	var s2 SuRF
	require.NoError(t, s2.Unmarshal(buf))
	checkAllPresent(t, &s2, keys, vals)
}

func TestStats(t *testing.T) {
	s := buildAndCheck(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	st := s.Stats()
	require.Equal(t, 3, st.Keys)
	require.NotEmpty(t, st.HumanizedMemory)
}

// randomSortedKeys generates a sorted, deduplicated key set; round controls
// how many generations of shared-prefix extensions are layered on top of
// the initial random set, letting callers dial between flat and
// deeply-shared key shapes.
func randomSortedKeys(initSize, initLen, round int) [][]byte {
	seed := time.Now().UnixNano()
	r := rand.New(rand.NewSource(seed))
	keys := make([][]byte, initSize)
	for i := range keys {
		keys[i] = make([]byte, r.Intn(initLen)+1)
		r.Read(keys[i])
	}

	for r2 := 1; r2 <= round; r2++ {
		for i := 0; i < initSize*r2; i++ {
			k := make([]byte, len(keys[i])+r.Intn(initLen)+1)
			copy(k, keys[i])
			r.Read(k[len(keys[i]):])
			keys = append(keys, k)
		}
	}

	// Build rejects the reserved terminator byte, so it is replaced.
	for _, k := range keys {
		for j := range k {
			if k[j] == labelTerminator {
				k[j] = 0
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	})

	result := keys[:0]
	var prev []byte
	for _, k := range keys {
		if bytes.Equal(prev, k) {
			continue
		}
		prev = k
		result = append(result, k)
	}
	return result
}
