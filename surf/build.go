package surf

import (
	"bytes"
	"time"

	"github.com/loudstrie/surf/options"
)

// Build constructs a frozen trie from a sorted, deduplicated key set in one
// call. Keys must be strictly increasing except for exact duplicates,
// which are silently collapsed to their first occurrence's value, and
// values must have the same length as keys.
//
// Build fails only on precondition violations (empty input, length
// mismatch, a key containing the reserved terminator byte, or input that
// isn't sorted even after deduplication); no partial index is ever
// returned.
func Build(keys [][]byte, values []uint64, opts options.BuildOptions) (*SuRF, error) {
	start := time.Now()

	if len(keys) == 0 {
		return nil, ErrEmptyInput
	}
	if len(keys) != len(values) {
		return nil, ErrLengthMismatch
	}

	b := NewBuilder(opts)
	var prev []byte
	havePrev := false
	for i, k := range keys {
		if bytes.IndexByte(k, labelTerminator) >= 0 {
			return nil, ErrReservedByte
		}
		if havePrev {
			cmp := bytes.Compare(k, prev)
			if cmp < 0 {
				return nil, ErrUnsorted
			}
			if cmp == 0 {
				continue // duplicate: keep the first occurrence's value
			}
		}
		if err := b.Add(k, values[i]); err != nil {
			return nil, err
		}
		prev = k
		havePrev = true
	}

	s := b.Finish()
	observeBuild(time.Since(start), s.MemSize())
	return s, nil
}
