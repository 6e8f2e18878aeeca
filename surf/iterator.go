package surf

import "bytes"

// Iterator is a bidirectional ordered cursor over a SuRF's keys. It
// composes a denseIter for the upper trie levels with a sparseIter for
// the rest, transparently crossing the dense/sparse boundary as it moves.
//
// An Iterator's lifetime must not exceed the SuRF it was created from: it
// borrows the index's bitvectors and label bytes rather than copying them.
type Iterator struct {
	s        *SuRF
	dense    denseIter
	sparse   sparseIter
	valid    bool
	inSparse bool
}

func newIterator(s *SuRF) *Iterator {
	it := &Iterator{s: s}
	it.dense.init(&s.ld)
	it.sparse.init(&s.ls)
	return it
}

// NewIterator returns a fresh, invalid iterator over s. Call Seek (or
// SeekToFirst/SeekToLast) to position it.
func (s *SuRF) NewIterator() *Iterator {
	return newIterator(s)
}

func (it *Iterator) reset() {
	it.dense.reset()
	it.sparse.reset()
	it.valid = false
	it.inSparse = false
}

// Valid reports whether the iterator currently denotes a key.
func (it *Iterator) Valid() bool {
	return it.valid
}

// Key returns the current key. The returned slice aliases the iterator's
// internal buffer and is invalidated by the next call to Next/Prev/Seek.
func (it *Iterator) Key() []byte {
	if !it.valid {
		return nil
	}
	if !it.inSparse {
		return it.dense.key()
	}
	return append(append([]byte(nil), it.dense.key()...), it.sparse.key()...)
}

// Value returns the value mapped by the current key.
func (it *Iterator) Value() uint64 {
	if !it.inSparse {
		return it.dense.value()
	}
	return it.sparse.value()
}

// enterSparse hands descent off to the sparse tier starting at nodeID,
// positioning leftmost (descending=true, used by Next/SeekToFirst) or
// rightmost (descending=false, used by Prev/SeekToLast).
func (it *Iterator) enterSparse(nodeID uint32, leftmost bool) {
	it.sparse.reset()
	it.sparse.startNodeID = nodeID
	if leftmost {
		it.sparse.moveToLeftMostKey()
	} else {
		it.sparse.moveToRightMostKey()
	}
	it.inSparse = true
	it.valid = it.sparse.valid
}

// Seek positions the iterator at the first key >= probe (or > probe if
// inclusive is false), implementing move_to_key_ge.
func (it *Iterator) Seek(probe []byte, inclusive bool) {
	if len(probe) == 0 {
		// The empty key sorts before every stored key (keys are never
		// empty), so the first key >= "" is always the first key in the
		// index regardless of inclusive.
		it.SeekToFirst()
		return
	}

	it.reset()

	if it.dense.ld.height == 0 {
		it.sparse.startNodeID = 0
		it.inSparse = true
		it.sparse.seek(probe)
		it.valid = it.sparse.valid
	} else {
		it.dense.seek(probe)
		it.valid = it.dense.valid
		if it.valid && !it.dense.searchComplete {
			it.sparse.reset()
			it.sparse.startNodeID = it.dense.sendOutNodeID
			it.sparse.seek(probe)
			it.inSparse = true
			it.valid = it.sparse.valid
			if !it.valid {
				// Nothing >= probe below the hand-off node: resume in the
				// dense tier after it.
				it.inSparse = false
				it.valid = true
				it.Next()
			}
		} else if it.valid && !it.dense.isComplete() {
			it.enterSparse(it.dense.sendOutNodeID, true)
		}
	}

	if !it.valid {
		return
	}

	cmp := it.compare(probe)
	switch {
	case cmp > 0:
		return
	case cmp == 0:
		if !inclusive {
			it.Next()
		}
	default: // cmp < 0: landed short of probe, advance once
		it.Next()
	}
}

func (it *Iterator) compare(key []byte) int {
	return bytes.Compare(it.Key(), key)
}

// SeekToFirst positions the iterator at the smallest key in the index.
func (it *Iterator) SeekToFirst() {
	it.reset()
	if it.dense.ld.height == 0 {
		it.sparse.startNodeID = 0
		it.inSparse = true
		it.sparse.moveToLeftMostKey()
		it.valid = it.sparse.valid
		return
	}
	it.dense.setToFirstInRoot()
	it.dense.moveToLeftMostKey()
	it.valid = it.dense.valid
	if it.valid && !it.dense.isComplete() {
		it.enterSparse(it.dense.sendOutNodeID, true)
	}
}

// SeekToLast positions the iterator at the largest key in the index.
func (it *Iterator) SeekToLast() {
	it.reset()
	if it.dense.ld.height == 0 {
		it.sparse.startNodeID = 0
		it.inSparse = true
		it.sparse.moveToRightMostKey()
		it.valid = it.sparse.valid
		return
	}
	it.dense.setToLastInRoot()
	it.dense.moveToRightMostKey()
	it.valid = it.dense.valid
	if it.valid && !it.dense.isComplete() {
		it.enterSparse(it.dense.sendOutNodeID, false)
	}
}

// Next advances to the next key in order, or invalidates the iterator if
// there is none.
func (it *Iterator) Next() {
	if !it.valid {
		return
	}
	if it.inSparse {
		it.sparse.next()
		if it.sparse.valid {
			return
		}
		// Exhausted this subtrie: climb back into the dense tier.
		it.inSparse = false
	}

	it.dense.next()
	it.valid = it.dense.valid
	if it.valid && !it.dense.isComplete() {
		it.enterSparse(it.dense.sendOutNodeID, true)
	}
}

// Prev retreats to the previous key in order, or invalidates the iterator
// if there is none.
func (it *Iterator) Prev() {
	if !it.valid {
		return
	}
	if it.inSparse {
		it.sparse.prev()
		if it.sparse.valid {
			return
		}
		it.inSparse = false
	}

	it.dense.prev()
	it.valid = it.dense.valid
	if it.valid && !it.dense.isComplete() {
		it.enterSparse(it.dense.sendOutNodeID, false)
	}
}

// Equal reports whether it and other denote the same position: both
// invalid, or both valid with equal keys.
func (it *Iterator) Equal(other *Iterator) bool {
	if it.valid != other.valid {
		return false
	}
	if !it.valid {
		return true
	}
	return bytes.Equal(it.Key(), other.Key())
}

// LookupRange returns a half-open [begin, end) pair bracketing the keys k
// with lo (lo_inc) <= k <= hi (hi_inc): callers scan with
// `for it := begin; it.Valid() && !it.Equal(end); it.Next()`. end is
// positioned at the first key strictly past the hi boundary, so its probe
// inclusivity is the complement of hiInclusive: an inclusive hi must be
// included in the scan, so end seeks past it (!hiInclusive = false,
// i.e. exclusive); an exclusive hi must not be included, so end seeks at
// it (!hiInclusive = true, i.e. inclusive). If lo > hi both returned
// iterators are invalid and Equal to each other.
func (s *SuRF) LookupRange(lo []byte, loInclusive bool, hi []byte, hiInclusive bool) (*Iterator, *Iterator) {
	begin := s.NewIterator()
	end := s.NewIterator()

	if bytes.Compare(lo, hi) > 0 {
		return begin, end
	}

	begin.Seek(lo, loInclusive)
	end.Seek(hi, !hiInclusive)
	return begin, end
}
