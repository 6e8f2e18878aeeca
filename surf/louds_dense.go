package surf

import "io"

// loudsDense is the upper, dense-fanout tier: one 256-bit label bitmap and
// one 256-bit child-indicator bitmap per node, plus a one-bit-per-node
// prefix-key flag for nodes that are themselves a stored key.
type loudsDense struct {
	labelVec    rankVectorDense
	hasChildVec rankVectorDense
	isPrefixVec rankVectorDense
	values      valueVector

	// height is the dense tier's end level, i.e. the cutoff level.
	height uint32
}

func (ld *loudsDense) init(b *Builder) {
	ld.height = b.sparseStartLevel

	numBitsPerLevel := make([]uint32, ld.height)
	for level := range numBitsPerLevel {
		numBitsPerLevel[level] = uint32(len(b.ldLabels[level]) * wordSize)
	}

	ld.labelVec.init(b.ldLabels, numBitsPerLevel, 0, ld.height)
	ld.hasChildVec.init(b.ldHasChild, numBitsPerLevel, 0, ld.height)
	ld.isPrefixVec.init(b.ldIsPrefix, b.nodeCounts, 0, ld.height)
	ld.values.init(b.values, 0, ld.height)
}

// Get walks the dense tier for key. If the key terminates within the
// dense tier, value/ok report the result directly. Otherwise sparseNode
// carries the sparse-tier node number to resume the walk from, and ok is
// true with value unset.
func (ld *loudsDense) Get(key []byte) (sparseNode int64, value uint64, ok bool) {
	var nodeID, pos uint32
	for level := uint32(0); level < ld.height; level++ {
		pos = nodeID * denseFanout
		if level >= uint32(len(key)) {
			if ld.isPrefixVec.IsSet(nodeID) {
				return -1, ld.values.Get(ld.suffixPos(pos, true)), true
			}
			return -1, 0, false
		}
		pos += uint32(key[level])

		if !ld.labelVec.IsSet(pos) {
			return -1, 0, false
		}
		if !ld.hasChildVec.IsSet(pos) {
			if level+1 < uint32(len(key)) {
				return -1, 0, false
			}
			return -1, ld.values.Get(ld.suffixPos(pos, false)), true
		}

		nodeID = ld.childNodeID(pos)
	}

	return int64(nodeID), 0, true
}

func (ld *loudsDense) MemSize() uint32 {
	return ld.labelVec.MemSize() + ld.hasChildVec.MemSize() + ld.isPrefixVec.MemSize()
}

func (ld *loudsDense) MarshalSize() int64 {
	return align(ld.rawMarshalSize())
}

func (ld *loudsDense) rawMarshalSize() int64 {
	return 4 + ld.labelVec.MarshalSize() + ld.hasChildVec.MarshalSize() + ld.isPrefixVec.MarshalSize()
}

func (ld *loudsDense) WriteTo(w io.Writer) error {
	var bs [4]byte
	endian.PutUint32(bs[:], ld.height)
	if _, err := w.Write(bs[:]); err != nil {
		return err
	}
	if err := ld.labelVec.WriteTo(w); err != nil {
		return err
	}
	if err := ld.hasChildVec.WriteTo(w); err != nil {
		return err
	}
	if err := ld.isPrefixVec.WriteTo(w); err != nil {
		return err
	}

	padding := ld.MarshalSize() - ld.rawMarshalSize()
	var zeros [8]byte
	_, err := w.Write(zeros[:padding])
	return err
}

func (ld *loudsDense) Unmarshal(buf []byte) []byte {
	ld.height = endian.Uint32(buf)
	rest := buf[4:]
	rest = ld.labelVec.Unmarshal(rest)
	rest = ld.hasChildVec.Unmarshal(rest)
	rest = ld.isPrefixVec.Unmarshal(rest)

	sz := align(int64(len(buf) - len(rest)))
	return buf[sz:]
}

func (ld *loudsDense) childNodeID(pos uint32) uint32 {
	return ld.hasChildVec.Rank(pos)
}

// suffixPos computes the dense-tier value index for the edge or prefix-key
// node at pos, per invariant I7 generalized to the dense tier: popcount of
// occupied label bits minus child bits, plus prior prefix-key hits.
func (ld *loudsDense) suffixPos(pos uint32, isPrefixKey bool) uint32 {
	nodeID := pos / denseFanout
	valPos := ld.labelVec.Rank(pos) - ld.hasChildVec.Rank(pos) + ld.isPrefixVec.Rank(nodeID) - 1

	// Correct off by one when the node also has a real leaf at label 0:
	// that leaf's own Rank-based position would otherwise collide with
	// the prefix key's.
	if isPrefixKey && ld.labelVec.IsSet(pos) && !ld.hasChildVec.IsSet(pos) {
		valPos--
	}
	return valPos
}

func (ld *loudsDense) nextPos(pos uint32) uint32 {
	return pos + ld.labelVec.DistanceToNextSetBit(pos)
}

func (ld *loudsDense) prevPos(pos uint32) (uint32, bool) {
	dist := ld.labelVec.DistanceToPrevSetBit(pos)
	if dist == 0 || dist > pos {
		return 0, true
	}
	return pos - dist, false
}

// denseIter walks the dense tier for the top-level Iterator, handing off
// to a sparseIter once it descends past the cutoff level.
type denseIter struct {
	valid         bool
	searchComplete bool
	leftComplete  bool
	rightComplete bool

	ld            *loudsDense
	sendOutNodeID uint32
	keyLen        uint32
	keyBuf        []byte
	posInTrie     []uint32
	atPrefixKey   bool
}

func (it *denseIter) init(ld *loudsDense) {
	it.ld = ld
	it.keyBuf = make([]byte, ld.height)
	it.posInTrie = make([]uint32, ld.height)
}

func (it *denseIter) reset() {
	it.valid = false
	it.keyLen = 0
	it.atPrefixKey = false
}

func (it *denseIter) key() []byte {
	l := it.keyLen
	if it.atPrefixKey {
		l--
	}
	return it.keyBuf[:l]
}

func (it *denseIter) value() uint64 {
	return it.ld.values.Get(it.ld.suffixPos(it.posInTrie[it.keyLen-1], it.atPrefixKey))
}

func (it *denseIter) isComplete() bool {
	return it.searchComplete && it.leftComplete && it.rightComplete
}

func (it *denseIter) append(pos uint32) {
	it.keyBuf[it.keyLen] = byte(pos % denseFanout)
	it.posInTrie[it.keyLen] = pos
	it.keyLen++
}

func (it *denseIter) set(level, pos uint32) {
	it.keyBuf[level] = byte(pos % denseFanout)
	it.posInTrie[level] = pos
}

func (it *denseIter) markValid() {
	it.valid, it.searchComplete, it.leftComplete, it.rightComplete = true, true, true, true
}

func (it *denseIter) next() {
	if it.ld.height == 0 {
		return
	}
	if it.atPrefixKey {
		it.atPrefixKey = false
		it.moveToLeftMostKey()
		return
	}

	pos := it.posInTrie[it.keyLen-1]
	nextPos := it.ld.nextPos(pos)

	for nextPos/denseFanout > pos/denseFanout {
		it.keyLen--
		if it.keyLen == 0 {
			it.valid = false
			return
		}
		pos = it.posInTrie[it.keyLen-1]
		nextPos = it.ld.nextPos(pos)
	}
	it.set(it.keyLen-1, nextPos)
	it.moveToLeftMostKey()
}

func (it *denseIter) prev() {
	if it.ld.height == 0 {
		return
	}
	if it.atPrefixKey {
		it.atPrefixKey = false
		it.keyLen--
	}
	pos := it.posInTrie[it.keyLen-1]
	prevPos, out := it.ld.prevPos(pos)
	if out {
		it.valid = false
		return
	}

	for prevPos/denseFanout < pos/denseFanout {
		nodeID := pos / denseFanout
		if it.ld.isPrefixVec.IsSet(nodeID) {
			it.atPrefixKey = true
			it.markValid()
			return
		}

		it.keyLen--
		if it.keyLen == 0 {
			it.valid = false
			return
		}
		pos = it.posInTrie[it.keyLen-1]
		prevPos, out = it.ld.prevPos(pos)
		if out {
			it.valid = false
			return
		}
	}
	it.set(it.keyLen-1, prevPos)
	it.moveToRightMostKey()
}

// seek descends toward key, leaving the iterator positioned at the first
// dense-tier key >= key, or handing off to the sparse tier (isComplete()
// false, sendOutNodeID set) when the trie extends past the cutoff level.
func (it *denseIter) seek(key []byte) bool {
	var nodeID, pos uint32
	for level := uint32(0); level < it.ld.height; level++ {
		pos = nodeID * denseFanout
		if level >= uint32(len(key)) {
			it.append(it.ld.nextPos(pos - 1))
			if it.ld.isPrefixVec.IsSet(nodeID) {
				it.atPrefixKey = true
				it.markValid()
			} else {
				it.moveToLeftMostKey()
			}
			return true
		}

		pos += uint32(key[level])
		it.append(pos)

		if !it.ld.labelVec.IsSet(pos) {
			it.next()
			return false
		}
		if !it.ld.hasChildVec.IsSet(pos) {
			it.markValid()
			return true
		}

		nodeID = it.ld.childNodeID(pos)
	}

	it.sendOutNodeID = nodeID
	it.valid, it.searchComplete, it.leftComplete, it.rightComplete = true, false, true, true
	return true
}

func (it *denseIter) moveToLeftMostKey() {
	level := it.keyLen - 1
	pos := it.posInTrie[level]
	if !it.ld.hasChildVec.IsSet(pos) {
		it.markValid()
		return
	}

	for level < it.ld.height-1 {
		nodeID := it.ld.childNodeID(pos)
		if it.ld.isPrefixVec.IsSet(nodeID) {
			it.append(it.ld.nextPos(nodeID*denseFanout - 1))
			it.atPrefixKey = true
			it.markValid()
			return
		}

		pos = it.ld.nextPos(nodeID*denseFanout - 1)
		it.append(pos)

		if !it.ld.hasChildVec.IsSet(pos) {
			it.markValid()
			return
		}
		level++
	}
	it.sendOutNodeID = it.ld.childNodeID(pos)
	it.valid, it.searchComplete, it.leftComplete, it.rightComplete = true, true, false, true
}

func (it *denseIter) moveToRightMostKey() {
	level := it.keyLen - 1
	pos := it.posInTrie[level]
	if !it.ld.hasChildVec.IsSet(pos) {
		it.markValid()
		return
	}

	var out bool
	for level < it.ld.height-1 {
		nodeID := it.ld.childNodeID(pos)
		pos, out = it.ld.prevPos((nodeID + 1) * denseFanout)
		if out {
			it.valid = false
			return
		}
		it.append(pos)

		if !it.ld.hasChildVec.IsSet(pos) {
			it.markValid()
			return
		}
		level++
	}
	it.sendOutNodeID = it.ld.childNodeID(pos)
	it.valid, it.searchComplete, it.leftComplete, it.rightComplete = true, true, true, false
}

func (it *denseIter) setToFirstInRoot() {
	if it.ld.labelVec.IsSet(0) {
		it.posInTrie[0] = 0
		it.keyBuf[0] = 0
	} else {
		it.posInTrie[0] = it.ld.nextPos(0)
		it.keyBuf[0] = byte(it.posInTrie[0])
	}
	it.keyLen++
}

func (it *denseIter) setToLastInRoot() {
	it.posInTrie[0], _ = it.ld.prevPos(denseFanout)
	it.keyBuf[0] = byte(it.posInTrie[0])
	it.keyLen++
}

// compare reports the lexicographic relationship between the iterator's
// current key and key: negative, zero, or positive.
func (it *denseIter) compare(key []byte) int {
	if it.atPrefixKey && (it.keyLen-1) < uint32(len(key)) {
		return -1
	}
	itKey := it.key()
	if len(itKey) > len(key) {
		return 1
	}
	for i, c := range itKey {
		if c != key[i] {
			if c < key[i] {
				return -1
			}
			return 1
		}
	}
	// No suffix is stored: a matched-prefix trie key is only equal to key
	// when their lengths coincide, otherwise the (shorter) trie key sorts
	// first.
	if len(itKey) < len(key) {
		return -1
	}
	return 0
}
