package surf

import "io"

// loudsSparse is the lower tier: a flat label vector plus a rank-augmented
// child-indicator bitvector and a select-augmented LOUDS bitvector.
type loudsSparse struct {
	height          uint32
	startLevel      uint32
	denseNodeCount  uint32
	denseChildCount uint32

	labelVec    labelVector
	hasChildVec rankVectorSparse
	loudsVec    selectVector
	values      valueVector
}

func (ls *loudsSparse) init(b *Builder) {
	ls.height = b.treeHeight()
	ls.startLevel = b.sparseStartLevel

	for l := uint32(0); l < ls.startLevel; l++ {
		ls.denseNodeCount += b.nodeCounts[l]
	}
	if ls.startLevel != 0 && ls.startLevel < ls.height {
		ls.denseChildCount = ls.denseNodeCount + b.nodeCounts[ls.startLevel] - 1
	}

	ls.labelVec.init(b.lsLabels, ls.startLevel, ls.height)

	numItemsPerLevel := make([]uint32, ls.height)
	for level := range numItemsPerLevel {
		numItemsPerLevel[level] = uint32(len(b.lsLabels[level]))
	}
	ls.hasChildVec.init(b.lsHasChild, numItemsPerLevel, ls.startLevel, ls.height)
	ls.loudsVec.init(b.lsLoudsBits, numItemsPerLevel, ls.startLevel, ls.height)

	ls.values.init(b.values, ls.startLevel, ls.height)
}

// Get resumes a walk at nodeID (>= denseNodeCount) for the bytes of key
// from startLevel onward.
func (ls *loudsSparse) Get(key []byte, nodeID uint32) (value uint64, ok bool) {
	pos := ls.firstLabelPos(nodeID)

	var level uint32
	for level = ls.startLevel; level < uint32(len(key)); level++ {
		pos, ok = ls.labelVec.Search(key[level], pos, ls.nodeSize(pos))
		if !ok {
			return 0, false
		}
		if !ls.hasChildVec.IsSet(pos) {
			if level+1 < uint32(len(key)) {
				return 0, false
			}
			return ls.values.Get(ls.suffixPos(pos)), true
		}

		nodeID = ls.childNodeID(pos)
		pos = ls.firstLabelPos(nodeID)
	}

	if ls.labelVec.GetLabel(pos) == labelTerminator && !ls.hasChildVec.IsSet(pos) {
		return ls.values.Get(ls.suffixPos(pos)), true
	}
	return 0, false
}

func (ls *loudsSparse) MemSize() uint32 {
	return ls.labelVec.MemSize() + ls.hasChildVec.MemSize() + ls.loudsVec.MemSize()
}

func (ls *loudsSparse) MarshalSize() int64 {
	return align(ls.rawMarshalSize())
}

func (ls *loudsSparse) rawMarshalSize() int64 {
	return 4*4 + ls.labelVec.MarshalSize() + ls.hasChildVec.MarshalSize() + ls.loudsVec.MarshalSize()
}

func (ls *loudsSparse) WriteTo(w io.Writer) error {
	var bs [4]byte
	endian.PutUint32(bs[:], ls.height)
	if _, err := w.Write(bs[:]); err != nil {
		return err
	}
	endian.PutUint32(bs[:], ls.startLevel)
	if _, err := w.Write(bs[:]); err != nil {
		return err
	}
	endian.PutUint32(bs[:], ls.denseNodeCount)
	if _, err := w.Write(bs[:]); err != nil {
		return err
	}
	endian.PutUint32(bs[:], ls.denseChildCount)
	if _, err := w.Write(bs[:]); err != nil {
		return err
	}
	if err := ls.labelVec.WriteTo(w); err != nil {
		return err
	}
	if err := ls.hasChildVec.WriteTo(w); err != nil {
		return err
	}
	if err := ls.loudsVec.WriteTo(w); err != nil {
		return err
	}

	padding := ls.MarshalSize() - ls.rawMarshalSize()
	var zeros [8]byte
	_, err := w.Write(zeros[:padding])
	return err
}

func (ls *loudsSparse) Unmarshal(buf []byte) []byte {
	rest := buf
	ls.height = endian.Uint32(rest)
	rest = rest[4:]
	ls.startLevel = endian.Uint32(rest)
	rest = rest[4:]
	ls.denseNodeCount = endian.Uint32(rest)
	rest = rest[4:]
	ls.denseChildCount = endian.Uint32(rest)
	rest = rest[4:]

	rest = ls.labelVec.Unmarshal(rest)
	rest = ls.hasChildVec.Unmarshal(rest)
	rest = ls.loudsVec.Unmarshal(rest)

	sz := align(int64(len(buf) - len(rest)))
	return buf[sz:]
}

// suffixPos implements invariant I7: the value index for a terminal edge
// at pos is pos minus the number of child edges before it.
func (ls *loudsSparse) suffixPos(pos uint32) uint32 {
	return pos - ls.hasChildVec.Rank(pos)
}

func (ls *loudsSparse) firstLabelPos(nodeID uint32) uint32 {
	return ls.loudsVec.Select(nodeID + 1 - ls.denseNodeCount)
}

func (ls *loudsSparse) lastLabelPos(nodeID uint32) uint32 {
	nextRank := nodeID + 2 - ls.denseNodeCount
	if nextRank > ls.loudsVec.numOnes {
		return ls.loudsVec.numBits - 1
	}
	return ls.loudsVec.Select(nextRank) - 1
}

func (ls *loudsSparse) childNodeID(pos uint32) uint32 {
	return ls.hasChildVec.Rank(pos) + ls.denseChildCount
}

func (ls *loudsSparse) nodeSize(pos uint32) uint32 {
	return ls.loudsVec.DistanceToNextSetBit(pos)
}

func (ls *loudsSparse) isEndOfNode(pos uint32) bool {
	return pos == ls.loudsVec.numBits-1 || ls.loudsVec.IsSet(pos+1)
}

// sparseIter walks the sparse tier. A top-level Iterator owns one of
// these plus a denseIter and hands off between the two at the cutoff
// level.
type sparseIter struct {
	valid        bool
	atTerminator bool

	ls          *loudsSparse
	startLevel  uint32
	startNodeID uint32
	keyLen      uint32
	keyBuf      []byte
	posInTrie   []uint32
}

func (it *sparseIter) init(ls *loudsSparse) {
	it.ls = ls
	it.startLevel = ls.startLevel
	it.keyBuf = make([]byte, ls.height-ls.startLevel)
	it.posInTrie = make([]uint32, ls.height-ls.startLevel)
}

func (it *sparseIter) reset() {
	it.valid = false
	it.keyLen = 0
	it.atTerminator = false
}

func (it *sparseIter) key() []byte {
	l := it.keyLen
	if it.atTerminator {
		l--
	}
	return it.keyBuf[:l]
}

func (it *sparseIter) value() uint64 {
	return it.ls.values.Get(it.ls.suffixPos(it.posInTrie[it.keyLen-1]))
}

func (it *sparseIter) append(label byte, pos uint32) {
	it.keyBuf[it.keyLen] = label
	it.posInTrie[it.keyLen] = pos
	it.keyLen++
}

func (it *sparseIter) set(level, pos uint32) {
	it.keyBuf[level] = it.ls.labelVec.GetLabel(pos)
	it.posInTrie[level] = pos
}

func (it *sparseIter) next() {
	it.atTerminator = false
	pos := it.posInTrie[it.keyLen-1] + 1

	for pos >= it.ls.loudsVec.numBits || it.ls.loudsVec.IsSet(pos) {
		it.keyLen--
		if it.keyLen == 0 {
			it.valid = false
			return
		}
		pos = it.posInTrie[it.keyLen-1] + 1
	}
	it.set(it.keyLen-1, pos)
	it.moveToLeftMostKey()
}

func (it *sparseIter) prev() {
	it.atTerminator = false
	pos := it.posInTrie[it.keyLen-1]
	if pos == 0 {
		it.valid = false
		return
	}

	for it.ls.loudsVec.IsSet(pos) {
		it.keyLen--
		if it.keyLen == 0 {
			it.valid = false
			return
		}
		pos = it.posInTrie[it.keyLen-1]
	}
	it.set(it.keyLen-1, pos-1)
	it.moveToRightMostKey()
}

// seek descends toward key from startNodeID, positioning the iterator at
// the first sparse-tier key >= key within this subtrie.
func (it *sparseIter) seek(key []byte) bool {
	nodeID := it.startNodeID
	pos := it.ls.firstLabelPos(nodeID)
	var ok bool
	var level uint32

	for level = it.startLevel; level < uint32(len(key)); level++ {
		nodeSize := it.ls.nodeSize(pos)
		var found uint32
		found, ok = it.ls.labelVec.Search(key[level], pos, nodeSize)
		if !ok {
			it.moveToLeftInNextSubTrie(pos, nodeSize, key[level])
			return false
		}
		pos = found

		it.append(key[level], pos)

		if !it.ls.hasChildVec.IsSet(pos) {
			it.valid = true
			return true
		}

		nodeID = it.ls.childNodeID(pos)
		pos = it.ls.firstLabelPos(nodeID)
	}

	if it.ls.labelVec.GetLabel(pos) == labelTerminator && !it.ls.hasChildVec.IsSet(pos) && !it.ls.isEndOfNode(pos) {
		it.append(labelTerminator, pos)
		it.atTerminator = true
		it.valid = true
		return false
	}

	it.moveToLeftMostKey()
	return false
}

func (it *sparseIter) moveToLeftMostKey() {
	if it.keyLen == 0 {
		pos := it.ls.firstLabelPos(it.startNodeID)
		it.append(it.ls.labelVec.GetLabel(pos), pos)
	}

	level := it.keyLen - 1
	pos := it.posInTrie[level]
	label := it.ls.labelVec.GetLabel(pos)

	if !it.ls.hasChildVec.IsSet(pos) {
		if label == labelTerminator && !it.ls.isEndOfNode(pos) {
			it.atTerminator = true
		}
		it.valid = true
		return
	}

	for level < it.ls.height {
		nodeID := it.ls.childNodeID(pos)
		pos = it.ls.firstLabelPos(nodeID)
		label = it.ls.labelVec.GetLabel(pos)

		if !it.ls.hasChildVec.IsSet(pos) {
			it.append(label, pos)
			if label == labelTerminator && !it.ls.isEndOfNode(pos) {
				it.atTerminator = true
			}
			it.valid = true
			return
		}
		it.append(label, pos)
		level++
	}
}

func (it *sparseIter) moveToRightMostKey() {
	if it.keyLen == 0 {
		pos := it.ls.lastLabelPos(it.startNodeID)
		it.append(it.ls.labelVec.GetLabel(pos), pos)
	}

	level := it.keyLen - 1
	pos := it.posInTrie[level]
	label := it.ls.labelVec.GetLabel(pos)

	if !it.ls.hasChildVec.IsSet(pos) {
		if label == labelTerminator && !it.ls.isEndOfNode(pos) {
			it.atTerminator = true
		}
		it.valid = true
		return
	}

	for level < it.ls.height {
		nodeID := it.ls.childNodeID(pos)
		pos = it.ls.lastLabelPos(nodeID)
		label = it.ls.labelVec.GetLabel(pos)

		if !it.ls.hasChildVec.IsSet(pos) {
			it.append(label, pos)
			if label == labelTerminator && !it.ls.isEndOfNode(pos) {
				it.atTerminator = true
			}
			it.valid = true
			return
		}
		it.append(label, pos)
		level++
	}
}

func (it *sparseIter) setToFirstInRoot() {
	it.posInTrie[0] = 0
	it.keyBuf[0] = it.ls.labelVec.GetLabel(0)
}

func (it *sparseIter) setToLastInRoot() {
	it.posInTrie[0] = it.ls.lastLabelPos(0)
	it.keyBuf[0] = it.ls.labelVec.GetLabel(it.posInTrie[0])
}

func (it *sparseIter) moveToLeftInNextSubTrie(pos, nodeSize uint32, label byte) {
	next, ok := it.ls.labelVec.SearchGreaterThan(label, pos, nodeSize)
	if ok {
		pos = next
	} else {
		pos += nodeSize - 1
	}
	it.append(it.ls.labelVec.GetLabel(pos), pos)
	if ok {
		it.moveToLeftMostKey()
	} else {
		it.next()
	}
}

// compare reports the lexicographic relationship between the iterator's
// current key (relative to startLevel) and key.
func (it *sparseIter) compare(key []byte) int {
	if it.atTerminator && (it.keyLen-1) < uint32(len(key))-it.startLevel {
		return -1
	}
	if it.startLevel >= uint32(len(key)) {
		return 1
	}
	itKey := it.key()
	rest := key[it.startLevel:]
	if len(itKey) > len(rest) {
		return 1
	}
	for i, c := range itKey {
		if c != rest[i] {
			if c < rest[i] {
				return -1
			}
			return 1
		}
	}
	if len(itKey) < len(rest) {
		return -1
	}
	return 0
}
