package surf

import (
	"bytes"

	"github.com/loudstrie/surf/options"
	"github.com/ngaut/log"
)

// Builder performs the single-pass construction described for the trie:
// keys are fed in strictly increasing order, and each is walked against
// the previous key to discover the level at which new trie edges must be
// inserted.
type Builder struct {
	opts             options.BuildOptions
	sparseStartLevel uint32
	totalCount       int

	// LOUDS-Sparse vectors, one slice per level.
	lsLabels    [][]byte
	lsHasChild  [][]uint64
	lsLoudsBits [][]uint64

	// LOUDS-Dense vectors, populated by buildDense once the cutoff level
	// is known.
	ldLabels   [][]uint64
	ldHasChild [][]uint64
	ldIsPrefix [][]uint64

	values [][]uint64

	nodeCounts           []uint32
	isLastItemTerminator []bool

	pendingKey     []byte
	pendingValue   uint64
	havePendingKey bool
}

// NewBuilder returns a Builder configured by opts.
func NewBuilder(opts options.BuildOptions) *Builder {
	return &Builder{opts: opts.WithDefaults()}
}

// Add inserts the next (key, value) pair. Keys must be added in strictly
// increasing lexicographic order and must not contain the reserved
// terminator byte 0xff.
func (b *Builder) Add(key []byte, value uint64) error {
	if bytes.IndexByte(key, labelTerminator) >= 0 {
		return ErrReservedByte
	}
	if b.havePendingKey && bytes.Compare(key, b.pendingKey) <= 0 {
		return ErrUnsorted
	}

	b.totalCount++
	b.processPendingKey(key)
	b.pendingKey = append(b.pendingKey[:0], key...)
	b.pendingValue = value
	b.havePendingKey = true
	return nil
}

// Finish completes construction and returns the frozen trie.
func (b *Builder) Finish() *SuRF {
	b.processPendingKey(nil)
	b.determineCutoffLevel()
	b.buildDense()

	log.Debugf("surf: built trie from %d keys, height=%d, sparseStartLevel=%d",
		b.totalCount, b.treeHeight(), b.sparseStartLevel)

	s := new(SuRF)
	s.ld.init(b)
	s.ls.init(b)
	return s
}

func (b *Builder) processPendingKey(next []byte) {
	if !b.havePendingKey {
		return
	}
	level := b.skipCommonPrefix(b.pendingKey)
	level = b.insertKeyIntoTrieUntilUnique(b.pendingKey, next, level)
	b.insertValue(b.pendingValue, level)
}

func (b *Builder) insertValue(value uint64, level uint32) {
	valueLevel := level - 1
	b.values[valueLevel] = append(b.values[valueLevel], value)
}

func (b *Builder) skipCommonPrefix(key []byte) uint32 {
	var level uint32
	for level < uint32(len(key)) && b.isCharCommonPrefix(key[level], level) {
		setBit(b.lsHasChild[level], b.numItems(level)-1)
		level++
	}
	return level
}

func (b *Builder) isCharCommonPrefix(c byte, level uint32) bool {
	return level < b.treeHeight() && !b.isLastItemTerminator[level] &&
		c == b.lsLabels[level][len(b.lsLabels[level])-1]
}

// insertKeyIntoTrieUntilUnique inserts the remaining bytes of key starting
// at level, each byte after the first opening a new single-label node, and
// ends key with a terminator label when it is a proper prefix of next (the
// following key in the stream, or nil at end of input).
func (b *Builder) insertKeyIntoTrieUntilUnique(key, next []byte, level uint32) uint32 {
	isStartOfNode := b.isLevelEmpty(level)

	b.insertByte(key[level], level, isStartOfNode, false)
	level++

	isStartOfNode = true
	for level < uint32(len(key)) {
		b.insertByte(key[level], level, isStartOfNode, false)
		level++
	}

	if len(next) > len(key) && bytes.HasPrefix(next, key) {
		b.insertByte(labelTerminator, level, true, true)
		level++
	}
	return level
}

func (b *Builder) insertByte(c byte, level uint32, isStartOfNode, isTerm bool) {
	if level >= b.treeHeight() {
		b.addLevel()
	}

	if level > 0 {
		setBit(b.lsHasChild[level-1], b.numItems(level-1)-1)
	}

	b.lsLabels[level] = append(b.lsLabels[level], c)
	if isStartOfNode {
		setBit(b.lsLoudsBits[level], b.numItems(level)-1)
		b.nodeCounts[level]++
	}
	b.isLastItemTerminator[level] = isTerm

	b.moveToNextItemSlot(level)
}

func (b *Builder) moveToNextItemSlot(level uint32) {
	if b.numItems(level)%wordSize == 0 {
		b.lsHasChild[level] = append(b.lsHasChild[level], 0)
		b.lsLoudsBits[level] = append(b.lsLoudsBits[level], 0)
	}
}

func (b *Builder) addLevel() {
	b.lsLabels = append(b.lsLabels, []byte{})
	b.lsHasChild = append(b.lsHasChild, []uint64{})
	b.lsLoudsBits = append(b.lsLoudsBits, []uint64{})
	b.values = append(b.values, []uint64{})

	b.nodeCounts = append(b.nodeCounts, 0)
	b.isLastItemTerminator = append(b.isLastItemTerminator, false)

	level := b.treeHeight() - 1
	b.lsHasChild[level] = append(b.lsHasChild[level], 0)
	b.lsLoudsBits[level] = append(b.lsLoudsBits[level], 0)
}

func (b *Builder) treeHeight() uint32 {
	return uint32(len(b.nodeCounts))
}

func (b *Builder) numItems(level uint32) uint32 {
	return uint32(len(b.lsLabels[level]))
}

func (b *Builder) isLevelEmpty(level uint32) bool {
	return level >= b.treeHeight() || len(b.lsLabels[level]) == 0
}

func (b *Builder) isStartOfNode(level, pos uint32) bool {
	return readBit(b.lsLoudsBits[level], pos)
}

func (b *Builder) isTerminator(level, pos uint32) bool {
	label := b.lsLabels[level][pos]
	return label == labelTerminator && !readBit(b.lsHasChild[level], pos)
}

// determineCutoffLevel picks sparseStartLevel, the smallest level at which
// the dense-tier memory of all shallower levels, multiplied by
// SparseDenseRatio, reaches the sparse-tier memory of that level and every
// deeper one. Without IncludeDense, or for an empty trie, it is 0.
func (b *Builder) determineCutoffLevel() {
	height := b.treeHeight()
	if height == 0 || !b.opts.IncludeDense {
		b.sparseStartLevel = 0
		return
	}

	ratio := uint64(b.opts.SparseDenseRatio)
	var level uint32
	for level = 0; level < height; level++ {
		dm := b.denseMem(level)
		sm := b.sparseMem(level)
		if dm*ratio >= sm {
			break
		}
	}
	b.sparseStartLevel = level
}

func (b *Builder) denseMem(cutoff uint32) uint64 {
	var total uint64
	for l := uint32(0); l < cutoff; l++ {
		total += uint64(2 * denseFanout * b.nodeCounts[l])
		total += uint64(b.nodeCounts[l])
	}
	return total
}

func (b *Builder) sparseMem(cutoff uint32) uint64 {
	var total uint64
	height := b.treeHeight()
	for l := cutoff; l < height; l++ {
		n := uint64(len(b.lsLabels[l]))
		total += n*8 + 2*n + 1
	}
	return total
}

// buildDense synthesizes the dense-tier label/child/prefix bitmaps for
// every level below the cutoff by replaying the sparse vectors already
// built for those levels.
func (b *Builder) buildDense() {
	for level := uint32(0); level < b.sparseStartLevel; level++ {
		b.initDenseVectors(level)
		if b.numItems(level) == 0 {
			continue
		}

		var nodeID uint32
		if b.isTerminator(level, 0) {
			setBit(b.ldIsPrefix[level], 0)
		} else {
			b.setLabelAndHasChildVec(level, nodeID, 0)
		}

		numItems := b.numItems(level)
		for pos := uint32(1); pos < numItems; pos++ {
			if b.isStartOfNode(level, pos) {
				nodeID++
				if b.isTerminator(level, pos) {
					setBit(b.ldIsPrefix[level], nodeID)
					continue
				}
			}
			b.setLabelAndHasChildVec(level, nodeID, pos)
		}
	}
}

func (b *Builder) setLabelAndHasChildVec(level, nodeID, pos uint32) {
	label := b.lsLabels[level][pos]
	setBit(b.ldLabels[level], nodeID*denseFanout+uint32(label))
	if readBit(b.lsHasChild[level], pos) {
		setBit(b.ldHasChild[level], nodeID*denseFanout+uint32(label))
	}
}

func (b *Builder) initDenseVectors(level uint32) {
	vecLen := b.nodeCounts[level] * (denseFanout / wordSize)
	prefixVecLen := b.nodeCounts[level] / wordSize
	if b.nodeCounts[level]%wordSize != 0 {
		prefixVecLen++
	}

	b.ldLabels = append(b.ldLabels, make([]uint64, vecLen))
	b.ldHasChild = append(b.ldHasChild, make([]uint64, vecLen))
	b.ldIsPrefix = append(b.ldIsPrefix, make([]uint64, prefixVecLen))
}
