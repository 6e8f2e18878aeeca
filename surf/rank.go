package surf

import (
	"io"
	"unsafe"
)

// rankVector augments a bitVector with a lookup table of cumulative
// popcounts sampled every blockSize bits, giving O(1) rank queries.
type rankVector struct {
	bitVector
	blockSize uint32
	rankLut   []uint32
}

func (v *rankVector) init(blockSize uint32, bitsPerLevel [][]uint64, numBitsPerLevel []uint32, startLevel, endLevel uint32) {
	v.bitVector.init(bitsPerLevel, numBitsPerLevel, startLevel, endLevel)
	v.blockSize = blockSize
	wordsPerBlock := v.blockSize / wordSize
	nBlocks := v.numBits/v.blockSize + 1
	v.rankLut = make([]uint32, nBlocks)

	var totalRank uint32
	var i uint32
	for i = 0; i < nBlocks-1; i++ {
		v.rankLut[i] = totalRank
		totalRank += popcountBlock(v.bits, i*wordsPerBlock, v.blockSize)
	}
	v.rankLut[nBlocks-1] = totalRank
}

func (v *rankVector) lutSize() uint32 {
	return (v.numBits/v.blockSize + 1) * 4
}

func (v *rankVector) MemSize() uint32 {
	return uint32(unsafe.Sizeof(*v)) + v.bitsSize() + v.lutSize()
}

func (v *rankVector) MarshalSize() int64 {
	return align(v.rawMarshalSize())
}

func (v *rankVector) rawMarshalSize() int64 {
	return 4 + 4 + int64(v.bitsSize()) + int64(v.lutSize())
}

func (v *rankVector) WriteTo(w io.Writer) error {
	var buf [4]byte
	endian.PutUint32(buf[:], v.numBits)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	endian.PutUint32(buf[:], v.blockSize)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := w.Write(u64SliceToBytes(v.bits)); err != nil {
		return err
	}
	if _, err := w.Write(u32SliceToBytes(v.rankLut)); err != nil {
		return err
	}

	var zeros [8]byte
	padding := v.MarshalSize() - v.rawMarshalSize()
	_, err := w.Write(zeros[:padding])
	return err
}

func (v *rankVector) Unmarshal(buf []byte) []byte {
	var cursor int64
	v.numBits = endian.Uint32(buf)
	cursor += 4
	v.blockSize = endian.Uint32(buf[cursor:])
	cursor += 4

	bitsSize := int64(v.bitsSize())
	v.bits = bytesToU64Slice(buf[cursor : cursor+bitsSize])
	cursor += bitsSize

	lutSize := int64(v.lutSize())
	v.rankLut = bytesToU32Slice(buf[cursor : cursor+lutSize])
	cursor = align(cursor + lutSize)
	return buf[cursor:]
}

// rankVectorDense samples every 64 bits. It backs the dense tier's per-node
// 256-bit label/child bitmaps, where queries are frequent and blocks need
// to stay small relative to a node.
type rankVectorDense struct {
	rankVector
}

func (v *rankVectorDense) init(bitsPerLevel [][]uint64, numBitsPerLevel []uint32, startLevel, endLevel uint32) {
	v.rankVector.init(rankDenseBlockSize, bitsPerLevel, numBitsPerLevel, startLevel, endLevel)
}

func (v *rankVectorDense) Rank(pos uint32) uint32 {
	wordsPerBlock := uint32(rankDenseBlockSize / wordSize)
	blockOff := pos / rankDenseBlockSize
	bitsOff := pos % rankDenseBlockSize
	return v.rankLut[blockOff] + popcountBlock(v.bits, blockOff*wordsPerBlock, bitsOff+1)
}

// rankVectorSparse samples every 512 bits. It backs the sparse tier's
// child-indicator bitvector, which is much longer and queried less densely
// per byte of storage than the dense tier's bitmaps.
type rankVectorSparse struct {
	rankVector
}

func (v *rankVectorSparse) init(bitsPerLevel [][]uint64, numBitsPerLevel []uint32, startLevel, endLevel uint32) {
	v.rankVector.init(rankSparseBlockSize, bitsPerLevel, numBitsPerLevel, startLevel, endLevel)
}

func (v *rankVectorSparse) Rank(pos uint32) uint32 {
	wordsPerBlock := uint32(rankSparseBlockSize / wordSize)
	blockOff := pos / rankSparseBlockSize
	bitsOff := pos % rankSparseBlockSize
	return v.rankLut[blockOff] + popcountBlock(v.bits, blockOff*wordsPerBlock, bitsOff+1)
}
