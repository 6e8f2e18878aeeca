package surf

import (
	"io"
	"math/bits"
	"unsafe"
)

// selectVector augments a bitVector with samples of every selectSampleInterval-th
// set bit, giving O(1) select queries via a sampled lookup plus a bounded
// forward scan. It backs the sparse tier's LOUDS bitvector.
type selectVector struct {
	bitVector
	numOnes   uint32
	selectLut []uint32
}

func (v *selectVector) init(bitsPerLevel [][]uint64, numBitsPerLevel []uint32, startLevel, endLevel uint32) {
	v.bitVector.init(bitsPerLevel, numBitsPerLevel, startLevel, endLevel)

	lut := []uint32{0}
	sampledOnes := selectSampleInterval
	onesUpToWord := 0
	for i, w := range v.bits {
		ones := bits.OnesCount64(w)
		for sampledOnes <= onesUpToWord+ones {
			diff := sampledOnes - onesUpToWord
			targetPos := i*wordSize + select64(w, diff)
			lut = append(lut, uint32(targetPos))
			sampledOnes += selectSampleInterval
		}
		onesUpToWord += ones
	}

	v.numOnes = uint32(onesUpToWord)
	v.selectLut = lut
}

func (v *selectVector) lutSize() uint32 {
	return (v.numOnes/selectSampleInterval + 1) * 4
}

// Select returns the zero-based position of the rank-th (1-indexed) set
// bit. E.g. for bitvector 100101000, Select(3) = 5.
func (v *selectVector) Select(rank uint32) uint32 {
	lutIdx := rank / selectSampleInterval
	rankLeft := rank % selectSampleInterval
	if lutIdx == 0 {
		rankLeft--
	}

	pos := v.selectLut[lutIdx]
	if rankLeft == 0 {
		return pos
	}

	wordOff := pos / wordSize
	bitsOff := pos % wordSize
	if bitsOff == wordSize-1 {
		wordOff++
		bitsOff = 0
	} else {
		bitsOff++
	}

	w := v.bits[wordOff] << bitsOff >> bitsOff
	ones := uint32(bits.OnesCount64(w))
	for ones < rankLeft {
		wordOff++
		w = v.bits[wordOff]
		rankLeft -= ones
		ones = uint32(bits.OnesCount64(w))
	}

	return wordOff*wordSize + uint32(select64(w, int(rankLeft)))
}

func (v *selectVector) MemSize() uint32 {
	return uint32(unsafe.Sizeof(*v)) + v.bitsSize() + v.lutSize()
}

func (v *selectVector) MarshalSize() int64 {
	return align(v.rawMarshalSize())
}

func (v *selectVector) rawMarshalSize() int64 {
	return 4 + 4 + int64(v.bitsSize()) + int64(v.lutSize())
}

func (v *selectVector) WriteTo(w io.Writer) error {
	var buf [4]byte
	endian.PutUint32(buf[:], v.numBits)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	endian.PutUint32(buf[:], v.numOnes)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := w.Write(u64SliceToBytes(v.bits)); err != nil {
		return err
	}
	if _, err := w.Write(u32SliceToBytes(v.selectLut)); err != nil {
		return err
	}

	var zeros [8]byte
	padding := v.MarshalSize() - v.rawMarshalSize()
	_, err := w.Write(zeros[:padding])
	return err
}

func (v *selectVector) Unmarshal(buf []byte) []byte {
	var cursor int64
	v.numBits = endian.Uint32(buf)
	cursor += 4
	v.numOnes = endian.Uint32(buf[cursor:])
	cursor += 4

	bitsSize := int64(v.bitsSize())
	v.bits = bytesToU64Slice(buf[cursor : cursor+bitsSize])
	cursor += bitsSize

	lutSize := int64(v.lutSize())
	v.selectLut = bytesToU32Slice(buf[cursor : cursor+lutSize])
	cursor = align(cursor + lutSize)
	return buf[cursor:]
}
