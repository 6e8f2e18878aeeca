package surf

import (
	"io"
	"math/bits"
	"unsafe"

	"github.com/klauspost/cpuid"
)

// wideScanSafe gates the 8-byte-at-a-time equality scan used by Search for
// long node ranges. The original scan reads 16 bytes at a time with an
// unaligned SIMD load; this port instead reads 8-byte words through the
// Go memory model (always bounds-safe) and only takes that path on CPUs
// cpuid can positively identify as SSE2-capable, in keeping with the
// "implementations unable to guarantee safe wide reads fall back to
// binary" rule. Anything else uses binarySearch, which is always correct.
var wideScanSafe = cpuid.CPU.SSE2()

// labelVector is the flat byte array of all sparse-tier labels.
type labelVector struct {
	bytes []byte
}

func (v *labelVector) init(labelsPerLevel [][]byte, startLevel, endLevel uint32) {
	var n int
	for l := startLevel; l < endLevel; l++ {
		n += len(labelsPerLevel[l])
	}
	v.bytes = make([]byte, 0, n)
	for l := startLevel; l < endLevel; l++ {
		v.bytes = append(v.bytes, labelsPerLevel[l]...)
	}
}

func (v *labelVector) numBytes() uint32 {
	return uint32(len(v.bytes))
}

func (v *labelVector) GetLabel(pos uint32) byte {
	return v.bytes[pos]
}

// Search looks for target within [pos, pos+searchLen) and, on a hit,
// returns its absolute position.
func (v *labelVector) Search(target byte, pos, searchLen uint32) (uint32, bool) {
	if searchLen > 1 && v.bytes[pos] == labelTerminator {
		pos++
		searchLen--
	}

	switch {
	case searchLen < 3:
		return v.linearSearch(target, pos, searchLen)
	case searchLen < 12:
		return v.binarySearch(target, pos, searchLen)
	case wideScanSafe:
		return v.wideSearch(target, pos, searchLen)
	default:
		return v.binarySearch(target, pos, searchLen)
	}
}

// SearchGreaterThan returns the position of the first byte in
// [pos, pos+searchLen) strictly greater than target.
func (v *labelVector) SearchGreaterThan(target byte, pos, searchLen uint32) (uint32, bool) {
	if searchLen > 1 && v.bytes[pos] == labelTerminator {
		pos++
		searchLen--
	}

	if searchLen < 3 {
		return v.linearSearchGreaterThan(target, pos, searchLen)
	}
	return v.binarySearchGreaterThan(target, pos, searchLen)
}

func (v *labelVector) linearSearch(target byte, pos, searchLen uint32) (uint32, bool) {
	for i := uint32(0); i < searchLen; i++ {
		if v.bytes[pos+i] == target {
			return pos + i, true
		}
	}
	return pos, false
}

func (v *labelVector) binarySearch(target byte, pos, searchLen uint32) (uint32, bool) {
	l, r := pos, pos+searchLen
	for l < r {
		m := (l + r) / 2
		switch {
		case target < v.bytes[m]:
			r = m
		case target == v.bytes[m]:
			return m, true
		default:
			l = m + 1
		}
	}
	return pos, false
}

// wideSearch scans 8 bytes at a time using a branchless has-equal-byte
// test (the SWAR analogue of the 16-byte SIMD equality scan), falling
// back to a tail linear scan for the remainder.
func (v *labelVector) wideSearch(target byte, pos, searchLen uint32) (uint32, bool) {
	searched := uint32(0)
	needle := uint64(target) * 0x0101010101010101

	for searchLen-searched >= 8 {
		start := pos + searched
		chunk := uint64(v.bytes[start]) | uint64(v.bytes[start+1])<<8 |
			uint64(v.bytes[start+2])<<16 | uint64(v.bytes[start+3])<<24 |
			uint64(v.bytes[start+4])<<32 | uint64(v.bytes[start+5])<<40 |
			uint64(v.bytes[start+6])<<48 | uint64(v.bytes[start+7])<<56

		x := chunk ^ needle
		matches := (x - 0x0101010101010101) &^ x & 0x8080808080808080
		if matches != 0 {
			return start + uint32(bits.TrailingZeros64(matches))/8, true
		}
		searched += 8
	}

	for ; searched < searchLen; searched++ {
		if v.bytes[pos+searched] == target {
			return pos + searched, true
		}
	}
	return pos, false
}

func (v *labelVector) binarySearchGreaterThan(target byte, pos, searchLen uint32) (uint32, bool) {
	l, r := pos, pos+searchLen
	for l < r {
		m := (l + r) / 2
		switch {
		case target < v.bytes[m]:
			r = m
		case target == v.bytes[m]:
			if m < pos+searchLen-1 {
				return m + 1, true
			}
			return pos, false
		default:
			l = m + 1
		}
	}
	if l < pos+searchLen {
		return l, true
	}
	return pos, false
}

func (v *labelVector) linearSearchGreaterThan(target byte, pos, searchLen uint32) (uint32, bool) {
	for i := uint32(0); i < searchLen; i++ {
		if v.bytes[pos+i] > target {
			return pos + i, true
		}
	}
	return pos, false
}

func (v *labelVector) MemSize() uint32 {
	return uint32(unsafe.Sizeof(*v)) + v.numBytes()
}

func (v *labelVector) MarshalSize() int64 {
	return align(v.rawMarshalSize())
}

func (v *labelVector) rawMarshalSize() int64 {
	return 4 + int64(len(v.bytes))
}

func (v *labelVector) WriteTo(w io.Writer) error {
	var bs [4]byte
	endian.PutUint32(bs[:], uint32(len(v.bytes)))
	if _, err := w.Write(bs[:]); err != nil {
		return err
	}
	if _, err := w.Write(v.bytes); err != nil {
		return err
	}

	var zeros [8]byte
	padding := v.MarshalSize() - v.rawMarshalSize()
	_, err := w.Write(zeros[:padding])
	return err
}

func (v *labelVector) Unmarshal(buf []byte) []byte {
	n := int64(endian.Uint32(buf))
	cursor := int64(4)
	v.bytes = buf[cursor : cursor+n]
	cursor = align(cursor + n)
	return buf[cursor:]
}
