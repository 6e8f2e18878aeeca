package surf

import "io"

// valueVector holds the fixed-width 64-bit values for one tier (dense or
// sparse), in the same order as their owning labels.
type valueVector struct {
	values []uint64
}

func (v *valueVector) init(valuesPerLevel [][]uint64, startLevel, endLevel uint32) {
	var size int
	for l := startLevel; l < endLevel; l++ {
		size += len(valuesPerLevel[l])
	}
	v.values = make([]uint64, 0, size)
	for l := startLevel; l < endLevel; l++ {
		v.values = append(v.values, valuesPerLevel[l]...)
	}
}

func (v *valueVector) Get(pos uint32) uint64 {
	return v.values[pos]
}

func (v *valueVector) MarshalSize() int64 {
	return align(v.rawMarshalSize())
}

func (v *valueVector) rawMarshalSize() int64 {
	return 4 + int64(len(v.values))*8
}

func (v *valueVector) WriteTo(w io.Writer) error {
	var bs [4]byte
	endian.PutUint32(bs[:], uint32(len(v.values)))
	if _, err := w.Write(bs[:]); err != nil {
		return err
	}
	if _, err := w.Write(u64SliceToBytes(v.values)); err != nil {
		return err
	}

	var zeros [8]byte
	padding := v.MarshalSize() - v.rawMarshalSize()
	_, err := w.Write(zeros[:padding])
	return err
}

func (v *valueVector) Unmarshal(buf []byte) []byte {
	n := int64(endian.Uint32(buf))
	cursor := int64(4)
	size := n * 8
	v.values = bytesToU64Slice(buf[cursor : cursor+size])
	cursor = align(cursor + size)
	return buf[cursor:]
}
