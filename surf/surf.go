package surf

import (
	"bytes"
	"fmt"
	"io"

	humanize "github.com/dustin/go-humanize"
)

// SuRF is a frozen, in-memory, ordered index from byte-string keys to
// uint64 values, backed by a two-tier succinct trie (LOUDS-Dense over the
// upper levels, LOUDS-Sparse over the rest). It supports point lookups and
// ordered range iteration but no mutation: build a new one via Build or
// Builder to change its contents.
type SuRF struct {
	ld loudsDense
	ls loudsSparse
}

// Get reports the value mapped to key, and whether key is present.
func (s *SuRF) Get(key []byte) (uint64, bool) {
	lookupsTotal.Inc()

	sparseNode, value, ok := s.ld.Get(key)
	if !ok {
		return 0, false
	}
	if sparseNode < 0 {
		lookupHitsTotal.Inc()
		return value, true
	}

	value, ok = s.ls.Get(key, uint32(sparseNode))
	if ok {
		lookupHitsTotal.Inc()
	}
	return value, ok
}

// MemSize returns the index's resident size in bytes: bit words, lookup
// tables, label bytes and values, plus the struct size of each bit and
// label vector.
func (s *SuRF) MemSize() uint32 {
	return s.ld.MemSize() + s.ls.MemSize() +
		uint32(len(s.ld.values.values)*8) + uint32(len(s.ls.values.values)*8)
}

// Stats is a human-readable snapshot of an index's shape, useful for logs
// and debug endpoints.
type Stats struct {
	Keys            int
	Height          uint32
	DenseCutoff     uint32
	MemSize         uint32
	HumanizedMemory string
}

// Stats reports the index's shape and footprint.
func (s *SuRF) Stats() Stats {
	keys := len(s.ld.values.values) + len(s.ls.values.values)
	mem := s.MemSize()
	return Stats{
		Keys:            keys,
		Height:          s.ls.height,
		DenseCutoff:     s.ls.startLevel,
		MemSize:         mem,
		HumanizedMemory: humanize.Bytes(uint64(mem)),
	}
}

func (st Stats) String() string {
	return fmt.Sprintf("surf: %d keys, height=%d, dense_cutoff=%d, mem=%s",
		st.Keys, st.Height, st.DenseCutoff, st.HumanizedMemory)
}

// MarshalSize returns the size of SuRF after serialization.
func (s *SuRF) MarshalSize() int64 {
	return s.ld.MarshalSize() + s.ls.MarshalSize() + s.ld.values.MarshalSize() + s.ls.values.MarshalSize()
}

// Marshal returns the serialized SuRF.
func (s *SuRF) Marshal() []byte {
	w := bytes.NewBuffer(make([]byte, 0, s.MarshalSize()))
	_ = s.WriteTo(w)
	return w.Bytes()
}

// WriteTo serializes SuRF to w.
func (s *SuRF) WriteTo(w io.Writer) error {
	if err := s.ld.WriteTo(w); err != nil {
		return err
	}
	if err := s.ls.WriteTo(w); err != nil {
		return err
	}
	if err := s.ld.values.WriteTo(w); err != nil {
		return err
	}
	if err := s.ls.values.WriteTo(w); err != nil {
		return err
	}
	return nil
}

// Unmarshal deserializes SuRF from b. b must outlive the returned index:
// the label and bitvector slices alias it directly.
func (s *SuRF) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return ErrCorrupted
	}
	b = s.ld.Unmarshal(b)
	b = s.ls.Unmarshal(b)
	b = s.ld.values.Unmarshal(b)
	s.ls.values.Unmarshal(b)
	return nil
}
