package encoding

import (
	"encoding/binary"
	"fmt"
)

// AppendRLE appends a run-length encoding of vals to dst.
// The encoding is (zigzag varint value, uvarint run) pairs.
func AppendRLE(dst []byte, vals []int32) []byte {
	i := 0
	for i < len(vals) {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v && run < 1<<31; j++ {
			run++
		}
		dst = binary.AppendVarint(dst, int64(v))
		dst = binary.AppendUvarint(dst, uint64(run))
		i += run
	}
	return dst
}

// DecodeRLE expands exactly n values from raw into dst (reused if large
// enough). It fails if raw does not describe exactly n values.
func DecodeRLE(raw []byte, n int, dst []int32) ([]int32, error) {
	dst = dst[:0]
	for i := 0; i < len(raw); {
		v, k := binary.Varint(raw[i:])
		if k <= 0 {
			return dst, fmt.Errorf("bad varint at %d", i)
		}
		i += k
		run, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return dst, fmt.Errorf("bad varint at %d", i)
		}
		i += k
		if v < -1<<31 || v > 1<<31-1 {
			return dst, fmt.Errorf("value out of range: %d", v)
		}
		if uint64(len(dst))+run > uint64(n) {
			return dst, fmt.Errorf("run overflows %d values", n)
		}
		for r := uint64(0); r < run; r++ {
			dst = append(dst, int32(v))
		}
	}
	if len(dst) != n {
		return dst, fmt.Errorf("decoded %d values, want %d", len(dst), n)
	}
	return dst, nil
}
