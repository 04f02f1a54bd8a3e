// internal/axis/axis.go
//
// Digit axes for the squares board.
// Responsibilities:
//   - Digits: the fixed-length permutation of 0–9 assigned to one axis.
//   - Shuffle: Fisher–Yates over a cryptographically strong random source.
//   - Encode/Parse: the JSON text boundary used by the metadata table.
//
// Notes:
//   - Random draws scale a 32-bit value onto [0, n) by multiplication, so no
//     draw is ever rejected and each call reads exactly 9*4 bytes.
//   - Stored values that do not parse as a permutation are reported as absent.

package axis

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Size is the number of digits on one axis.
const Size = 10

// Digits is one axis: Digits[i] is the score digit shown at position i.
type Digits [Size]int

// ErrRandomUnavailable is returned when the random source cannot be read.
var ErrRandomUnavailable = errors.New("axis: random source unavailable")

// Shuffle returns a uniformly random permutation of 0..9 using crypto/rand.
func Shuffle() (Digits, error) {
	return ShuffleFrom(rand.Reader)
}

// ShuffleFrom is Shuffle with an explicit random source.
func ShuffleFrom(r io.Reader) (Digits, error) {
	var d Digits
	for i := range d {
		d[i] = i
	}
	var buf [4]byte
	for i := Size - 1; i > 0; i-- {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Digits{}, fmt.Errorf("%w: %w", ErrRandomUnavailable, err)
		}
		j := scale(binary.BigEndian.Uint32(buf[:]), i+1)
		d[i], d[j] = d[j], d[i]
	}
	return d, nil
}

// scale maps v onto [0, n) as floor(v * n / 2^32).
func scale(v uint32, n int) int {
	return int((uint64(v) * uint64(n)) >> 32)
}

// Valid reports whether d holds each digit 0..9 exactly once.
func (d Digits) Valid() bool {
	var seen [Size]bool
	for _, v := range d {
		if v < 0 || v >= Size || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Slice returns the digits as a fresh slice (handy for JSON responses).
func (d Digits) Slice() []int {
	out := make([]int, Size)
	copy(out, d[:])
	return out
}

// Encode renders d as a JSON array, e.g. "[3,1,4,0,2,9,8,5,7,6]".
func Encode(d Digits) string {
	b, _ := json.Marshal(d[:])
	return string(b)
}

// Parse decodes a stored axis value.
// ok is false for empty input, invalid JSON, arrays whose length is not 10,
// and arrays that are not a permutation of 0..9.
func Parse(s string) (d Digits, ok bool) {
	if s == "" {
		return Digits{}, false
	}
	var raw []int
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Digits{}, false
	}
	if len(raw) != Size {
		return Digits{}, false
	}
	copy(d[:], raw)
	if !d.Valid() {
		return Digits{}, false
	}
	return d, true
}
