package sched

import (
	"fmt"
	"math/bits"
	"strings"
)

// RBGMask is a bitmask over the resource block groups of one carrier.
// Bit i set means RBG i is allocated.
type RBGMask struct {
	words []uint64
	size  uint32
}

// NewRBGMask returns an all-zero mask of the given size.
func NewRBGMask(size uint32) RBGMask {
	return RBGMask{words: make([]uint64, (size+63)/64), size: size}
}

// NewFullRBGMask returns a mask of the given size with every bit set.
func NewFullRBGMask(size uint32) RBGMask {
	m := NewRBGMask(size)
	m.Fill(0, size)
	return m
}

// Len returns the number of RBGs the mask covers.
func (m RBGMask) Len() uint32 { return m.size }

// Set marks RBG i as allocated.
func (m RBGMask) Set(i uint32) {
	if i >= m.size {
		panic(fmt.Sprintf("rbgmask: index %d out of range [0,%d)", i, m.size))
	}
	m.words[i/64] |= 1 << (i % 64)
}

// Test reports whether RBG i is allocated.
func (m RBGMask) Test(i uint32) bool {
	if i >= m.size {
		return false
	}
	return m.words[i/64]&(1<<(i%64)) != 0
}

// Fill sets all bits in [from, to).
func (m RBGMask) Fill(from, to uint32) {
	if to > m.size {
		to = m.size
	}
	for i := from; i < to; i++ {
		m.words[i/64] |= 1 << (i % 64)
	}
}

// Overlaps reports whether any bit is set in both masks.
func (m RBGMask) Overlaps(o RBGMask) bool {
	n := min(len(m.words), len(o.words))
	for i := 0; i < n; i++ {
		if m.words[i]&o.words[i] != 0 {
			return true
		}
	}
	return false
}

// Or folds o into m.
func (m RBGMask) Or(o RBGMask) {
	n := min(len(m.words), len(o.words))
	for i := 0; i < n; i++ {
		m.words[i] |= o.words[i]
	}
}

// Count returns the number of allocated RBGs.
func (m RBGMask) Count() int {
	total := 0
	for _, w := range m.words {
		total += bits.OnesCount64(w)
	}
	return total
}

// IsZero reports whether no RBG is allocated.
func (m RBGMask) IsZero() bool {
	for _, w := range m.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the mask.
func (m RBGMask) Clone() RBGMask {
	c := RBGMask{words: make([]uint64, len(m.words)), size: m.size}
	copy(c.words, m.words)
	return c
}

// Equal reports whether both masks have the same size and bits.
func (m RBGMask) Equal(o RBGMask) bool {
	if m.size != o.size {
		return false
	}
	for i := range m.words {
		if m.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// String renders the mask as a bit string, lowest RBG first.
func (m RBGMask) String() string {
	var b strings.Builder
	b.Grow(int(m.size))
	for i := uint32(0); i < m.size; i++ {
		if m.Test(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
