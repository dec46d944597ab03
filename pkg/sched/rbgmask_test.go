package sched

import "testing"

func TestRBGMask_FillAndCount(t *testing.T) {
	m := NewRBGMask(13)
	if m.Count() != 0 || !m.IsZero() {
		t.Fatalf("fresh mask not empty")
	}

	m.Fill(2, 5)
	if m.Count() != 3 {
		t.Errorf("Count = %d, want 3", m.Count())
	}
	if m.Test(1) || !m.Test(2) || !m.Test(4) || m.Test(5) {
		t.Errorf("bits = %s, want 0011100000000", m)
	}
}

func TestRBGMask_FillClampsToSize(t *testing.T) {
	m := NewRBGMask(10)
	m.Fill(8, 100)
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}
}

func TestRBGMask_Overlaps(t *testing.T) {
	a := NewRBGMask(70)
	b := NewRBGMask(70)
	a.Fill(0, 65)
	b.Fill(66, 70)
	if a.Overlaps(b) {
		t.Errorf("disjoint masks reported overlapping")
	}
	b.Set(64)
	if !a.Overlaps(b) {
		t.Errorf("overlap on bit 64 not detected")
	}
}

func TestRBGMask_OrAndClone(t *testing.T) {
	a := NewRBGMask(8)
	a.Fill(0, 4)
	c := a.Clone()
	b := NewRBGMask(8)
	b.Fill(4, 8)

	a.Or(b)
	if a.Count() != 8 {
		t.Errorf("Or result count = %d, want 8", a.Count())
	}
	if c.Count() != 4 {
		t.Errorf("clone mutated by Or on original")
	}
	if a.Equal(c) {
		t.Errorf("Equal = true for different masks")
	}
}

func TestRBGMask_SetOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Set out of range did not panic")
		}
	}()
	m := NewRBGMask(4)
	m.Set(4)
}
