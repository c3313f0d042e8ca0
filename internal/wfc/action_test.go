package wfc

import "testing"

func TestActionTable(t *testing.T) {
	var table ActionTable
	base := 0
	for _, s := range allSymmetries {
		table = table.appendTile(s, base)
		base += s.Cardinality()
	}
	if len(table) != 21 {
		t.Fatalf("len(table) = %d, want 21", len(table))
	}

	for v := range table {
		if got := table.Apply(v, TransformIdentity); got != v {
			t.Errorf("Apply(%d, identity) = %d, want %d", v, got, v)
		}

		r := v
		for k := 0; k < 4; k++ {
			r = table.Apply(r, TransformRotate)
		}
		if r != v {
			t.Errorf("four rotations of %d = %d, want %d", v, r, v)
		}

		if got := table.Apply(table.Apply(v, TransformReflect), TransformReflect); got != v {
			t.Errorf("double reflection of %d = %d, want %d", v, got, v)
		}

		if got, want := table.Apply(v, TransformHalfTurn), table.Apply(table.Apply(v, TransformRotate), TransformRotate); got != want {
			t.Errorf("Apply(%d, half turn) = %d, want %d", v, got, want)
		}
	}
}

func TestActionTableStaysInTile(t *testing.T) {
	table := ActionTable(nil).appendTile(SymmetryX, 0).appendTile(SymmetryL, 1)

	if table[0] != (ActionRow{}) {
		t.Errorf("X row = %v, want all zeros", table[0])
	}
	for v := 1; v < 5; v++ {
		for k, u := range table[v] {
			if u < 1 || u > 4 {
				t.Errorf("table[%d][%d] = %d, outside the L tile", v, k, u)
			}
		}
	}
}
