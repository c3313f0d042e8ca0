package wfc

import "testing"

func TestDirectionString(t *testing.T) {
	tests := []struct {
		d    Direction
		want string
	}{
		{North, "north"},
		{East, "east"},
		{South, "south"},
		{West, "west"},
		{Direction(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.d.String(); got != tc.want {
			t.Errorf("Direction(%d).String() = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestDirectionOpposite(t *testing.T) {
	tests := []struct {
		d    Direction
		want Direction
	}{
		{North, South},
		{South, North},
		{East, West},
		{West, East},
	}

	for _, tc := range tests {
		if got := tc.d.Opposite(); got != tc.want {
			t.Errorf("%s.Opposite() = %s, want %s", tc.d, got, tc.want)
		}
	}
}

func TestDirectionDelta(t *testing.T) {
	for _, d := range AllDirections() {
		dx, dy := d.Delta()
		ox, oy := d.Opposite().Delta()
		if dx+ox != 0 || dy+oy != 0 {
			t.Errorf("%s.Delta() = (%d, %d) does not cancel %s (%d, %d)", d, dx, dy, d.Opposite(), ox, oy)
		}
		if dx*dx+dy*dy != 1 {
			t.Errorf("%s.Delta() = (%d, %d), want a unit step", d, dx, dy)
		}
	}

	if dx, dy := South.Delta(); dx != 0 || dy != 1 {
		t.Errorf("South.Delta() = (%d, %d), want (0, 1)", dx, dy)
	}
}
