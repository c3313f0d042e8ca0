package wfc

// Symmetry classifies how many distinct orientations a tile has and how
// those orientations map onto each other under rotation and reflection.
type Symmetry int

const (
	SymmetryX        Symmetry = iota // fully symmetric, 1 orientation
	SymmetryI                        // straight line, 2 orientations
	SymmetryL                        // corner, 4 orientations
	SymmetryT                        // T junction, 4 orientations
	SymmetryDiagonal                 // mirrored across a diagonal, 2 orientations
	SymmetryF                        // asymmetric, 8 orientations
)

// symmetryGroup holds the orientation count plus the rotation and
// reflection permutations over local orientation indices.
type symmetryGroup struct {
	cardinality int
	rotate      [8]int
	reflect     [8]int
}

var symmetryGroups = [...]symmetryGroup{
	SymmetryX:        {cardinality: 1, rotate: [8]int{0}, reflect: [8]int{0}},
	SymmetryI:        {cardinality: 2, rotate: [8]int{1, 0}, reflect: [8]int{0, 1}},
	SymmetryL:        {cardinality: 4, rotate: [8]int{1, 2, 3, 0}, reflect: [8]int{1, 0, 3, 2}},
	SymmetryT:        {cardinality: 4, rotate: [8]int{1, 2, 3, 0}, reflect: [8]int{0, 3, 2, 1}},
	SymmetryDiagonal: {cardinality: 2, rotate: [8]int{1, 0}, reflect: [8]int{1, 0}},
	SymmetryF:        {cardinality: 8, rotate: [8]int{1, 2, 3, 0, 7, 4, 5, 6}, reflect: [8]int{4, 5, 6, 7, 0, 1, 2, 3}},
}

// ParseSymmetry converts a tileset symmetry label to a Symmetry.
// Unrecognized labels, including the empty string, map to SymmetryX.
func ParseSymmetry(label string) Symmetry {
	s, _ := LookupSymmetry(label)
	return s
}

// LookupSymmetry is like ParseSymmetry but also reports whether the label
// was recognized.
func LookupSymmetry(label string) (Symmetry, bool) {
	switch label {
	case "X", "":
		return SymmetryX, true
	case "I":
		return SymmetryI, true
	case "L":
		return SymmetryL, true
	case "T":
		return SymmetryT, true
	case "\\":
		return SymmetryDiagonal, true
	case "F":
		return SymmetryF, true
	default:
		return SymmetryX, false
	}
}

// String returns the tileset label for the symmetry
func (s Symmetry) String() string {
	switch s {
	case SymmetryX:
		return "X"
	case SymmetryI:
		return "I"
	case SymmetryL:
		return "L"
	case SymmetryT:
		return "T"
	case SymmetryDiagonal:
		return "\\"
	case SymmetryF:
		return "F"
	default:
		return "unknown"
	}
}

func (s Symmetry) group() symmetryGroup {
	if s < 0 || int(s) >= len(symmetryGroups) {
		return symmetryGroups[SymmetryX]
	}
	return symmetryGroups[s]
}

// Cardinality returns the number of distinct orientations.
func (s Symmetry) Cardinality() int {
	return s.group().cardinality
}

// Rotate returns the orientation reached by a 90 degree counter-clockwise
// rotation of orientation i.
func (s Symmetry) Rotate(i int) int {
	return s.group().rotate[i]
}

// Reflect returns the orientation reached by mirroring orientation i.
func (s Symmetry) Reflect(i int) int {
	return s.group().reflect[i]
}
