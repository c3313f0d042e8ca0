package wfc

// Transform indexes the 8 elements of the square's symmetry group as laid
// out in an action row: 0-3 are rotations by 0, 90, 180 and 270 degrees,
// 4-7 are the reflection composed with those rotations.
type Transform int

const (
	TransformIdentity Transform = 0
	TransformRotate   Transform = 1
	TransformHalfTurn Transform = 2
	TransformReflect  Transform = 4
	transformCount              = 8
)

// ActionRow lists the variant produced by each Transform.
type ActionRow [transformCount]int

// ActionTable maps (variant, transform) to the resulting variant.
// It has one row for every variant of every tile.
type ActionTable []ActionRow

// actionRow computes the row for local orientation i of a tile whose
// first variant is base.
func actionRow(sym Symmetry, base, i int) ActionRow {
	var row ActionRow
	o := i
	for k := 0; k < 4; k++ {
		row[k] = base + o
		row[4+k] = base + sym.Reflect(o)
		o = sym.Rotate(o)
	}
	return row
}

// appendTile adds the rows for every orientation of a tile starting at
// variant base.
func (a ActionTable) appendTile(sym Symmetry, base int) ActionTable {
	for i := 0; i < sym.Cardinality(); i++ {
		a = append(a, actionRow(sym, base, i))
	}
	return a
}

// Apply returns the variant that results from applying transform k to v.
func (a ActionTable) Apply(v int, k Transform) int {
	return a[v][k]
}
