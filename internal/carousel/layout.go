package carousel

// Role is the layout role an item plays given its offset from the focus.
type Role int

const (
	Hidden Role = iota
	Left
	Center
	Right
)

func (r Role) String() string {
	switch r {
	case Left:
		return "left"
	case Center:
		return "center"
	case Right:
		return "right"
	default:
		return "hidden"
	}
}

// RoleOf maps an offset to its role.
func RoleOf(offset int) Role {
	switch offset {
	case -1:
		return Left
	case 0:
		return Center
	case 1:
		return Right
	default:
		return Hidden
	}
}

// Visible reports whether the role is shown to the user.
func (r Role) Visible() bool { return r != Hidden }

// Placement is the discrete visual state of one item. Animation between
// placements is left to the renderer.
type Placement struct {
	TranslateX int
	Scale      float64
	Opacity    float64
	ZIndex     int
	Width      int
	Height     int
}

const (
	neighbourShift = 220

	centerWidth  = 280
	centerHeight = 200
	sideSize     = 140
)

// PlacementFor returns the placement of an item at offset.
func PlacementFor(offset int) Placement {
	switch RoleOf(offset) {
	case Center:
		return Placement{Scale: 1, Opacity: 1, ZIndex: 2, Width: centerWidth, Height: centerHeight}
	case Left, Right:
		return Placement{
			TranslateX: offset * neighbourShift,
			Scale:      0.7,
			Opacity:    0.6,
			ZIndex:     1,
			Width:      sideSize,
			Height:     sideSize,
		}
	default:
		return Placement{Scale: 0.5, Opacity: 0, ZIndex: 0, Width: sideSize, Height: sideSize}
	}
}
