package toolpath

// HeightFunc maps a position and the length travelled along the current
// segment to a Z height, z = f(x, y, l).
type HeightFunc func(x, y, l float64) (float64, error)
