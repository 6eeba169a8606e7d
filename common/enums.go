// Package common keeps enumerations shared by configuration and processing
// packages, so that neither has to import the other.
package common

//go:generate go tool go-enum --marshal --names --values

// How @font-face assets are fetched.
// ENUM(sync, async)
type FontMode int

// Which style resolver backs a capture.
// ENUM(static, browser)
type HostKind int

// Page orientation of the paginated export.
// ENUM(auto, landscape, portrait)
type Orientation int

// Landscape reports whether page with given dimensions should be landscape.
func (o Orientation) Landscape(width, height float64) bool {
	switch o {
	case OrientationLandscape:
		return true
	case OrientationPortrait:
		return false
	default:
		return width >= height
	}
}
