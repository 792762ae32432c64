package workflow

import "github.com/Lllllllleong/pdfmanager/internal/models"

// Rect is an axis aligned rectangle in PDF user space.
type Rect struct {
	X, Y, W, H float64
}

// Array returns the rectangle as [llx lly urx ury].
func (r Rect) Array() [4]float64 {
	return [4]float64{r.X, r.Y, r.X + r.W, r.Y + r.H}
}

// centered places a w by h box in the middle of page.
func centered(page Rect, w, h float64) Rect {
	return Rect{X: page.X + (page.W-w)/2, Y: page.Y + (page.H-h)/2, W: w, H: h}
}

// anchored places a w by h box at pos, margin points from the page edges.
func anchored(page Rect, w, h, margin float64, pos models.NumberPosition) Rect {
	left := page.X + margin
	center := page.X + (page.W-w)/2
	right := page.X + page.W - w - margin
	top := page.Y + page.H - h - margin
	bottom := page.Y + margin

	r := Rect{W: w, H: h}
	switch pos {
	case models.TopLeft:
		r.X, r.Y = left, top
	case models.TopCenter:
		r.X, r.Y = center, top
	case models.TopRight:
		r.X, r.Y = right, top
	case models.BottomLeft:
		r.X, r.Y = left, bottom
	case models.BottomRight:
		r.X, r.Y = right, bottom
	default:
		r.X, r.Y = center, bottom
	}
	return r
}
