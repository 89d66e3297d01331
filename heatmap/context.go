package heatmap

// Color is an RGB triple with a float alpha, matching the rgba(...)
// form the render constants are specified in.
type Color struct {
	R, G, B uint8
	A       float64
}

// WithAlpha returns the color with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// Align selects horizontal text anchoring.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// PaintContext is the drawing surface the renderer paints through. All
// coordinates are logical pixels; implementations own device scaling.
// Keeping the renderer behind this interface lets tests record paint
// calls instead of rasterizing.
type PaintContext interface {
	// Clear repaints the whole surface with the background color.
	Clear(width, height float64, c Color)
	FillRect(x, y, w, h float64, c Color)
	FillCircle(cx, cy, r float64, c Color)
	// DashedHLine strokes a horizontal dashed line from x1 to x2 at y.
	DashedHLine(x1, x2, y float64, c Color)
	Text(s string, x, y float64, align Align, c Color)
}
