package heatmap

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageContext rasterizes paint calls into an in-memory RGBA image.
// Coordinates arriving from the renderer are logical pixels; scale is
// the device-pixel ratio applied at rasterization time.
type ImageContext struct {
	img   *image.RGBA
	scale float64
	face  font.Face
}

// NewImageContext allocates a surface of width×height logical pixels
// at the given pixel-density scale (scale < 1 is treated as 1).
func NewImageContext(width, height int, scale float64) *ImageContext {
	if scale < 1 {
		scale = 1
	}
	return &ImageContext{
		img:   image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale))),
		scale: scale,
		face:  basicfont.Face7x13,
	}
}

// Image exposes the backing raster.
func (c *ImageContext) Image() *image.RGBA { return c.img }

// EncodePNG writes the surface as PNG.
func (c *ImageContext) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

func (c *ImageContext) Clear(width, height float64, col Color) {
	c.fillSpan(0, 0, width, height, col.WithAlpha(1))
}

func (c *ImageContext) FillRect(x, y, w, h float64, col Color) {
	c.fillSpan(x, y, w, h, col)
}

func (c *ImageContext) FillCircle(cx, cy, r float64, col Color) {
	x0 := int(math.Floor((cx - r) * c.scale))
	x1 := int(math.Ceil((cx + r) * c.scale))
	y0 := int(math.Floor((cy - r) * c.scale))
	y1 := int(math.Ceil((cy + r) * c.scale))
	rs := r * c.scale
	pcx := cx * c.scale
	pcy := cy * c.scale
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			dx := float64(px) + 0.5 - pcx
			dy := float64(py) + 0.5 - pcy
			if dx*dx+dy*dy <= rs*rs {
				c.blend(px, py, col)
			}
		}
	}
}

func (c *ImageContext) DashedHLine(x1, x2, y float64, col Color) {
	const dash = 4.0
	py := int(y * c.scale)
	on := true
	for x := x1; x < x2; x += dash {
		if on {
			end := math.Min(x+dash, x2)
			for px := int(x * c.scale); px < int(end*c.scale); px++ {
				c.blend(px, py, col)
			}
		}
		on = !on
	}
}

func (c *ImageContext) Text(s string, x, y float64, align Align, col Color) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(toNRGBA(col)),
		Face: c.face,
	}
	width := d.MeasureString(s)
	px := fixed.I(int(x * c.scale))
	switch align {
	case AlignRight:
		px -= width
	case AlignCenter:
		px -= width / 2
	}
	d.Dot = fixed.Point26_6{X: px, Y: fixed.I(int(y * c.scale))}
	d.DrawString(s)
}

func (c *ImageContext) fillSpan(x, y, w, h float64, col Color) {
	x0 := int(x * c.scale)
	y0 := int(y * c.scale)
	x1 := int((x + w) * c.scale)
	y1 := int((y + h) * c.scale)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			c.blend(px, py, col)
		}
	}
}

// blend paints src-over at one device pixel.
func (c *ImageContext) blend(px, py int, col Color) {
	if !(image.Point{X: px, Y: py}).In(c.img.Rect) {
		return
	}
	a := col.A
	if a <= 0 {
		return
	}
	if a > 1 {
		a = 1
	}
	i := c.img.PixOffset(px, py)
	pix := c.img.Pix[i : i+4 : i+4]
	pix[0] = mix(col.R, pix[0], a)
	pix[1] = mix(col.G, pix[1], a)
	pix[2] = mix(col.B, pix[2], a)
	pix[3] = 0xff
}

func mix(src, dst uint8, a float64) uint8 {
	return uint8(float64(src)*a + float64(dst)*(1-a) + 0.5)
}

func toNRGBA(c Color) color.NRGBA {
	a := math.Max(0, math.Min(c.A, 1))
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a*255 + 0.5)}
}
