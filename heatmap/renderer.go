package heatmap

import (
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bookviz-go/market"
)

// Margins reserve space around the cell grid for axis labels.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Render palette. Bids paint teal below mid, asks red above, the mid
// row itself is faint white. Trade markers: white for buy aggressor,
// yellow otherwise.
var (
	colorBackground = Color{R: 0x14, G: 0x14, B: 0x14, A: 1}
	colorBid        = Color{R: 38, G: 166, B: 154}
	colorAsk        = Color{R: 239, G: 83, B: 80}
	colorMidRow     = Color{R: 255, G: 255, B: 255}
	colorMidLine    = Color{R: 255, G: 255, B: 255, A: 0.4}
	colorBuyTrade   = Color{R: 255, G: 255, B: 255, A: 1}
	colorSellTrade  = Color{R: 255, G: 235, B: 59, A: 1}
	colorLabel      = Color{R: 0x99, G: 0x99, B: 0x99, A: 1}
)

// Renderer paints a Grid onto a PaintContext. Safe to call repeatedly;
// every call fully repaints from the dimensions passed in, so resizes
// just render again.
type Renderer struct {
	Margin Margins
	log    *zap.Logger
}

// NewRenderer returns a renderer with the standard label margins.
func NewRenderer(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		Margin: Margins{Top: 20, Right: 20, Bottom: 30, Left: 50},
		log:    log,
	}
}

// Render paints the grid onto pc at the given logical size. A nil
// context, an empty grid, or a degenerate interior is a no-op.
func (r *Renderer) Render(pc PaintContext, g *Grid, width, height float64) {
	if pc == nil || g == nil {
		return
	}
	nCols := len(g.Timestamps)
	nRows := len(g.Offsets)
	if nCols == 0 || nRows == 0 {
		return
	}

	m := r.Margin
	w := width - m.Left - m.Right
	h := height - m.Top - m.Bottom
	if w <= 0 || h <= 0 {
		return
	}
	cellW := w / float64(nCols)
	cellH := h / float64(nRows)
	maxDepth := g.MaxDepth()

	pc.Clear(width, height, colorBackground)

	cells := 0
	for row := 0; row < nRows; row++ {
		off := g.Offsets[row]
		for col := 0; col < nCols; col++ {
			val := g.At(row, col)
			if val == 0 {
				continue
			}
			intensity := math.Min(val/maxDepth, 1)
			alpha := 0.15 + intensity*0.85
			var c Color
			switch {
			case off == 0:
				c = colorMidRow.WithAlpha(alpha * 0.3)
			case off < 0:
				c = colorBid.WithAlpha(alpha)
			default:
				c = colorAsk.WithAlpha(alpha)
			}
			// ceil so independently rounded neighbors leave no gaps
			pc.FillRect(
				m.Left+float64(col)*cellW,
				m.Top+float64(row)*cellH,
				math.Ceil(cellW),
				math.Ceil(cellH),
				c,
			)
			cells++
		}
	}

	if midRow := g.RowForOffset(0); midRow >= 0 {
		y := m.Top + float64(midRow)*cellH + cellH/2
		pc.DashedHLine(m.Left, m.Left+w, y, colorMidLine)
	}

	drawn := 0
	for _, t := range g.Trades {
		row := g.RowForOffset(t.PriceOffset)
		if t.SampleIdx < 0 || t.SampleIdx >= nCols || row < 0 {
			continue
		}
		cx := m.Left + (float64(t.SampleIdx)+0.5)*cellW
		cy := m.Top + (float64(row)+0.5)*cellH
		radius := math.Min(math.Max(math.Sqrt(t.Size)*0.3, 2), 6)
		c := colorSellTrade
		if t.Side == market.SideBid {
			c = colorBuyTrade
		}
		pc.FillCircle(cx, cy, radius, c)
		drawn++
	}

	labelStep := nRows / 15
	if labelStep < 1 {
		labelStep = 1
	}
	for row := 0; row < nRows; row += labelStep {
		y := m.Top + (float64(row)+0.5)*cellH + 3
		pc.Text(strconv.Itoa(g.Offsets[row]), m.Left-4, y, AlignRight, colorLabel)
	}

	tStep := nCols / 10
	if tStep < 1 {
		tStep = 1
	}
	for col := 0; col < nCols; col += tStep {
		x := m.Left + (float64(col)+0.5)*cellW
		label := time.UnixMilli(g.Timestamps[col]).UTC().Format("15:04:05")
		pc.Text(label, x, height-8, AlignCenter, colorLabel)
	}

	r.log.Debug("heatmap painted",
		zap.Int("rows", nRows),
		zap.Int("cols", nCols),
		zap.Int("cells", cells),
		zap.Int("trades", drawn),
	)
}
