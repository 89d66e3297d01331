package heatmap

import (
	"math"
	"reflect"
	"testing"

	"bookviz-go/market"
)

// recorder captures paint calls instead of rasterizing.
type recorder struct {
	clears  int
	rects   []rectOp
	circles []circleOp
	lines   []lineOp
	texts   []textOp
}

type rectOp struct {
	x, y, w, h float64
	c          Color
}

type circleOp struct {
	cx, cy, r float64
	c         Color
}

type lineOp struct {
	x1, x2, y float64
}

type textOp struct {
	s     string
	x, y  float64
	align Align
}

func (r *recorder) Clear(w, h float64, c Color) { r.clears++ }
func (r *recorder) FillRect(x, y, w, h float64, c Color) {
	r.rects = append(r.rects, rectOp{x, y, w, h, c})
}
func (r *recorder) FillCircle(cx, cy, rad float64, c Color) {
	r.circles = append(r.circles, circleOp{cx, cy, rad, c})
}
func (r *recorder) DashedHLine(x1, x2, y float64, c Color) {
	r.lines = append(r.lines, lineOp{x1, x2, y})
}
func (r *recorder) Text(s string, x, y float64, align Align, c Color) {
	r.texts = append(r.texts, textOp{s, x, y, align})
}

func sampleGrid() *Grid {
	return &Grid{
		Timestamps: []int64{1000, 2000},
		Offsets:    []int{-2, -1, 0, 1, 2},
		Depth: [][]float64{
			{5, 0},
			{10, 3},
			{0, 0},
			{7, 1},
			{0, 4},
		},
		Trades: []Trade{
			{SampleIdx: 1, PriceOffset: 1, Side: market.SideBid, Size: 9},
		},
	}
}

func TestRenderEmptyGridIsNoop(t *testing.T) {
	r := NewRenderer(nil)
	for _, g := range []*Grid{
		nil,
		{},
		{Timestamps: []int64{1}},
		{Offsets: []int{0}},
	} {
		rec := &recorder{}
		r.Render(rec, g, 800, 500)
		if rec.clears != 0 || len(rec.rects) != 0 || len(rec.texts) != 0 {
			t.Errorf("grid %+v: expected untouched surface, got %d clears %d rects", g, rec.clears, len(rec.rects))
		}
	}
	// nil context must not panic
	r.Render(nil, sampleGrid(), 800, 500)
}

func TestRenderAllZeroDepthPaintsBackgroundOnly(t *testing.T) {
	g := &Grid{
		Timestamps: []int64{1, 2, 3},
		Offsets:    []int{-1, 0, 1},
		Depth:      [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
	}
	rec := &recorder{}
	NewRenderer(nil).Render(rec, g, 800, 500)
	if rec.clears != 1 {
		t.Fatalf("clears = %d, want 1", rec.clears)
	}
	if len(rec.rects) != 0 {
		t.Fatalf("fill ops = %d, want 0 for all-zero depth", len(rec.rects))
	}
}

func TestRenderReferenceGrid(t *testing.T) {
	g := sampleGrid()
	rec := &recorder{}
	NewRenderer(nil).Render(rec, g, 800, 500)

	// nonzero cells: (0,0) (1,0) (1,1) (3,0) (3,1) (4,1)
	if len(rec.rects) != 6 {
		t.Fatalf("cell fills = %d, want 6", len(rec.rects))
	}

	// maxDepth = 10, so depth[1][0] = 10 saturates: alpha = 0.15+0.85 = 1.0
	var saturated *rectOp
	for i := range rec.rects {
		if rec.rects[i].c.A == 1.0 {
			saturated = &rec.rects[i]
		}
	}
	if saturated == nil {
		t.Fatal("no cell reached alpha 1.0")
	}
	if saturated.c.R != colorBid.R || saturated.c.G != colorBid.G || saturated.c.B != colorBid.B {
		t.Errorf("saturated cell painted %+v, want bid hue", saturated.c)
	}

	// offset 0 row is all zeros, so no faint-white cells at all
	for _, op := range rec.rects {
		if op.c.R == 255 && op.c.G == 255 && op.c.B == 255 {
			t.Errorf("mid row cell painted despite zero depth: %+v", op)
		}
	}

	// mid line exists because a zero-offset row exists
	if len(rec.lines) != 1 {
		t.Fatalf("mid lines = %d, want 1", len(rec.lines))
	}

	// one trade marker at column 1, row 3, radius clamp(sqrt(9)*0.3, 2, 6) = 2
	if len(rec.circles) != 1 {
		t.Fatalf("trade markers = %d, want 1", len(rec.circles))
	}
	c := rec.circles[0]
	if c.r != 2 {
		t.Errorf("marker radius = %v, want 2", c.r)
	}
	m := NewRenderer(nil).Margin
	cellW := (800 - m.Left - m.Right) / 2
	cellH := (500 - m.Top - m.Bottom) / 5
	wantCx := m.Left + 1.5*cellW
	wantCy := m.Top + 3.5*cellH
	if math.Abs(c.cx-wantCx) > 1e-9 || math.Abs(c.cy-wantCy) > 1e-9 {
		t.Errorf("marker at (%v,%v), want (%v,%v)", c.cx, c.cy, wantCx, wantCy)
	}
	if c.c != colorBuyTrade {
		t.Errorf("marker color %+v, want buy white", c.c)
	}
}

func TestRenderDropsUnresolvableTrades(t *testing.T) {
	g := sampleGrid()
	g.Trades = []Trade{
		{SampleIdx: -1, PriceOffset: 1, Side: market.SideBid, Size: 4},
		{SampleIdx: 2, PriceOffset: 1, Side: market.SideBid, Size: 4},  // col out of range
		{SampleIdx: 0, PriceOffset: 99, Side: market.SideAsk, Size: 4}, // no matching row
	}
	rec := &recorder{}
	NewRenderer(nil).Render(rec, g, 800, 500)
	if len(rec.circles) != 0 {
		t.Fatalf("markers = %d, want 0 for unresolvable trades", len(rec.circles))
	}
	if len(rec.rects) == 0 {
		t.Fatal("cell rendering must survive dropped trades")
	}
}

func TestRenderAlphaRamp(t *testing.T) {
	g := &Grid{
		Timestamps: []int64{1},
		Offsets:    []int{1},
		Depth:      [][]float64{{25}},
	}
	rec := &recorder{}
	NewRenderer(nil).Render(rec, g, 200, 200)
	if len(rec.rects) != 1 {
		t.Fatalf("fills = %d, want 1", len(rec.rects))
	}
	// single nonzero cell is its own max: intensity 1
	if rec.rects[0].c.A != 1.0 {
		t.Errorf("alpha = %v, want 1.0", rec.rects[0].c.A)
	}
	if rec.rects[0].c.R != colorAsk.R {
		t.Errorf("positive offset should paint ask hue, got %+v", rec.rects[0].c)
	}
}

func TestRenderIdempotent(t *testing.T) {
	g := sampleGrid()
	r := NewRenderer(nil)
	a, b := &recorder{}, &recorder{}
	r.Render(a, g, 800, 500)
	r.Render(b, g, 800, 500)
	if !reflect.DeepEqual(a, b) {
		t.Error("two renders of identical input produced different paint calls")
	}
}

func TestRenderLabelSubsampling(t *testing.T) {
	nRows, nCols := 45, 40
	g := &Grid{
		Timestamps: make([]int64, nCols),
		Offsets:    make([]int, nRows),
		Depth:      make([][]float64, nRows),
	}
	for i := range g.Offsets {
		g.Offsets[i] = i - nRows/2
	}
	for i := range g.Timestamps {
		g.Timestamps[i] = int64(i) * 1000
	}
	rec := &recorder{}
	NewRenderer(nil).Render(rec, g, 800, 500)

	// row step = 45/15 = 3 -> 15 labels; col step = 40/10 = 4 -> 10 labels
	var yLabels, xLabels int
	for _, op := range rec.texts {
		if op.align == AlignRight {
			yLabels++
		} else {
			xLabels++
		}
	}
	if yLabels != 15 {
		t.Errorf("y labels = %d, want 15", yLabels)
	}
	if xLabels != 10 {
		t.Errorf("x labels = %d, want 10", xLabels)
	}
}

func TestRenderResizeRecomputesLayout(t *testing.T) {
	g := sampleGrid()
	r := NewRenderer(nil)
	small, large := &recorder{}, &recorder{}
	r.Render(small, g, 400, 300)
	r.Render(large, g, 1200, 800)
	if small.rects[0].w == large.rects[0].w {
		t.Error("cell width unchanged after resize; layout must not be cached")
	}
}
