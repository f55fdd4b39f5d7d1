package glrender

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms1"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gimplicit"
)

// This file holds scalar float32 models of the per-pixel shader math in
// glbuild/glsllib. They exercise the classifier, refinement, jump flood and
// composite logic without a GPU. Texture sampling is modeled as exact
// evaluation at texel centers, which is what nearest filtering of a texture
// written at texel centers yields.

type curve struct {
	f    func(x, y float32) float32
	grad func(x, y float32) ms2.Vec
}

func (c curve) at(p ms2.Vec) float32    { return c.f(p.X, p.Y) }
func (c curve) gradAt(p ms2.Vec) ms2.Vec { return c.grad(p.X, p.Y) }
func unitVec(v ms2.Vec) ms2.Vec          { return ms2.Scale(1/ms2.Norm(v), v) }
func maxRes(res ms2.Vec) float32         { return math32.Max(res.X, res.Y) }
func warpOf(res ms2.Vec) ms2.Vec         { return ms2.Scale(1/maxRes(res), res) }

func pixelOffset(q, res ms2.Vec, scale float32) ms2.Vec {
	return ms2.Scale(scale, ms2.DivElem(q, res))
}

var qKernel = [4]ms2.Vec{
	{X: -0.5, Y: 0.5}, {X: 0.5, Y: 0.5},
	{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5},
}

// jfaKernel is ordered as the shader's: top row first.
var jfaKernel = [9][2]int{
	{-1, 1}, {0, 1}, {1, 1},
	{-1, 0}, {0, 0}, {1, 0},
	{-1, -1}, {0, -1}, {1, -1},
}

type segment struct{ a, b ms2.Vec }

var undefinedSegment = segment{
	a: ms2.Vec{X: math32.Inf(-1), Y: math32.Inf(-1)},
	b: ms2.Vec{X: math32.Inf(-1), Y: math32.Inf(-1)},
}

func (s segment) defined() bool { return s != undefinedSegment }

// segmentDistance models line_segment.
func segmentDistance(p, a, b ms2.Vec) float32 {
	ba := ms2.Sub(b, a)
	pa := ms2.Sub(p, a)
	h := ms1.Clamp(ms2.Dot(pa, ba)/ms2.Dot(ba, ba), 0, 1)
	return ms2.Norm(ms2.Sub(pa, ms2.Scale(h, ba)))
}

// signChange models the decision of detectSignChange given the four corner
// samples ordered as qKernel and the analytic gradient at the cell center.
func signChange(corners [4]float32, analytic ms2.Vec) bool {
	var sumAbs, sum float32
	for _, c := range corners {
		if math32.IsNaN(c) {
			return false
		}
		s := math32.Copysign(1, c)
		if c == 0 {
			s = 0
		}
		sumAbs += math32.Abs(s)
		sum += s
	}
	if sumAbs < 4 {
		return true
	} else if math32.Abs(sum) == 4 {
		return false
	}
	approx := ms2.Vec{
		X: (corners[1]-corners[0])*0.5 + (corners[3]-corners[2])*0.5,
		Y: (corners[0]-corners[2])*0.5 + (corners[1]-corners[3])*0.5,
	}
	return ms2.Dot(unitVec(analytic), unitVec(approx)) > 0.8
}

func mixColor(from, top [4]float32) [4]float32 {
	a := 1 - (1-from[3])*(1-top[3])
	if a <= 0 {
		return [4]float32{}
	}
	var out [4]float32
	for i := 0; i < 3; i++ {
		out[i] = (from[i]*from[3]*(1-top[3]) + top[i]*top[3]) / a
	}
	out[3] = a
	return out
}

// lineAlpha is the coverage complement of a line of lineWidth pixels at distPx pixels.
func lineAlpha(distPx, lineWidth float32) float32 {
	return ms1.SmoothStep(0, 1, ms1.Clamp(distPx-lineWidth*0.5+0.5, 0, 1))
}

// grid models a width x height render target mapped onto view.
type grid struct {
	view gimplicit.View
	w, h int
}

func (g grid) res() ms2.Vec { return ms2.Vec{X: float32(g.w), Y: float32(g.h)} }

func (g grid) texCoord(i, j int) ms2.Vec {
	return ms2.Vec{X: (float32(i) + 0.5) / float32(g.w), Y: (float32(j) + 0.5) / float32(g.h)}
}

func (g grid) detectSignChange(c curve, tex ms2.Vec) bool {
	var corners [4]float32
	for n, q := range qKernel {
		corners[n] = c.at(g.view.MathCoord(ms2.Add(tex, pixelOffset(q, g.res(), 1))))
	}
	return signChange(corners, c.gradAt(g.view.MathCoord(tex)))
}

func (g grid) quadTreeSolve(c curve, seed ms2.Vec, scale float32) ms2.Vec {
	closest := math32.Inf(1)
	closestN := 0
	for n, q := range qKernel {
		v := math32.Abs(c.at(g.view.MathCoord(ms2.Add(seed, pixelOffset(q, g.res(), scale)))))
		if v < closest {
			closest = v
			closestN = n
		}
	}
	return ms2.Add(seed, pixelOffset(qKernel[closestN], g.res(), scale))
}

func (g grid) refine(c curve, tex ms2.Vec) ms2.Vec {
	tex = g.quadTreeSolve(c, tex, 1)
	tex = g.quadTreeSolve(c, tex, 0.5)
	return g.quadTreeSolve(c, tex, 0.25)
}

// initPixel models the init pass.
func (g grid) initPixel(c curve, i, j int) segment {
	tex := g.texCoord(i, j)
	if !g.detectSignChange(c, tex) {
		return undefinedSegment
	}
	tex = g.refine(c, tex)
	d := c.gradAt(g.view.MathCoord(tex))
	d = ms2.DivElem(unitVec(ms2.Vec{X: -d.Y, Y: d.X}), g.res())
	return segment{a: ms2.Sub(tex, d), b: ms2.Add(tex, d)}
}

// step models one jump flood step with clamp to edge nearest sampling.
func (g grid) step(dst, src []segment, stepWidth int) {
	warp := warpOf(g.res())
	for j := 0; j < g.h; j++ {
		for i := 0; i < g.w; i++ {
			p := ms2.MulElem(g.texCoord(i, j), warp)
			best := math32.Inf(1)
			bestSeg := undefinedSegment
			for _, k := range jfaKernel {
				si := min(max(i+k[0]*stepWidth, 0), g.w-1)
				sj := min(max(j+k[1]*stepWidth, 0), g.h-1)
				seed := src[sj*g.w+si]
				if !seed.defined() {
					continue
				}
				dist := segmentDistance(p, ms2.MulElem(seed.a, warp), ms2.MulElem(seed.b, warp))
				if dist < best {
					best = dist
					bestSeg = seed
				}
			}
			dst[j*g.w+i] = bestSeg
		}
	}
}

// flood models the init pass followed by every jump flood step.
func (g grid) flood(c curve) []segment {
	ping := make([]segment, g.w*g.h)
	pong := make([]segment, g.w*g.h)
	for j := 0; j < g.h; j++ {
		for i := 0; i < g.w; i++ {
			ping[j*g.w+i] = g.initPixel(c, i, j)
		}
	}
	n := StepCount(g.w, g.h)
	for i := 0; i < n; i++ {
		g.step(pong, ping, StepWidth(i, n))
		ping, pong = pong, ping
	}
	return ping
}

type chunkColors struct {
	fill      bool
	color     [4]float32
	lineColor [4]float32
	lineWidth float32
}

// compositePixel models the composite pass for a pixel with cached value f and flooded seed.
func (g grid) compositePixel(cc chunkColors, tex ms2.Vec, f float32, seed segment) [4]float32 {
	var out [4]float32
	if cc.fill && f > 0 {
		out = mixColor(out, cc.color)
	}
	if cc.lineWidth <= 0 || !seed.defined() {
		return out
	}
	res := g.res()
	warp := warpOf(res)
	dist := segmentDistance(ms2.MulElem(tex, warp), ms2.MulElem(seed.a, warp), ms2.MulElem(seed.b, warp)) * maxRes(res)
	alpha := lineAlpha(dist, cc.lineWidth)
	lc := cc.lineColor
	lc[3] *= 1 - alpha
	return mixColor(out, lc)
}

func fastFillPixel(color [4]float32, f float32) [4]float32 {
	var out [4]float32
	if f > 0 {
		out = mixColor(out, color)
	}
	return out
}

var circle = curve{
	// The inequality x²+y²<1 as compiled: positive inside.
	f:    func(x, y float32) float32 { return 1 - x*x - y*y },
	grad: func(x, y float32) ms2.Vec { return ms2.Vec{X: -2 * x, Y: -2 * y} },
}

func TestSignChangeTruthTable(t *testing.T) {
	nan := math32.NaN()
	var tests = []struct {
		name     string
		corners  [4]float32
		analytic ms2.Vec
		want     bool
	}{
		{"all positive", [4]float32{1, 2, 3, 4}, ms2.Vec{X: 1}, false},
		{"all negative", [4]float32{-1, -2, -3, -4}, ms2.Vec{X: 1}, false},
		{"direct sign change", [4]float32{1, -1, 1, 1}, ms2.Vec{X: -1, Y: -1}, true},
		{"NaN with sign change", [4]float32{1, -1, nan, 1}, ms2.Vec{X: -1, Y: -1}, false},
		{"NaN with zero", [4]float32{0, nan, 1, 1}, ms2.Vec{X: 1}, false},
		{"exact zero", [4]float32{0, 1, 2, 3}, ms2.Vec{}, true},
		{"negative zero", [4]float32{math32.Copysign(0, -1), -1, -1, -1}, ms2.Vec{}, true},
		// f=x sampled at (±0.5, ±0.5).
		{"line crossing", [4]float32{-0.5, 0.5, -0.5, 0.5}, ms2.Vec{X: 1}, true},
		// f=1/x: signs change but the analytic gradient opposes the finite difference.
		{"asymptote", [4]float32{-2, 2, -2, 2}, ms2.Vec{X: -4}, false},
		{"zero analytic gradient", [4]float32{-0.5, 0.5, -0.5, 0.5}, ms2.Vec{}, false},
		{"perpendicular gradient", [4]float32{-0.5, 0.5, -0.5, 0.5}, ms2.Vec{Y: 1}, false},
	}
	for _, test := range tests {
		got := signChange(test.corners, test.analytic)
		if got != test.want {
			t.Errorf("%s: signChange(%v, %v)=%v, want %v", test.name, test.corners, test.analytic, got, test.want)
		}
	}
}

func TestClassifierRejectsAsymptote(t *testing.T) {
	// 1/x has no zeros; its sign flip at x=0 must never seed an outline.
	hyperbola := curve{
		f:    func(x, y float32) float32 { return 1 / x },
		grad: func(x, y float32) ms2.Vec { return ms2.Vec{X: -1 / (x * x)} },
	}
	g := grid{view: gimplicit.View{Corner: ms2.Vec{X: -1.03, Y: -1}, Size: ms2.Vec{X: 2, Y: 2}}, w: 64, h: 64}
	for j := 0; j < g.h; j++ {
		for i := 0; i < g.w; i++ {
			if g.detectSignChange(hyperbola, g.texCoord(i, j)) {
				t.Fatalf("pixel (%d,%d) accepted as a crossing of 1/x", i, j)
			}
		}
	}
	// The line x=0 changes sign at the same pixels and must be accepted.
	line := curve{
		f:    func(x, y float32) float32 { return x },
		grad: func(x, y float32) ms2.Vec { return ms2.Vec{X: 1} },
	}
	accepted := 0
	for i := 0; i < g.w; i++ {
		if g.detectSignChange(line, g.texCoord(i, 10)) {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("want exactly one column crossing x=0, got %d", accepted)
	}
}

func TestQuadTreeRefinementConverges(t *testing.T) {
	g := grid{view: gimplicit.View{Corner: ms2.Vec{X: -2, Y: -2}, Size: ms2.Vec{X: 4, Y: 4}}, w: 128, h: 128}
	pixel := g.view.Size.X / float32(g.w)
	// Smallest refinement offset, in math units.
	stepUnit := 0.25 * ms2.Norm(qKernel[0]) * pixel
	refined := 0
	for j := 0; j < g.h; j++ {
		for i := 0; i < g.w; i++ {
			tex := g.texCoord(i, j)
			if !g.detectSignChange(circle, tex) {
				continue
			}
			refined++
			conv := g.refine(circle, tex)
			p := g.view.MathCoord(conv)
			errConv := math32.Abs(ms2.Norm(p) - 1)
			if errConv > pixel/2 {
				t.Fatalf("pixel (%d,%d) refined %v px off the curve", i, j, errConv/pixel)
			}
			next := g.quadTreeSolve(circle, conv, 0.125)
			moved := ms2.Norm(ms2.Sub(g.view.MathCoord(next), p))
			if moved >= stepUnit {
				t.Errorf("fourth refinement moved estimate by %v, want < %v", moved, stepUnit)
			}
			if errNext := math32.Abs(ms2.Norm(g.view.MathCoord(next)) - 1); errNext > errConv+stepUnit {
				t.Errorf("fourth refinement diverged from %v to %v", errConv, errNext)
			}
		}
	}
	if refined == 0 {
		t.Fatal("no pixels classified as crossings")
	}
}

func TestStepSchedule(t *testing.T) {
	got := StepSchedule(512, 512)
	want := []int{256, 128, 64, 32, 16, 8, 4, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("want %d steps, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: got width %d, want %d", i, got[i], want[i])
		}
	}
	var tests = []struct {
		w, h, steps int
	}{
		{1, 1, 0},
		{2, 1, 1},
		{3, 3, 2},
		{513, 2, 10},
		{300, 700, 10},
		{1024, 768, 10},
		{1025, 768, 11},
	}
	for _, test := range tests {
		n := StepCount(test.w, test.h)
		if n != test.steps {
			t.Errorf("StepCount(%d,%d)=%d, want %d", test.w, test.h, n, test.steps)
		}
		want := math32.Ceil(math32.Log2(float32(max(test.w, test.h))))
		if float32(n) != want {
			t.Errorf("StepCount(%d,%d)=%d, want ceil(log2)=%v", test.w, test.h, n, want)
		}
		if n > 0 && StepWidth(n-1, n) != 1 {
			t.Errorf("last step of %d must have width 1", n)
		}
		for i := 1; i < n; i++ {
			if StepWidth(i-1, n) != 2*StepWidth(i, n) {
				t.Errorf("StepWidth(%d,%d) must halve each step", i, n)
			}
		}
	}
}

func TestFillOnlyCompositeMatchesFastFill(t *testing.T) {
	g := grid{view: gimplicit.View{Corner: ms2.Vec{X: -3, Y: -2}, Size: ms2.Vec{X: 6, Y: 4}}, w: 96, h: 64}
	cc := chunkColors{fill: true, color: [4]float32{0.2, 0.4, 0.8, 0.4}}
	wavy := curve{f: func(x, y float32) float32 { return math32.Sin(3*x) - y }}
	for _, c := range []curve{circle, wavy} {
		for j := 0; j < g.h; j++ {
			for i := 0; i < g.w; i++ {
				tex := g.texCoord(i, j)
				f := c.at(g.view.MathCoord(tex)) // Cache pass value.
				composite := g.compositePixel(cc, tex, f, undefinedSegment)
				fast := fastFillPixel(cc.color, f)
				if composite != fast {
					t.Fatalf("pixel (%d,%d): composite %v != fast fill %v", i, j, composite, fast)
				}
			}
		}
	}
}

func TestUnitCircleEndToEnd(t *testing.T) {
	const lineWidth = 2
	g := grid{view: gimplicit.View{Corner: ms2.Vec{X: -2, Y: -2}, Size: ms2.Vec{X: 4, Y: 4}}, w: 64, h: 64}
	pixel := g.view.Size.X / float32(g.w)
	cc := chunkColors{
		fill:      true,
		color:     [4]float32{0.2, 0.4, 0.8, 0.4},
		lineColor: [4]float32{0.8, 0.1, 0.1, 1},
		lineWidth: lineWidth,
	}
	seeds := g.flood(circle)
	const tol = 1e-5
	near := func(a, b [4]float32) bool {
		for i := range a {
			if math32.Abs(a[i]-b[i]) > tol {
				return false
			}
		}
		return true
	}
	var ring, inside, outside int
	for j := 0; j < g.h; j++ {
		for i := 0; i < g.w; i++ {
			tex := g.texCoord(i, j)
			p := g.view.MathCoord(tex)
			seed := seeds[j*g.w+i]
			if !seed.defined() {
				t.Fatalf("pixel (%d,%d) not reached by the flood", i, j)
			}
			got := g.compositePixel(cc, tex, circle.at(p), seed)
			// Signed distance to the circle in pixels.
			d := (ms2.Norm(p) - 1) / pixel
			switch {
			case math32.Abs(d) < 0.25:
				ring++
				if got[3] < 0.9 {
					t.Errorf("ring pixel (%d,%d) at %.2fpx has alpha %v", i, j, d, got[3])
				}
			case d < -lineWidth-0.5:
				inside++
				if !near(got, cc.color) {
					t.Errorf("inside pixel (%d,%d) at %.2fpx got %v, want fill %v", i, j, d, got, cc.color)
				}
			case d > lineWidth+0.5:
				outside++
				if got != ([4]float32{}) {
					t.Errorf("outside pixel (%d,%d) at %.2fpx got %v, want transparent", i, j, d, got)
				}
			}
		}
	}
	if ring == 0 || inside == 0 || outside == 0 {
		t.Fatalf("degenerate sampling: ring=%d inside=%d outside=%d", ring, inside, outside)
	}
}

func TestMixColor(t *testing.T) {
	transparent := [4]float32{}
	if got := mixColor(transparent, transparent); got != transparent {
		t.Errorf("transparent over transparent must stay transparent, got %v", got)
	}
	top := [4]float32{1, 0.5, 0.25, 0.5}
	if got := mixColor(transparent, top); got != top {
		t.Errorf("over transparent got %v, want %v", got, top)
	}
	opaque := [4]float32{0, 0, 1, 1}
	if got := mixColor(top, opaque); got != opaque {
		t.Errorf("opaque over anything got %v, want %v", got, opaque)
	}
	if a := lineAlpha(0, 2); a != 0 {
		t.Errorf("line center must be fully covered, alpha %v", a)
	}
	if a := lineAlpha(1.5, 2); a != 1 {
		t.Errorf("beyond half width plus half pixel must be uncovered, alpha %v", a)
	}
}
