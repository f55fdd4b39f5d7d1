package gimplicitaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms1"
	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glbuild"
)

// A great portion of logic in this file taken from Esme Lamb's (@dedelala)
// excellent color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

// ColorExpr returns the GLSL vec4 expression of c with straight (non premultiplied) alpha,
// suitable for [gimplicit.ShaderChunk] Color and LineColor.
func ColorExpr(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	var b [64]byte
	return string(glbuild.AppendVec4(b[:0], [4]float32{
		float32(n.R) / math.MaxUint8,
		float32(n.G) / math.MaxUint8,
		float32(n.B) / math.MaxUint8,
		float32(n.A) / math.MaxUint8,
	}))
}

// ColorSequence returns n opaque colors interpolated in HSV space from c0 to c1, both included.
func ColorSequence(n int, c0, c1 color.Color) []color.Color {
	if n <= 0 {
		return nil
	} else if n == 1 {
		return []color.Color{opaque(c0)}
	}
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	seq := make([]color.Color, n)
	for i := range seq {
		t := float32(i) / float32(n-1)
		h, s, v := interpHSV(h0, s0, v0, h1, s1, v1, t)
		if h > 1 {
			h -= 1
		}
		seq[i] = rgbToColor(hsvToRGB(h, s, v))
	}
	return seq
}

// ApplyPalette sets the line and fill colors of every chunk in pkg from a
// [ColorSequence] between c0 and c1. Fill colors take fillAlpha as alpha so
// overlapping regions remain visible.
func ApplyPalette(pkg *gimplicit.Package, c0, c1 color.Color, fillAlpha float32) {
	seq := ColorSequence(len(pkg.Chunks), c0, c1)
	alpha := uint8(ms1.Clamp(fillAlpha, 0, 1) * math.MaxUint8)
	for i := range pkg.Chunks {
		line := color.NRGBAModel.Convert(seq[i]).(color.NRGBA)
		fill := line
		fill.A = alpha
		pkg.Chunks[i].LineColor = ColorExpr(line)
		pkg.Chunks[i].Color = ColorExpr(fill)
	}
}

func opaque(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = math.MaxUint8
	return n
}

func rgbToColor(r, g, b float32) color.NRGBA {
	return color.NRGBA{
		R: uint8(ms1.Clamp(r, 0, 1)*math.MaxUint8 + 0.5),
		G: uint8(ms1.Clamp(g, 0, 1)*math.MaxUint8 + 0.5),
		B: uint8(ms1.Clamp(b, 0, 1)*math.MaxUint8 + 0.5),
		A: math.MaxUint8,
	}
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

func colorToHSV(c color.Color) (h, s, v float32) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return rgbToHSV(float32(n.R)/math.MaxUint8, float32(n.G)/math.MaxUint8, float32(n.B)/math.MaxUint8)
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)

	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	case h > 5.0/6 && h <= 1.0:
		r, g, b = c, 0, x
	}

	r, g, b = r+m, g+m, b+m
	return r, g, b
}

// rgbToHSV converts red, green, and blue floating point values on the range
// 0.0 to 1.0 to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return
}
