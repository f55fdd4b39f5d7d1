package gimplicit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// ShaderChunk is the GLSL rendition of a single implicit relation f(x,y)=0
// as produced by the expression compiler. Main, Dx and Dy are function bodies
// (including the return statement) of
//
//	float f_xy(float x, float y)
//	float f_dx(float x, float y)
//	float f_dy(float x, float y)
//
// Uniforms[i] is the value of the `uniform float _DCG_SC_i` constant referenced by the bodies.
// Color and LineColor are GLSL vec4 expressions.
type ShaderChunk struct {
	Main      string
	Dx        string
	Dy        string
	Uniforms  []float32
	Fill      bool
	Color     string
	LineColor string
	LineWidth float32
}

// HasOutlines reports whether the chunk draws an outline, which requires the JFA passes.
func (c *ShaderChunk) HasOutlines() bool { return c.LineWidth > 0 }

// Validate checks the chunk carries the sources its enabled features need.
func (c *ShaderChunk) Validate() error {
	switch {
	case strings.TrimSpace(c.Main) == "":
		return errors.New("empty main function body")
	case c.Fill && strings.TrimSpace(c.Color) == "":
		return errors.New("fill enabled with empty color expression")
	case math32.IsNaN(c.LineWidth) || math32.IsInf(c.LineWidth, 0) || c.LineWidth < 0:
		return fmt.Errorf("invalid line width %v", c.LineWidth)
	}
	if c.HasOutlines() {
		if strings.TrimSpace(c.Dx) == "" || strings.TrimSpace(c.Dy) == "" {
			return errors.New("outlines require dx and dy function bodies")
		} else if strings.TrimSpace(c.LineColor) == "" {
			return errors.New("outlines require a line color expression")
		}
	}
	return nil
}

// Package groups the chunks of every relation to plot with the shared
// dependency snippets they reference.
type Package struct {
	// Deps is the set of dependency snippets. Only keys mapped to true are emitted.
	Deps        map[string]bool
	Chunks      []ShaderChunk
	HasOutlines bool
}

// DepsSource returns the dependency blob embedded verbatim in every generated shader.
// Snippets are sorted so equal sets always produce equal text.
func (p *Package) DepsSource() string {
	if len(p.Deps) == 0 {
		return ""
	}
	deps := make([]string, 0, len(p.Deps))
	for dep, use := range p.Deps {
		if use {
			deps = append(deps, dep)
		}
	}
	sort.Strings(deps)
	return strings.Join(deps, "\n")
}

// View is the math-space rectangle mapped onto the render target.
// Corner is the bottom-left corner and Size the width and height of the graph in math units.
type View struct {
	Corner ms2.Vec
	Size   ms2.Vec
}

// NewView returns the view that spans the box bb.
func NewView(bb ms2.Box) View {
	return View{Corner: bb.Min, Size: bb.Size()}
}

// Validate checks the view has a positive, finite size.
func (v View) Validate() error {
	if !(v.Size.X > 0 && v.Size.Y > 0) || math32.IsInf(v.Size.X, 0) || math32.IsInf(v.Size.Y, 0) {
		return fmt.Errorf("invalid view size %v", v.Size)
	}
	return nil
}

// MathCoord maps texture coordinates in [0,1]x[0,1] to math space. It is the
// counterpart of the toMathCoord GLSL helper.
func (v View) MathCoord(tex ms2.Vec) ms2.Vec {
	return ms2.Add(ms2.MulElem(tex, v.Size), v.Corner)
}

// Fit returns a view centered on center whose aspect ratio matches a width x height target
// with at least span math units visible along the shortest axis.
func Fit(center ms2.Vec, span float32, width, height int) View {
	w, h := float32(width), float32(height)
	sz := ms2.Vec{X: span, Y: span}
	if w > h {
		sz.X = span * w / h
	} else {
		sz.Y = span * h / w
	}
	return View{Corner: ms2.Sub(center, ms2.Scale(0.5, sz)), Size: sz}
}
