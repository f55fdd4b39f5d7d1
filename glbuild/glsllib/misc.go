package glsllib

import (
	_ "embed"
)

//go:embed header.glsl
var headerSrc []byte

// Header declares the math-space transform and color compositing helpers.
// It expects the graphCorner and graphSize uniforms to be declared before it.
//
//	vec2 toMathCoord(in vec2 fragCoord)
//	vec4 mixColor(vec4 from, vec4 top)
func Header() []byte { return headerSrc }

//go:embed shared.glsl
var sharedSrc []byte

// Shared holds the texture sampling and point-to-segment distance helpers used by
// the JFA and composite passes:
//
//	vec4 getPixel(in vec2 coord, in sampler2D channel)
//	float line_segment(in vec2 p, in vec2 a, in vec2 b)
//	float LineSDF(in vec4 line, in vec2 p)
func Shared() []byte { return sharedSrc }

//go:embed jfa.glsl
var jfaSrc []byte

// JFA is the sign change classifier, quad-tree refinement and jump flood step logic
// together with the JFA pass entry point. It requires f_xy, f_dxy_p, [Header], [Shared]
// and the iChannel0, iChannel1, iInitFlag, iResolution, c_maxSteps and c_stepNum uniforms.
func JFA() []byte { return jfaSrc }
