package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glbuild/glsllib"
)

// DefaultVersion is the GLSL version directive used by [NewDefaultBuilder].
const DefaultVersion = "#version 410 core"

// Well known names shared between generated sources and the program cache.
const (
	AttribVertexPosition = "vertexPosition"
	UniformGraphCorner   = "graphCorner"
	UniformGraphSize     = "graphSize"
	UniformInfinity      = "dsm_Infinity"
	// UniformDepsInfinity and UniformDepsNaN may be declared by dependency snippets.
	UniformDepsInfinity = "Infinity"
	UniformDepsNaN      = "NaN"
	// ConstantPrefix prefixes the indexed constant uniforms _DCG_SC_0 .. _DCG_SC_{n-1}.
	ConstantPrefix = "_DCG_SC_"

	UniformChannel0   = "iChannel0"
	UniformChannel1   = "iChannel1"
	UniformInitFlag   = "iInitFlag"
	UniformResolution = "iResolution"
	UniformMaxSteps   = "c_maxSteps"
	UniformStepNum    = "c_stepNum"
	UniformDoOutlines = "iDoOutlines"
	UniformDoFill     = "iDoFill"
)

// PassKind selects which fragment shader a [Builder] generates.
type PassKind uint8

const (
	_ PassKind = iota
	// PassCache writes f(x,y) to the red channel.
	PassCache
	// PassJFA classifies zero crossings, seeds outline segments and runs jump flood steps.
	PassJFA
	// PassComposite blends fill and antialiased outline from the cache and JFA textures.
	PassComposite
	// PassFastFill evaluates f(x,y) directly and fills where it is positive. No outlines.
	PassFastFill
)

func (k PassKind) String() string {
	switch k {
	case PassCache:
		return "cache"
	case PassJFA:
		return "jfa"
	case PassComposite:
		return "composite"
	case PassFastFill:
		return "fastfill"
	}
	return "PassKind(" + strconv.Itoa(int(k)) + ")"
}

// FragmentSource is generated fragment shader text along with the values of
// the constant uniforms it declares. Uniforms[i] is the value of _DCG_SC_i.
type FragmentSource struct {
	Source   string
	Uniforms []float32
}

// Config configures a [Builder].
type Config struct {
	// Version is the GLSL version directive written at the top of every source.
	Version string
}

// Builder generates GLSL sources for the implicit curve render passes.
// Generation is deterministic: equal inputs always yield byte-identical sources,
// which the program cache relies upon to share compiled programs.
type Builder struct {
	version string
	scratch []byte
}

// NewBuilder returns a Builder configured by cfg.
func NewBuilder(cfg Config) (*Builder, error) {
	v := strings.TrimSpace(cfg.Version)
	if !strings.HasPrefix(v, "#version ") {
		return nil, fmt.Errorf("invalid GLSL version directive %q", cfg.Version)
	}
	return &Builder{version: v, scratch: make([]byte, 0, 4096)}, nil
}

// NewDefaultBuilder returns a Builder targeting [DefaultVersion].
func NewDefaultBuilder() *Builder {
	b, err := NewBuilder(Config{Version: DefaultVersion})
	if err != nil {
		panic(err)
	}
	return b
}

// VertexSource returns the fullscreen quad vertex shader shared by all passes.
// It maps vertexPosition in clip space [-1,1] to texCoord in [0,1].
func (b *Builder) VertexSource() string {
	return b.version + `
in vec2 ` + AttribVertexPosition + `;
out vec2 texCoord;

void main() {
	texCoord    = ` + AttribVertexPosition + ` * 0.5 + 0.5;
	gl_Position = vec4(` + AttribVertexPosition + `, 0.0, 1.0);
}
`
}

// FragmentSource generates the fragment shader of the given pass for chunk.
// deps is the dependency blob embedded verbatim, see [gimplicit.Package.DepsSource].
func (b *Builder) FragmentSource(kind PassKind, chunk *gimplicit.ShaderChunk, deps string) (FragmentSource, error) {
	var err error
	b.scratch, err = b.AppendFragment(b.scratch[:0], kind, chunk, deps)
	if err != nil {
		return FragmentSource{}, err
	}
	return FragmentSource{
		Source:   string(b.scratch),
		Uniforms: chunk.Uniforms,
	}, nil
}

// AppendFragment appends the fragment shader of the given pass for chunk to dst.
func (b *Builder) AppendFragment(dst []byte, kind PassKind, chunk *gimplicit.ShaderChunk, deps string) ([]byte, error) {
	if chunk == nil {
		return dst, errors.New("nil shader chunk")
	}
	switch kind {
	case PassCache:
		return b.appendCache(dst, chunk, deps), nil
	case PassJFA:
		if chunk.Dx == "" || chunk.Dy == "" {
			return dst, errors.New("JFA pass requires dx and dy bodies")
		}
		return b.appendJFA(dst, chunk, deps), nil
	case PassComposite:
		return b.appendComposite(dst, chunk), nil
	case PassFastFill:
		if chunk.Color == "" {
			return dst, errors.New("fast fill pass requires a color expression")
		}
		return b.appendFastFill(dst, chunk, deps), nil
	}
	return dst, fmt.Errorf("invalid pass kind %s", kind)
}

// appendHeader appends the declarations shared by every pass.
func (b *Builder) appendHeader(dst []byte, numConstants int) []byte {
	dst = append(dst, b.version...)
	dst = append(dst, `
precision highp float;
in  vec2 texCoord;
out vec4 outColor;

uniform vec2  `+UniformGraphCorner+`;
uniform vec2  `+UniformGraphSize+`;
uniform float `+UniformInfinity+`;
`...)
	for i := 0; i < numConstants; i++ {
		dst = append(dst, "uniform float "...)
		dst = AppendConstantName(dst, i)
		dst = append(dst, ";\n"...)
	}
	dst = append(dst, '\n')
	dst = append(dst, glsllib.Header()...)
	dst = append(dst, '\n')
	dst = append(dst, glsllib.Shared()...)
	return dst
}

func appendDeps(dst []byte, deps string) []byte {
	dst = append(dst, "\n// dependencies\n"...)
	dst = append(dst, deps...)
	dst = append(dst, '\n')
	return dst
}

func appendFunc(dst []byte, name, body string) []byte {
	dst = append(dst, "float "...)
	dst = append(dst, name...)
	dst = append(dst, "(float x, float y) {\n\t"...)
	dst = append(dst, body...)
	dst = append(dst, "\n}\n"...)
	return dst
}

func (b *Builder) appendCache(dst []byte, chunk *gimplicit.ShaderChunk, deps string) []byte {
	dst = b.appendHeader(dst, len(chunk.Uniforms))
	dst = appendDeps(dst, deps)
	dst = appendFunc(dst, "f_xy", chunk.Main)
	dst = append(dst, `
void main() {
	vec2 mathCoord = toMathCoord(texCoord);
	float v = f_xy(mathCoord.x, mathCoord.y);
	outColor = vec4(v, 0.0, 0.0, 1.0);
}
`...)
	return dst
}

func (b *Builder) appendJFA(dst []byte, chunk *gimplicit.ShaderChunk, deps string) []byte {
	dst = b.appendHeader(dst, len(chunk.Uniforms))
	dst = append(dst, `
uniform sampler2D `+UniformChannel0+`; // JFA storage.
uniform sampler2D `+UniformChannel1+`; // f(x,y) cache.
uniform int       `+UniformInitFlag+`;
uniform vec2      `+UniformResolution+`;
uniform float     `+UniformMaxSteps+`;
uniform float     `+UniformStepNum+`;
`...)
	dst = appendDeps(dst, deps)
	dst = appendFunc(dst, "f_xy", chunk.Main)
	dst = appendFunc(dst, "f_dx", chunk.Dx)
	dst = appendFunc(dst, "f_dy", chunk.Dy)
	dst = append(dst, `
vec2 f_dxy_p(in vec2 p) {
	return vec2(f_dx(p.x, p.y), f_dy(p.x, p.y));
}

`...)
	dst = append(dst, glsllib.JFA()...)
	return dst
}

func (b *Builder) appendComposite(dst []byte, chunk *gimplicit.ShaderChunk) []byte {
	dst = b.appendHeader(dst, len(chunk.Uniforms))
	dst = append(dst, `
uniform sampler2D `+UniformChannel0+`; // JFA storage.
uniform sampler2D `+UniformChannel1+`; // f(x,y) cache.
uniform vec2      `+UniformResolution+`;
uniform int       `+UniformDoOutlines+`;
uniform int       `+UniformDoFill+`;

void main() {
	outColor = vec4(0.0);
`...)
	if chunk.Fill && chunk.Color != "" {
		dst = append(dst, `	if (`+UniformDoFill+` == 1 && getPixel(texCoord, `+UniformChannel1+`).x > 0.0) {
		outColor = mixColor(outColor, `...)
		dst = append(dst, chunk.Color...)
		dst = append(dst, ");\n\t}\n"...)
	}
	if chunk.HasOutlines() && chunk.LineColor != "" {
		dst = append(dst, `	if (`+UniformDoOutlines+` != 1) {
		return;
	}
	vec4 seed = getPixel(texCoord, `+UniformChannel0+`);
	if (seed == vec4(-`+UniformInfinity+`)) {
		return;
	}
	float maxRes = max(`+UniformResolution+`.x, `+UniformResolution+`.y);
	vec2 warp = `+UniformResolution+` / maxRes;
	float dist = LineSDF(seed * vec4(warp, warp), texCoord * warp) * maxRes;
	float alpha = smoothstep(0.0, 1.0, clamp(dist - `...)
		dst = AppendFloat(dst, '-', '.', chunk.LineWidth)
		dst = append(dst, ` * 0.5 + 0.5, 0.0, 1.0));
	outColor = mixColor(outColor, `...)
		dst = append(dst, chunk.LineColor...)
		dst = append(dst, " * vec4(1.0, 1.0, 1.0, 1.0 - alpha));\n"...)
	}
	dst = append(dst, "}\n"...)
	return dst
}

func (b *Builder) appendFastFill(dst []byte, chunk *gimplicit.ShaderChunk, deps string) []byte {
	dst = b.appendHeader(dst, len(chunk.Uniforms))
	dst = appendDeps(dst, deps)
	dst = appendFunc(dst, "f_xy", chunk.Main)
	dst = append(dst, `
void main() {
	outColor = vec4(0.0);
	vec2 mathCoord = toMathCoord(texCoord);
	if (f_xy(mathCoord.x, mathCoord.y) > 0.0) {
		outColor = mixColor(outColor, `...)
	dst = append(dst, chunk.Color...)
	dst = append(dst, ");\n\t}\n}\n"...)
	return dst
}

// AppendConstantName appends the name of the i'th indexed constant uniform, i.e. _DCG_SC_i.
func AppendConstantName(b []byte, i int) []byte {
	b = append(b, ConstantPrefix...)
	return strconv.AppendInt(b, int64(i), 10)
}

// ConstantName returns the name of the i'th indexed constant uniform.
func ConstantName(i int) string {
	return string(AppendConstantName(nil, i))
}

const decimalDigits = 9

// AppendFloat appends v formatted as a GLSL float literal with trailing zeros trimmed.
// neg and decimal replace the minus sign and decimal point characters.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// AppendFloats appends the float literals of s separated by sep.
func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

// AppendVec4 appends a vec4 constructor expression.
func AppendVec4(b []byte, v [4]float32) []byte {
	b = append(b, "vec4("...)
	b = AppendFloats(b, ',', '-', '.', v[:]...)
	b = append(b, ')')
	return b
}
