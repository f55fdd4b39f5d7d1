//go:build !tinygo && cgo

package glctx

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/gimplicit/glprog"
	"github.com/soypat/gimplicit/glrender"
	"github.com/soypat/glgl/v4.1-core/glgl"
)

// InitHeadless starts a small GLFW window with a current OpenGL 4.1 core context
// so that rendering to offscreen targets can begin. It returns a termination
// function that should be called when done with the GPU.
func InitHeadless() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "gimplicit",
		Version: [2]int{4, 1},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// quad is two triangles covering clip space.
var quad = [...]float32{
	-1, -1,
	1, -1,
	-1, 1,
	-1, 1,
	1, -1,
	1, 1,
}

// GL implements [glrender.Device] on the OpenGL context current to the calling thread.
type GL struct {
	vao uint32
	vbo uint32
}

var _ glrender.Device = (*GL)(nil)

// New allocates the fullscreen quad buffers on the current context.
func New() (*GL, error) {
	var g GL
	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)
	gl.GenBuffers(1, &g.vbo)
	if g.vao == 0 || g.vbo == 0 {
		return nil, glErrOrMessage("creating quad buffers got zero id")
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(quad), gl.Ptr(&quad[0]), gl.STATIC_DRAW)
	err := glgl.Err()
	if err != nil {
		g.Close()
		return nil, err
	}
	return &g, nil
}

// Close deletes the quad buffers.
func (g *GL) Close() {
	if g.vbo != 0 {
		gl.DeleteBuffers(1, &g.vbo)
		g.vbo = 0
	}
	if g.vao != 0 {
		gl.DeleteVertexArrays(1, &g.vao)
		g.vao = 0
	}
}

func (g *GL) CreateShader(stage glprog.Stage) uint32 {
	switch stage {
	case glprog.StageVertex:
		return gl.CreateShader(gl.VERTEX_SHADER)
	case glprog.StageFragment:
		return gl.CreateShader(gl.FRAGMENT_SHADER)
	}
	return 0
}

func (g *GL) CompileShader(shader uint32, source string) (bool, string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLength int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
	msg := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(msg))
	return false, msg
}

func (g *GL) DeleteShader(shader uint32) { gl.DeleteShader(shader) }

func (g *GL) CreateProgram() uint32 { return gl.CreateProgram() }

func (g *GL) LinkProgram(program uint32, shaders ...uint32) (bool, string) {
	for _, sh := range shaders {
		gl.AttachShader(program, sh)
	}
	gl.LinkProgram(program)
	for _, sh := range shaders {
		gl.DetachShader(program, sh)
	}
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLength int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
	msg := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(program, logLength, nil, gl.Str(msg))
	return false, msg
}

func (g *GL) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (g *GL) UseProgram(program uint32) { gl.UseProgram(program) }

func (g *GL) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (g *GL) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (g *GL) Uniform1f(loc int32, v float32)          { gl.Uniform1f(loc, v) }
func (g *GL) Uniform2f(loc int32, x, y float32)       { gl.Uniform2f(loc, x, y) }
func (g *GL) Uniform3f(loc int32, x, y, z float32)    { gl.Uniform3f(loc, x, y, z) }
func (g *GL) Uniform4f(loc int32, x, y, z, w float32) { gl.Uniform4f(loc, x, y, z, w) }
func (g *GL) Uniform1i(loc int32, v int32)            { gl.Uniform1i(loc, v) }

// CreateTarget allocates an RGBA32F texture and a framebuffer rendering to it.
// Float storage keeps f(x,y) values and the -Inf sentinel of the jump flood passes intact.
func (g *GL) CreateTarget(width, height int) (glrender.Target, error) {
	if width <= 0 || height <= 0 {
		return glrender.Target{}, glrender.ErrZeroSize
	}
	t := glrender.Target{Width: width, Height: height}
	gl.GenTextures(1, &t.Texture)
	if t.Texture == 0 {
		return glrender.Target{}, glErrOrMessage("creating texture got zero id")
	}
	gl.BindTexture(gl.TEXTURE_2D, t.Texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.GenFramebuffers(1, &t.Framebuffer)
	if t.Framebuffer == 0 {
		g.DeleteTarget(t)
		return glrender.Target{}, glErrOrMessage("creating framebuffer got zero id")
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.Framebuffer)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.Texture, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		g.DeleteTarget(t)
		return glrender.Target{}, fmt.Errorf("incomplete framebuffer status 0x%x", status)
	}
	err := glgl.Err()
	if err != nil {
		g.DeleteTarget(t)
		return glrender.Target{}, err
	}
	return t, nil
}

func (g *GL) DeleteTarget(t glrender.Target) {
	if t.Framebuffer != 0 {
		gl.DeleteFramebuffers(1, &t.Framebuffer)
	}
	if t.Texture != 0 {
		gl.DeleteTextures(1, &t.Texture)
	}
}

func (g *GL) BindTarget(t glrender.Target) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.Framebuffer)
	gl.Viewport(0, 0, int32(t.Width), int32(t.Height))
}

func (g *GL) BindTexture(unit int, t glrender.Target) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, t.Texture)
}

func (g *GL) SetBlending(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
		// Alpha accumulates as in "over" so opaque destinations stay opaque.
		gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

func (g *GL) DrawQuad(attrib int32) error {
	if attrib < 0 {
		return errors.New("vertex position attribute not active in program")
	} else if g.vao == 0 {
		return errors.New("quad buffers not allocated, use New")
	}
	gl.BindVertexArray(g.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.EnableVertexAttribArray(uint32(attrib))
	gl.VertexAttribPointer(uint32(attrib), 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(quad)/2))
	return nil
}

func (g *GL) Err() error { return glgl.Err() }

// Clear fills t with the color c.
func (g *GL) Clear(t glrender.Target, c [4]float32) {
	g.BindTarget(t)
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// ReadRGBA copies the contents of t into an image with the first row at the top.
func (g *GL) ReadRGBA(t glrender.Target) (*image.RGBA, error) {
	if t.Width <= 0 || t.Height <= 0 {
		return nil, glrender.ErrZeroSize
	}
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.Framebuffer)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(t.Width), int32(t.Height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&img.Pix[0]))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	err := glgl.Err()
	if err != nil {
		return nil, err
	}
	flipRows(img)
	return img, nil
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
