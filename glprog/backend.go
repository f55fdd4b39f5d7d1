package glprog

import "strconv"

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	_ Stage = iota
	StageVertex
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "Stage(" + strconv.Itoa(int(s)) + ")"
}

// Backend is the subset of the GL API needed to build programs and upload uniforms.
// All methods must be called from the goroutine owning the GL context.
// Locations follow GL conventions: -1 means the name is not an active attribute or uniform,
// and uploads to location -1 are silently ignored.
type Backend interface {
	// CreateShader returns a new shader object for stage or 0 if the stage is not supported.
	CreateShader(stage Stage) uint32
	// CompileShader compiles source into shader. On failure ok is false and
	// infoLog holds the driver's diagnostics.
	CompileShader(shader uint32, source string) (ok bool, infoLog string)
	DeleteShader(shader uint32)

	// CreateProgram returns a new program object or 0 on failure.
	CreateProgram() uint32
	// LinkProgram attaches shaders to program and links it. On failure ok is false and
	// infoLog holds the driver's diagnostics.
	LinkProgram(program uint32, shaders ...uint32) (ok bool, infoLog string)
	DeleteProgram(program uint32)
	UseProgram(program uint32)

	AttribLocation(program uint32, name string) int32
	UniformLocation(program uint32, name string) int32

	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, x, y float32)
	Uniform3f(loc int32, x, y, z float32)
	Uniform4f(loc int32, x, y, z, w float32)
	Uniform1i(loc int32, v int32)
}
