package glprog

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidShaderType is returned when the GL driver refuses to create a shader
	// object for a stage. It indicates a programming error.
	ErrInvalidShaderType = errors.New("invalid shader type")

	errProgramCreate   = errors.New("unable to create shader program")
	errProgramReleased = errors.New("program was released")
)

// ShaderCompileError is returned when a shader stage fails to compile.
type ShaderCompileError struct {
	Stage Stage
	// Log is the driver's shader info log.
	Log string
}

func (e *ShaderCompileError) Error() string {
	return "compiling " + e.Stage.String() + " shader: " + strings.TrimRight(e.Log, "\x00\n ")
}

// ShaderLinkError is returned when compiled stages fail to link into a program.
type ShaderLinkError struct {
	// Log is the driver's program info log.
	Log string
}

func (e *ShaderLinkError) Error() string {
	return "linking shader program: " + strings.TrimRight(e.Log, "\x00\n ")
}

// UniformBindingError is returned when a uniform upload cannot be performed.
type UniformBindingError struct {
	Name   string
	Kind   UniformKind
	Reason string
}

func (e *UniformBindingError) Error() string {
	return "binding " + e.Kind.String() + " uniform " + e.Name + ": " + e.Reason
}
