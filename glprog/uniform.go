package glprog

import (
	"strconv"

	"github.com/soypat/geometry/ms2"
)

// UniformKind is the declared GLSL type of a uniform value.
type UniformKind uint8

const (
	_ UniformKind = iota
	KindFloat
	KindVec2
	KindVec3
	KindVec4
	KindInt
)

func (k UniformKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	case KindInt:
		return "int"
	}
	return "UniformKind(" + strconv.Itoa(int(k)) + ")"
}

// Uniform is a uniform value tagged with its GLSL type. The zero value is
// invalid and binding it returns a [UniformBindingError].
type Uniform struct {
	kind UniformKind
	i    int32
	f    [4]float32
}

// Float returns a float uniform value.
func Float(v float32) Uniform { return Uniform{kind: KindFloat, f: [4]float32{v}} }

// Vec2 returns a vec2 uniform value.
func Vec2(v ms2.Vec) Uniform { return Uniform{kind: KindVec2, f: [4]float32{v.X, v.Y}} }

// Vec3 returns a vec3 uniform value.
func Vec3(x, y, z float32) Uniform { return Uniform{kind: KindVec3, f: [4]float32{x, y, z}} }

// Vec4 returns a vec4 uniform value.
func Vec4(v [4]float32) Uniform { return Uniform{kind: KindVec4, f: v} }

// Int returns an int uniform value. Also used for sampler units and boolean flags.
func Int(v int32) Uniform { return Uniform{kind: KindInt, i: v} }

// Bool returns an int uniform value of 1 if v is true and 0 otherwise.
func Bool(v bool) Uniform {
	if v {
		return Int(1)
	}
	return Int(0)
}

// Kind returns the declared type of the value.
func (u Uniform) Kind() UniformKind { return u.kind }

// upload dispatches u to the typed upload call matching its kind.
func upload(b Backend, loc int32, name string, u Uniform) error {
	switch u.kind {
	case KindFloat:
		b.Uniform1f(loc, u.f[0])
	case KindVec2:
		b.Uniform2f(loc, u.f[0], u.f[1])
	case KindVec3:
		b.Uniform3f(loc, u.f[0], u.f[1], u.f[2])
	case KindVec4:
		b.Uniform4f(loc, u.f[0], u.f[1], u.f[2], u.f[3])
	case KindInt:
		b.Uniform1i(loc, u.i)
	default:
		return &UniformBindingError{Name: name, Kind: u.kind, Reason: "unset or unknown uniform kind"}
	}
	return nil
}
