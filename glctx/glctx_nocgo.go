//go:build tinygo || !cgo

package glctx

import (
	"image"

	"github.com/soypat/gimplicit/glrender"
)

// InitHeadless requires cgo.
func InitHeadless() (terminate func(), err error) {
	return nil, ErrNoCGO
}

// GL requires cgo. Its methods are no-ops returning [ErrNoCGO].
type GL struct{}

// New requires cgo.
func New() (*GL, error) {
	return nil, ErrNoCGO
}

func (g *GL) Close() {}

func (g *GL) Clear(t glrender.Target, c [4]float32) {}

func (g *GL) ReadRGBA(t glrender.Target) (*image.RGBA, error) {
	return nil, ErrNoCGO
}
