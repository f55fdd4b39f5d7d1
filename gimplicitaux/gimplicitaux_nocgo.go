//go:build tinygo || !cgo

package gimplicitaux

import (
	"image"

	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glctx"
)

func renderImage(pkg *gimplicit.Package, cfg PNGConfig) (*image.RGBA, error) {
	return nil, glctx.ErrNoCGO
}

func ui(pkg *gimplicit.Package, cfg UIConfig) error {
	return glctx.ErrNoCGO
}
