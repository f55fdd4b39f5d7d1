//go:build !tinygo && cgo

package gimplicitaux

import (
	"image"
	"runtime"

	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glctx"
	"github.com/soypat/gimplicit/glprog"
	"github.com/soypat/gimplicit/glrender"
)

func renderImage(pkg *gimplicit.Package, cfg PNGConfig) (*image.RGBA, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	terminate, err := glctx.InitHeadless()
	if err != nil {
		return nil, err
	}
	defer terminate()
	dev, err := glctx.New()
	if err != nil {
		return nil, err
	}
	defer dev.Close()
	cache, err := glprog.NewCache(dev, glprog.CacheConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	renderer, err := glrender.NewPackageRenderer(dev, cache, glrender.Config{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	defer renderer.Release()

	dst, err := dev.CreateTarget(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	defer dev.DeleteTarget(dst)
	dev.Clear(dst, clearColor(cfg.Background))
	err = renderer.Render(dst, pkg, cfg.View)
	if err != nil {
		return nil, err
	}
	return dev.ReadRGBA(dst)
}
