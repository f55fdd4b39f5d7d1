package glrender

import (
	"errors"
	"fmt"
	"time"

	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glbuild"
	"github.com/soypat/gimplicit/glprog"
	"github.com/soypat/gimplicit/internal/slogx"
)

// FastFillRenderer fills the region where f(x,y) > 0 in a single pass without outlines.
// The chunk's Color is drawn regardless of its Fill flag.
type FastFillRenderer struct {
	passer
	stats FrameStats
}

// NewFastFillRenderer returns a renderer issuing GL calls to dev and acquiring programs from cache.
func NewFastFillRenderer(dev Device, cache *glprog.Cache, cfg Config) (*FastFillRenderer, error) {
	p, err := newPasser(dev, cache, cfg.Builder, slogx.OrNop(cfg.Logger))
	if err != nil {
		return nil, err
	}
	return &FastFillRenderer{passer: p}, nil
}

// LastFrame returns statistics of the last successful render.
func (r *FastFillRenderer) LastFrame() FrameStats { return r.stats }

// Render blends the fill of chunk over dst, mapping dst onto view.
func (r *FastFillRenderer) Render(dst Target, chunk *gimplicit.ShaderChunk, deps string, view gimplicit.View) error {
	err := validate(dst, chunk, view)
	if err != nil {
		return err
	}
	var stats FrameStats
	start := stats.begin()
	prog, err := r.use(glbuild.PassFastFill, chunk, deps, view)
	if err != nil {
		return err
	}
	r.dev.BindTarget(dst)
	r.dev.SetBlending(true)
	err = r.draw(prog, &stats, glbuild.PassFastFill)
	if err != nil {
		return err
	}
	stats.Elapsed = time.Since(start)
	r.stats = stats
	return nil
}

// PackageRenderer draws every chunk of a [gimplicit.Package] in order onto one target.
// Chunks with outlines go through a [JFARenderer], the rest through a [FastFillRenderer].
type PackageRenderer struct {
	jfa   *JFARenderer
	fill  *FastFillRenderer
	stats FrameStats
}

// NewPackageRenderer returns a renderer sharing dev, cache and cfg among its renderers.
func NewPackageRenderer(dev Device, cache *glprog.Cache, cfg Config) (*PackageRenderer, error) {
	if cfg.Builder == nil {
		cfg.Builder = glbuild.NewDefaultBuilder()
	}
	jfa, err := NewJFARenderer(dev, cache, cfg)
	if err != nil {
		return nil, err
	}
	fill, err := NewFastFillRenderer(dev, cache, cfg)
	if err != nil {
		return nil, err
	}
	return &PackageRenderer{jfa: jfa, fill: fill}, nil
}

// LastFrame returns statistics accumulated over every chunk of the last successful render.
func (r *PackageRenderer) LastFrame() FrameStats { return r.stats }

// Render draws the chunks of pkg over dst. Chunks are drawn in order so later
// chunks are composited over earlier ones.
func (r *PackageRenderer) Render(dst Target, pkg *gimplicit.Package, view gimplicit.View) error {
	if pkg == nil {
		return errors.New("nil package")
	}
	var stats FrameStats
	start := stats.begin()
	deps := pkg.DepsSource()
	for i := range pkg.Chunks {
		chunk := &pkg.Chunks[i]
		if !chunk.Fill && !chunk.HasOutlines() {
			continue // Nothing visible.
		}
		var err error
		var frame FrameStats
		if chunk.HasOutlines() {
			err = r.jfa.Render(dst, chunk, deps, view)
			frame = r.jfa.LastFrame()
		} else {
			err = r.fill.Render(dst, chunk, deps, view)
			frame = r.fill.LastFrame()
		}
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		stats.Passes += frame.Passes
		stats.Steps += frame.Steps
	}
	stats.Elapsed = time.Since(start)
	r.stats = stats
	return nil
}

// Release deletes the textures held by the renderer.
func (r *PackageRenderer) Release() { r.jfa.Release() }
