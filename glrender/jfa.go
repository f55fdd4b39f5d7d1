package glrender

import (
	"log/slog"
	"time"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glbuild"
	"github.com/soypat/gimplicit/glprog"
	"github.com/soypat/gimplicit/internal/slogx"
)

// JFARenderer draws filled and outlined implicit curves using the jump flood algorithm:
//
//  1. The cache pass evaluates f(x,y) once per pixel into a float texture.
//  2. The init pass classifies each pixel for a zero crossing, refines the crossing
//     to sub-pixel accuracy and seeds the pixel with a short tangent segment.
//  3. ceil(log2(max(width,height))) jump flood steps spread the closest segment to
//     every pixel, ping-ponging between two textures.
//  4. The composite pass blends the fill and the antialiased outline onto the target.
//
// Chunks without outlines skip steps 2 and 3. A JFARenderer owns its textures
// and must not be shared by relations drawn interleaved.
type JFARenderer struct {
	passer
	// cacheTex holds f(x,y) in the red channel.
	cacheTex Target
	// jfa is the ping-pong pair. Step i reads jfa[i%2] and writes jfa[(i+1)%2].
	jfa   [2]Target
	stats FrameStats
}

// NewJFARenderer returns a renderer issuing GL calls to dev and acquiring programs from cache.
// Textures are allocated on the first render.
func NewJFARenderer(dev Device, cache *glprog.Cache, cfg Config) (*JFARenderer, error) {
	p, err := newPasser(dev, cache, cfg.Builder, slogx.OrNop(cfg.Logger))
	if err != nil {
		return nil, err
	}
	return &JFARenderer{passer: p}, nil
}

// LastFrame returns statistics of the last successful render.
func (r *JFARenderer) LastFrame() FrameStats { return r.stats }

// Render draws chunk over dst with blending, mapping dst onto view.
// deps is the dependency blob of the chunk's package.
func (r *JFARenderer) Render(dst Target, chunk *gimplicit.ShaderChunk, deps string, view gimplicit.View) error {
	err := validate(dst, chunk, view)
	if err != nil {
		return err
	}
	var stats FrameStats
	start := stats.begin()
	err = r.ensureTargets(dst.Width, dst.Height)
	if err != nil {
		return err
	}
	dev := r.dev
	dev.SetBlending(false)

	// Cache f(x,y).
	prog, err := r.use(glbuild.PassCache, chunk, deps, view)
	if err != nil {
		return err
	}
	dev.BindTarget(r.cacheTex)
	err = r.draw(prog, &stats, glbuild.PassCache)
	if err != nil {
		return err
	}

	outlines := chunk.HasOutlines()
	// Without outlines the composite pass never samples the JFA texture.
	seeds := r.cacheTex
	if outlines {
		seeds, err = r.flood(chunk, deps, view, &stats)
		if err != nil {
			return err
		}
	}

	prog, err = r.use(glbuild.PassComposite, chunk, deps, view)
	if err != nil {
		return err
	}
	dev.BindTarget(dst)
	dev.SetBlending(true)
	dev.BindTexture(unitJFA, seeds)
	dev.BindTexture(unitCache, r.cacheTex)
	err = setUniforms(prog,
		namedUniform{glbuild.UniformChannel0, glprog.Int(unitJFA)},
		namedUniform{glbuild.UniformChannel1, glprog.Int(unitCache)},
		namedUniform{glbuild.UniformResolution, glprog.Vec2(resolution(dst))},
		namedUniform{glbuild.UniformDoOutlines, glprog.Bool(outlines)},
		namedUniform{glbuild.UniformDoFill, glprog.Bool(chunk.Fill)},
	)
	if err != nil {
		return err
	}
	err = r.draw(prog, &stats, glbuild.PassComposite)
	if err != nil {
		return err
	}
	stats.Elapsed = time.Since(start)
	r.stats = stats
	return nil
}

// flood runs the init pass and the jump flood steps, returning the target holding the final seeds.
func (r *JFARenderer) flood(chunk *gimplicit.ShaderChunk, deps string, view gimplicit.View, stats *FrameStats) (Target, error) {
	dev := r.dev
	prog, err := r.use(glbuild.PassJFA, chunk, deps, view)
	if err != nil {
		return Target{}, err
	}
	w, h := r.cacheTex.Width, r.cacheTex.Height
	numSteps := StepCount(w, h)
	dev.BindTexture(unitCache, r.cacheTex)
	err = setUniforms(prog,
		namedUniform{glbuild.UniformChannel0, glprog.Int(unitJFA)},
		namedUniform{glbuild.UniformChannel1, glprog.Int(unitCache)},
		namedUniform{glbuild.UniformResolution, glprog.Vec2(resolution(r.cacheTex))},
		namedUniform{glbuild.UniformMaxSteps, glprog.Float(float32(numSteps))},
		namedUniform{glbuild.UniformInitFlag, glprog.Int(1)},
	)
	if err != nil {
		return Target{}, err
	}
	// Init writes jfa[0]. Bind the other texture to the JFA unit so no texture
	// is sampled while being rendered to.
	dev.BindTexture(unitJFA, r.jfa[1])
	dev.BindTarget(r.jfa[0])
	err = r.draw(prog, stats, glbuild.PassJFA)
	if err != nil {
		return Target{}, err
	}
	err = prog.SetUniform(glbuild.UniformInitFlag, glprog.Int(0))
	if err != nil {
		return Target{}, err
	}
	for i := 0; i < numSteps; i++ {
		src, dst := r.jfa[i%2], r.jfa[(i+1)%2]
		err = prog.SetUniform(glbuild.UniformStepNum, glprog.Float(float32(i)))
		if err != nil {
			return Target{}, err
		}
		dev.BindTarget(dst)
		dev.BindTexture(unitJFA, src)
		err = r.draw(prog, stats, glbuild.PassJFA)
		if err != nil {
			return Target{}, err
		}
		stats.Steps++
		r.log.Debug("jfa step", slog.Int("step", i), slog.Int("width", StepWidth(i, numSteps)))
	}
	return r.jfa[numSteps%2], nil
}

// ensureTargets allocates the cache and ping-pong textures, reallocating only on size change.
func (r *JFARenderer) ensureTargets(width, height int) error {
	if r.cacheTex.Width == width && r.cacheTex.Height == height {
		return nil
	}
	r.Release()
	var targets [3]Target
	for i := range targets {
		t, err := r.dev.CreateTarget(width, height)
		if err != nil {
			for _, created := range targets[:i] {
				r.dev.DeleteTarget(created)
			}
			return err
		} else if t.Framebuffer == 0 || t.Texture == 0 {
			r.dev.DeleteTarget(t)
			for _, created := range targets[:i] {
				r.dev.DeleteTarget(created)
			}
			return glErrOrMessage(r.dev, "creating render target got zero id")
		}
		targets[i] = t
	}
	r.cacheTex = targets[0]
	r.jfa = [2]Target{targets[1], targets[2]}
	r.log.Info("allocated jfa targets", slog.Int("width", width), slog.Int("height", height))
	return nil
}

// Release deletes the renderer's textures and framebuffers. The renderer
// remains usable and reallocates them on the next render.
func (r *JFARenderer) Release() {
	if r.cacheTex.Framebuffer == 0 {
		return
	}
	r.dev.DeleteTarget(r.cacheTex)
	r.dev.DeleteTarget(r.jfa[0])
	r.dev.DeleteTarget(r.jfa[1])
	r.cacheTex = Target{}
	r.jfa = [2]Target{}
}

func resolution(t Target) ms2.Vec {
	return ms2.Vec{X: float32(t.Width), Y: float32(t.Height)}
}
