package glrender

import (
	"errors"
	"log/slog"

	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glbuild"
	"github.com/soypat/gimplicit/glprog"
)

// Texture units shared by the passes reading previous results.
const (
	unitJFA   = 0 // iChannel0
	unitCache = 1 // iChannel1
)

// passer generates, acquires and binds the program of a pass.
type passer struct {
	dev     Device
	cache   *glprog.Cache
	builder *glbuild.Builder
	vertex  string
	log     *slog.Logger
}

func newPasser(dev Device, cache *glprog.Cache, builder *glbuild.Builder, log *slog.Logger) (passer, error) {
	if dev == nil {
		return passer{}, errors.New("nil device")
	} else if cache == nil {
		return passer{}, errors.New("nil program cache")
	}
	if builder == nil {
		builder = glbuild.NewDefaultBuilder()
	}
	return passer{
		dev:     dev,
		cache:   cache,
		builder: builder,
		vertex:  builder.VertexSource(),
		log:     log,
	}, nil
}

// use generates the program of the pass, installs it and uploads the
// constants and view uniforms common to all passes.
func (p *passer) use(kind glbuild.PassKind, chunk *gimplicit.ShaderChunk, deps string, view gimplicit.View) (glprog.BoundProgram, error) {
	frag, err := p.builder.FragmentSource(kind, chunk, deps)
	if err != nil {
		return glprog.BoundProgram{}, err
	}
	prog, err := p.cache.Acquire(p.vertex, frag.Source, frag.Uniforms)
	if err != nil {
		return glprog.BoundProgram{}, err
	}
	err = prog.Use()
	if err != nil {
		return glprog.BoundProgram{}, err
	}
	err = prog.BindConstants()
	if err != nil {
		return glprog.BoundProgram{}, err
	}
	err = prog.BindView(view.Corner, view.Size)
	if err != nil {
		return glprog.BoundProgram{}, err
	}
	return prog, nil
}

// draw issues the fullscreen quad of a pass and polls the driver for errors.
func (p *passer) draw(prog glprog.BoundProgram, stats *FrameStats, kind glbuild.PassKind) error {
	err := p.dev.DrawQuad(prog.VertexAttrib())
	if err == nil {
		err = p.dev.Err()
	}
	if err != nil {
		return err
	}
	stats.Passes++
	p.log.Debug("pass", slog.String("kind", kind.String()), slog.Uint64("program", uint64(prog.ID())))
	return nil
}

// setUniforms uploads named pass uniforms in order, stopping at the first error.
func setUniforms(prog glprog.BoundProgram, uniforms ...namedUniform) error {
	for _, u := range uniforms {
		err := prog.SetUniform(u.name, u.value)
		if err != nil {
			return err
		}
	}
	return nil
}

type namedUniform struct {
	name  string
	value glprog.Uniform
}

func validate(dst Target, chunk *gimplicit.ShaderChunk, view gimplicit.View) error {
	if dst.Width <= 0 || dst.Height <= 0 {
		return ErrZeroSize
	} else if chunk == nil {
		return errors.New("nil shader chunk")
	}
	err := chunk.Validate()
	if err != nil {
		return err
	}
	return view.Validate()
}
