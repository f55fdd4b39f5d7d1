package glprog

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gimplicit/glbuild"
	"github.com/soypat/gimplicit/internal/slogx"
)

// DefaultCapacity is the number of programs a [Cache] holds when unconfigured.
const DefaultCapacity = 100

// CompiledProgram is a linked GL program along with the locations of the
// uniforms every generated pass declares. Locations are only valid for the
// program object they were resolved from and are never shared between programs.
type CompiledProgram struct {
	backend  Backend
	id       uint32
	released bool

	vertexAttrib int32
	corner       int32
	size         int32
	infinity     int32
	depsInfinity int32
	depsNaN      int32
	// constants[i] is the location of _DCG_SC_i.
	constants []int32
	// named caches locations resolved by name for pass specific uniforms.
	named map[string]int32
}

// ID returns the GL program object name.
func (p *CompiledProgram) ID() uint32 { return p.id }

// VertexAttrib returns the location of the vertex position attribute.
func (p *CompiledProgram) VertexAttrib() int32 { return p.vertexAttrib }

// NumConstants returns the number of indexed constant uniform locations resolved at compile time.
func (p *CompiledProgram) NumConstants() int { return len(p.constants) }

// Released reports whether the program object was deleted by the cache.
func (p *CompiledProgram) Released() bool { return p.released }

// Use installs the program as part of the current rendering state.
func (p *CompiledProgram) Use() error {
	if p.released {
		return errProgramReleased
	}
	p.backend.UseProgram(p.id)
	return nil
}

// SetUniform uploads u to the uniform called name using the upload call matching u's kind.
// The program must be in use. Names that are not active uniforms are ignored, as in GL.
func (p *CompiledProgram) SetUniform(name string, u Uniform) error {
	if p.released {
		return &UniformBindingError{Name: name, Kind: u.kind, Reason: errProgramReleased.Error()}
	}
	loc, ok := p.named[name]
	if !ok {
		loc = p.backend.UniformLocation(p.id, name)
		p.named[name] = loc
	}
	return upload(p.backend, loc, name, u)
}

func (p *CompiledProgram) release() {
	if !p.released {
		p.backend.DeleteProgram(p.id)
		p.released = true
	}
}

// BoundProgram is a [CompiledProgram] paired with the constant uniform values of
// one draw. It is built anew by every [Cache.Acquire] call.
type BoundProgram struct {
	*CompiledProgram
	// Uniforms[i] is the value of _DCG_SC_i for this draw.
	Uniforms []float32
}

// BindConstants uploads the indexed constant uniforms by position. The program must be in use.
func (bp BoundProgram) BindConstants() error {
	if len(bp.Uniforms) != len(bp.constants) {
		return fmt.Errorf("have %d constant uniform values for %d declared constants", len(bp.Uniforms), len(bp.constants))
	}
	for i, v := range bp.Uniforms {
		err := upload(bp.backend, bp.constants[i], glbuild.ConstantPrefix, Float(v))
		if err != nil {
			return err
		}
	}
	return nil
}

// BindView uploads the viewport-to-math-space transform and the infinity/NaN
// uniforms shared by every pass. The program must be in use.
func (bp BoundProgram) BindView(corner, size ms2.Vec) error {
	uploads := [...]struct {
		loc  int32
		name string
		u    Uniform
	}{
		{bp.corner, glbuild.UniformGraphCorner, Vec2(corner)},
		{bp.size, glbuild.UniformGraphSize, Vec2(size)},
		{bp.infinity, glbuild.UniformInfinity, Float(math32.Inf(1))},
		{bp.depsInfinity, glbuild.UniformDepsInfinity, Float(math32.Inf(1))},
		{bp.depsNaN, glbuild.UniformDepsNaN, Float(math32.NaN())},
	}
	for _, up := range uploads {
		err := upload(bp.backend, up.loc, up.name, up.u)
		if err != nil {
			return err
		}
	}
	return nil
}

// CacheConfig configures a [Cache].
type CacheConfig struct {
	// Capacity is the maximum number of programs kept. Zero selects [DefaultCapacity].
	Capacity int
	Logger   *slog.Logger
}

// CacheStats holds counters accumulated over a cache's lifetime.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	// CompileTime is the total time spent compiling and linking programs.
	CompileTime time.Duration
}

// Cache maps vertex and fragment source pairs to compiled programs. The full
// source text is the key so chunks generating identical text share one program.
//
// When an insertion exceeds capacity the earliest inserted entry is evicted
// and its program object deleted. Hits do not refresh an entry's position.
// A Cache must only be used from the goroutine owning the GL context.
type Cache struct {
	backend  Backend
	capacity int
	entries  map[string]*CompiledProgram
	// order holds keys in insertion order, oldest first.
	order []string
	log   *slog.Logger
	stats CacheStats
}

// NewCache returns an empty cache building programs with backend.
func NewCache(backend Backend, cfg CacheConfig) (*Cache, error) {
	if backend == nil {
		return nil, errors.New("nil backend")
	} else if cfg.Capacity < 0 {
		return nil, fmt.Errorf("invalid cache capacity %d", cfg.Capacity)
	}
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		backend:  backend,
		capacity: capacity,
		entries:  make(map[string]*CompiledProgram, capacity+1),
		order:    make([]string, 0, capacity+1),
		log:      slogx.OrNop(cfg.Logger),
	}, nil
}

func cacheKey(vertexSource, fragmentSource string) string {
	// Sources never contain NUL so the separator keeps keys unambiguous.
	return vertexSource + "\x00" + fragmentSource
}

// Acquire returns the program for the source pair bound to the given constant
// uniform values, compiling and linking it on a miss. Compile and link failures
// are returned as [*ShaderCompileError] and [*ShaderLinkError].
func (c *Cache) Acquire(vertexSource, fragmentSource string, uniforms []float32) (BoundProgram, error) {
	key := cacheKey(vertexSource, fragmentSource)
	if prog, ok := c.entries[key]; ok {
		c.stats.Hits++
		c.log.Debug("program cache hit", slog.Uint64("program", uint64(prog.id)))
		return BoundProgram{CompiledProgram: prog, Uniforms: uniforms}, nil
	}
	c.stats.Misses++
	start := time.Now()
	id, err := c.build(vertexSource, fragmentSource)
	c.stats.CompileTime += time.Since(start)
	if err != nil {
		return BoundProgram{}, err
	}
	prog := c.resolve(id, len(uniforms))
	c.entries[key] = prog
	c.order = append(c.order, key)
	c.log.Info("compiled program", slog.Uint64("program", uint64(id)), slog.Duration("elapsed", time.Since(start)), slog.Int("cached", len(c.order)))
	if len(c.order) > c.capacity {
		c.evictOldest()
	}
	return BoundProgram{CompiledProgram: prog, Uniforms: uniforms}, nil
}

// evictOldest removes the earliest inserted entry. The newest entry is never
// the oldest while capacity is at least one.
func (c *Cache) evictOldest() {
	key := c.order[0]
	c.order[0] = ""
	c.order = c.order[1:]
	prog := c.entries[key]
	delete(c.entries, key)
	prog.release()
	c.stats.Evictions++
	c.log.Info("evicted program", slog.Uint64("program", uint64(prog.id)))
}

func (c *Cache) build(vertexSource, fragmentSource string) (uint32, error) {
	vs, err := c.compile(StageVertex, vertexSource)
	if err != nil {
		return 0, err
	}
	defer c.backend.DeleteShader(vs)
	fs, err := c.compile(StageFragment, fragmentSource)
	if err != nil {
		return 0, err
	}
	defer c.backend.DeleteShader(fs)

	prog := c.backend.CreateProgram()
	if prog == 0 {
		return 0, errProgramCreate
	}
	ok, infoLog := c.backend.LinkProgram(prog, vs, fs)
	if !ok {
		c.backend.DeleteProgram(prog)
		return 0, &ShaderLinkError{Log: infoLog}
	}
	return prog, nil
}

func (c *Cache) compile(stage Stage, source string) (uint32, error) {
	shader := c.backend.CreateShader(stage)
	if shader == 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidShaderType, stage)
	}
	ok, infoLog := c.backend.CompileShader(shader, source)
	if !ok {
		c.backend.DeleteShader(shader)
		return 0, &ShaderCompileError{Stage: stage, Log: infoLog}
	}
	return shader, nil
}

// resolve looks up the attribute and uniform locations of a freshly linked program.
func (c *Cache) resolve(id uint32, numConstants int) *CompiledProgram {
	b := c.backend
	prog := &CompiledProgram{
		backend:      b,
		id:           id,
		vertexAttrib: b.AttribLocation(id, glbuild.AttribVertexPosition),
		corner:       b.UniformLocation(id, glbuild.UniformGraphCorner),
		size:         b.UniformLocation(id, glbuild.UniformGraphSize),
		infinity:     b.UniformLocation(id, glbuild.UniformInfinity),
		depsInfinity: b.UniformLocation(id, glbuild.UniformDepsInfinity),
		depsNaN:      b.UniformLocation(id, glbuild.UniformDepsNaN),
		constants:    make([]int32, numConstants),
		named:        make(map[string]int32),
	}
	for i := range prog.constants {
		prog.constants[i] = b.UniformLocation(id, glbuild.ConstantName(i))
	}
	return prog
}

// Len returns the number of cached programs.
func (c *Cache) Len() int { return len(c.order) }

// Capacity returns the maximum number of cached programs.
func (c *Cache) Capacity() int { return c.capacity }

// Contains reports whether a program for the source pair is cached.
func (c *Cache) Contains(vertexSource, fragmentSource string) bool {
	_, ok := c.entries[cacheKey(vertexSource, fragmentSource)]
	return ok
}

// Stats returns the counters accumulated since the cache was created.
func (c *Cache) Stats() CacheStats { return c.stats }

// Invalidate forgets every entry without deleting program objects. Use it after
// the GL context was lost or destroyed since the objects died with it.
func (c *Cache) Invalidate() {
	for _, prog := range c.entries {
		prog.released = true
	}
	clear(c.entries)
	clear(c.order)
	c.order = c.order[:0]
	c.log.Warn("program cache invalidated")
}

// Close deletes every cached program object and empties the cache.
func (c *Cache) Close() {
	for _, key := range c.order {
		c.entries[key].release()
	}
	clear(c.entries)
	clear(c.order)
	c.order = c.order[:0]
}
