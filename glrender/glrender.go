package glrender

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"time"

	"github.com/soypat/gimplicit/glbuild"
	"github.com/soypat/gimplicit/glprog"
)

// ErrZeroSize is returned when rendering to a target with no pixels.
var ErrZeroSize = errors.New("zero sized render target")

// Target is a render destination. Framebuffer 0 is the default framebuffer of the
// current context, in which case Texture is unused.
type Target struct {
	Framebuffer uint32
	Texture     uint32
	Width       int
	Height      int
}

// Device is the GL API surface used by the renderers on top of program management.
// All methods must be called from the goroutine owning the GL context.
type Device interface {
	glprog.Backend
	// CreateTarget allocates an RGBA32F texture of the given size with nearest
	// filtering and clamp to edge wrapping, and a framebuffer rendering to it.
	CreateTarget(width, height int) (Target, error)
	DeleteTarget(t Target)
	// BindTarget directs subsequent draws to t and sets the viewport to its size.
	BindTarget(t Target)
	// BindTexture binds the texture of t to the given texture unit.
	BindTexture(unit int, t Target)
	// SetBlending enables or disables SRC_ALPHA, ONE_MINUS_SRC_ALPHA color blending.
	// Alpha is blended with ONE, ONE_MINUS_SRC_ALPHA.
	SetBlending(enabled bool)
	// DrawQuad draws the fullscreen quad feeding vertex positions to attrib.
	DrawQuad(attrib int32) error
	// Err returns the first pending driver error, if any.
	Err() error
}

// Config configures the renderers of this package.
type Config struct {
	Logger *slog.Logger
	// Builder generates the pass sources. Nil selects [glbuild.NewDefaultBuilder].
	Builder *glbuild.Builder
}

// FrameStats describes the last render of a renderer.
type FrameStats struct {
	// Passes is the number of fullscreen draws issued.
	Passes int
	// Steps is the number of jump flood steps.
	Steps int
	// Elapsed is the CPU side wall time spent issuing the frame.
	Elapsed time.Duration
}

func (fs *FrameStats) begin() time.Time {
	*fs = FrameStats{}
	return time.Now()
}

// StepCount returns the number of jump flood steps for a width x height target,
// ceil(log2(max(width, height))). Targets of one pixel need no steps.
func StepCount(width, height int) int {
	m := max(width, height)
	if m <= 1 {
		return 0
	}
	return bits.Len(uint(m - 1))
}

// StepWidth returns the sampling stride in pixels of step i of numSteps, 2^(numSteps-i-1).
func StepWidth(i, numSteps int) int {
	if i < 0 || i >= numSteps {
		return 0
	}
	return 1 << (numSteps - i - 1)
}

// StepSchedule returns the strides of every jump flood step for a width x height target.
func StepSchedule(width, height int) []int {
	n := StepCount(width, height)
	widths := make([]int, n)
	for i := range widths {
		widths[i] = StepWidth(i, n)
	}
	return widths
}

func glErrOrMessage(dev Device, defaultMsg string) error {
	err := dev.Err()
	if err == nil {
		return errors.New(defaultMsg)
	}
	return fmt.Errorf("%s: %w", defaultMsg, err)
}
