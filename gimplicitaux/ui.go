//go:build !tinygo && cgo

package gimplicitaux

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/gimplicit"
	"github.com/soypat/gimplicit/glctx"
	"github.com/soypat/gimplicit/glprog"
	"github.com/soypat/gimplicit/glrender"
	"github.com/soypat/gimplicit/internal/slogx"
)

func ui(pkg *gimplicit.Package, cfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()
	dev, err := glctx.New()
	if err != nil {
		return err
	}
	defer dev.Close()
	logger := slogx.OrNop(cfg.Logger)
	cache, err := glprog.NewCache(dev, glprog.CacheConfig{Logger: logger})
	if err != nil {
		return err
	}
	defer cache.Close()
	renderer, err := glrender.NewPackageRenderer(dev, cache, glrender.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer renderer.Release()

	var (
		view           = cfg.View
		lastMouseX     float64
		lastMouseY     float64
		isMousePressed = false
		refresh        = true
		bg             = clearColor(cfg.Background)
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if isMousePressed {
			width, height := w.GetSize()
			view = panView(view, xpos-lastMouseX, ypos-lastMouseY, width, height)
			refresh = true
		}
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		width, height := w.GetSize()
		x, y := w.GetCursorPos()
		anchor := view.MathCoord(screenToTex(x, y, width, height))
		view = zoomView(view, anchor, math32.Pow(0.9, float32(yoff)))
		refresh = true
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			isMousePressed = true
			lastMouseX, lastMouseY = w.GetCursorPos()
		case glfw.Release:
			isMousePressed = false
		}
	})

	ctx := cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		// The default framebuffer may be larger than the window on high DPI displays.
		fbWidth, fbHeight := window.GetFramebufferSize()
		if fbWidth > 0 && fbHeight > 0 {
			screen := glrender.Target{Width: fbWidth, Height: fbHeight}
			dev.Clear(screen, bg)
			err = renderer.Render(screen, pkg, view)
			if err != nil {
				return err
			}
			frame := renderer.LastFrame()
			logger.Debug("frame", slog.Int("passes", frame.Passes), slog.Duration("elapsed", frame.Elapsed))
			window.SwapBuffers()
		}

		// Limit frame rate and only redraw on user input.
		for {
			time.Sleep(time.Second / 60)
			glfw.PollEvents()
			if refresh || window.ShouldClose() || (ctx != nil && ctx.Err() != nil) {
				refresh = false
				break
			}
		}
	}
	return nil
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, "gimplicit", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
