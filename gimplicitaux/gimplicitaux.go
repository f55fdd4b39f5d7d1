// Package gimplicitaux contains helpers to get started plotting implicit relations
// without wiring a GL context, a program cache and renderers by hand.
// Applications with their own render loop should use glrender directly.
package gimplicitaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gimplicit"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	defaultSize = 512
	// defaultSpan is the math-space extent shown along the shortest axis when no view is given.
	defaultSpan = 4
)

type PNGConfig struct {
	Width, Height int
	// View is the region of the plane drawn. If zero a view centered on the
	// origin is fitted to the image.
	View gimplicit.View
	// Caption is drawn in the bottom left corner of the image if not empty.
	Caption string
	// Background is drawn under the plot. Nil means transparent.
	Background color.Color
	Logger     *slog.Logger
}

type UIConfig struct {
	Width, Height int
	// View is the initial region of the plane drawn. If zero a view centered on the
	// origin is fitted to the window.
	View gimplicit.View
	// Background is the window clear color. Nil means white.
	Background color.Color
	// Context may be used to close the window.
	Context context.Context
	Logger  *slog.Logger
}

// RenderPNGFile renders every relation of pkg offscreen and writes the result as a PNG to filename.
// The calling goroutine is locked to its thread for the duration of the render.
func RenderPNGFile(filename string, pkg *gimplicit.Package, cfg PNGConfig) error {
	img, err := RenderImage(pkg, cfg)
	if err != nil {
		return err
	}
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	err = png.Encode(fp, img)
	if err != nil {
		fp.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return fp.Close()
}

// RenderImage renders every relation of pkg offscreen and returns the image with the caption drawn.
func RenderImage(pkg *gimplicit.Package, cfg PNGConfig) (*image.RGBA, error) {
	if pkg == nil {
		return nil, errors.New("nil package")
	}
	err := cfg.setDefaults()
	if err != nil {
		return nil, err
	}
	watch := stopwatch()
	img, err := renderImage(pkg, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("rendered package", slog.Int("chunks", len(pkg.Chunks)), slog.Duration("elapsed", watch()))
	}
	if cfg.Caption != "" {
		err = drawCaption(img, cfg.Caption, contrastColor(cfg.Background))
		if err != nil {
			return nil, fmt.Errorf("drawing caption: %w", err)
		}
	}
	return img, nil
}

// UI opens a window plotting pkg. Drag with the left mouse button to pan and scroll to zoom.
// UI blocks until the window is closed or the context is done and must be called from the main goroutine.
func UI(pkg *gimplicit.Package, cfg UIConfig) error {
	if pkg == nil {
		return errors.New("nil package")
	}
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = defaultSize, defaultSize
	} else if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.View == (gimplicit.View{}) {
		cfg.View = gimplicit.Fit(ms2.Vec{}, defaultSpan, cfg.Width, cfg.Height)
	} else if err := cfg.View.Validate(); err != nil {
		return err
	}
	if cfg.Background == nil {
		cfg.Background = color.White
	}
	return ui(pkg, cfg)
}

func (cfg *PNGConfig) setDefaults() error {
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = defaultSize, defaultSize
	} else if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.View == (gimplicit.View{}) {
		cfg.View = gimplicit.Fit(ms2.Vec{}, defaultSpan, cfg.Width, cfg.Height)
	}
	if cfg.Background == nil {
		cfg.Background = color.Transparent
	}
	return cfg.View.Validate()
}

var captionFont *truetype.Font

func drawCaption(dst draw.Image, caption string, c color.Color) error {
	if captionFont == nil {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return err
		}
		captionFont = f
	}
	bounds := dst.Bounds()
	size := max(12, float64(bounds.Dy())/32)
	face := truetype.NewFace(captionFont, &truetype.Options{Size: size, Hinting: font.HintingFull})
	defer face.Close()
	pad := fixed.I(int(size / 2))
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(bounds.Min.X) + pad, Y: fixed.I(bounds.Max.Y) - pad - face.Metrics().Descent},
	}
	if d.MeasureString(caption) > fixed.I(bounds.Dx())-2*pad {
		return fmt.Errorf("caption %q wider than image", caption)
	}
	d.DrawString(caption)
	return nil
}

// contrastColor returns black over light or transparent backgrounds and white over dark ones.
func contrastColor(bg color.Color) color.Color {
	if bg == nil {
		return color.Black
	}
	c := color.NRGBAModel.Convert(bg).(color.NRGBA)
	if c.A < 128 {
		return color.Black
	}
	// Rec. 601 luma.
	luma := (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
	if luma < 128 {
		return color.White
	}
	return color.Black
}

// screenToTex maps window pixel coordinates, y pointing down, to texture coordinates.
func screenToTex(x, y float64, width, height int) ms2.Vec {
	return ms2.Vec{X: float32(x) / float32(width), Y: 1 - float32(y)/float32(height)}
}

// panView moves v so that the content under the cursor follows a drag of (dx,dy) window pixels.
func panView(v gimplicit.View, dx, dy float64, width, height int) gimplicit.View {
	delta := ms2.MulElem(v.Size, ms2.Vec{X: float32(dx) / float32(width), Y: -float32(dy) / float32(height)})
	v.Corner = ms2.Sub(v.Corner, delta)
	return v
}

// zoomView scales v by factor keeping the math point anchor fixed on screen.
func zoomView(v gimplicit.View, anchor ms2.Vec, factor float32) gimplicit.View {
	v.Corner = ms2.Sub(anchor, ms2.Scale(factor, ms2.Sub(anchor, v.Corner)))
	v.Size = ms2.Scale(factor, v.Size)
	return v
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// clearColor returns the premultiplied components of c, matching the layout
// of the [image.RGBA] read back from the render target.
func clearColor(c color.Color) [4]float32 {
	r, g, b, a := c.RGBA()
	return [4]float32{float32(r) / 0xffff, float32(g) / 0xffff, float32(b) / 0xffff, float32(a) / 0xffff}
}
