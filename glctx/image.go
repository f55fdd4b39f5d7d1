// Package glctx implements the rendering device on an OpenGL 4.1 core context
// using go-gl. Every call must be made from the thread the context is current on,
// see [runtime.LockOSThread].
package glctx

import (
	"errors"
	"image"
)

// ErrNoCGO is returned by every GPU operation in builds without cgo.
var ErrNoCGO = errors.New("GPU rendering requires CGo and is not supported on TinyGo")

// flipRows reverses the row order of img in place. GL framebuffers store the
// bottom row first while images store the top row first.
func flipRows(img *image.RGBA) {
	h := img.Rect.Dy()
	rowLen := img.Rect.Dx() * 4
	tmp := make([]byte, rowLen)
	for top, bot := 0, h-1; top < bot; top, bot = top+1, bot-1 {
		rowTop := img.Pix[top*img.Stride : top*img.Stride+rowLen]
		rowBot := img.Pix[bot*img.Stride : bot*img.Stride+rowLen]
		copy(tmp, rowTop)
		copy(rowTop, rowBot)
		copy(rowBot, tmp)
	}
}
