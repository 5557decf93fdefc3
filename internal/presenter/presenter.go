// Package presenter is the host-side window, input, and rendering layer
// for the chip8 core, reading chip8.FrameBuffer's read-only view instead
// of reaching into the core's packed byte layout.
package presenter

import (
	"fmt"
	"time"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"golang.org/x/image/colornames"

	"github.com/arjunkrish/chippy8/internal/chip8"
)

const (
	winCols float64 = chip8.ScreenWidth
	winRows float64 = chip8.ScreenHeight
)

// keyRepeatDur is the repeat cadence applied to a held key.
const keyRepeatDur = time.Second / 5

// KeyMap is the canonical CHIP-8 hex keypad, mapped to a QWERTY keyboard
// in the usual 4x4 layout. A host may override it.
var KeyMap = map[uint8]pixelgl.Button{
	0x1: pixelgl.Key1, 0x2: pixelgl.Key2, 0x3: pixelgl.Key3, 0xC: pixelgl.Key4,
	0x4: pixelgl.KeyQ, 0x5: pixelgl.KeyW, 0x6: pixelgl.KeyE, 0xD: pixelgl.KeyR,
	0x7: pixelgl.KeyA, 0x8: pixelgl.KeyS, 0x9: pixelgl.KeyD, 0xE: pixelgl.KeyF,
	0xA: pixelgl.KeyZ, 0x0: pixelgl.KeyX, 0xB: pixelgl.KeyC, 0xF: pixelgl.KeyV,
}

// Window embeds a pixelgl window, scaled to a configurable pixel size, and
// tracks per-key repeat tickers so a held key keeps registering presses
// the way a physical keypad would.
type Window struct {
	*pixelgl.Window
	scale    float64
	keysDown [16]*time.Ticker
}

// NewWindow creates a pixelgl window sized to scale pixels per CHIP-8
// pixel (64*scale x 32*scale).
func NewWindow(title string, scale float64) (*Window, error) {
	width := winCols * scale
	height := winRows * scale

	cfg := pixelgl.WindowConfig{
		Title:  title,
		Bounds: pixel.R(0, 0, width, height),
		VSync:  true,
	}
	w, err := pixelgl.NewWindow(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating window: %w", err)
	}
	return &Window{Window: w, scale: scale}, nil
}

// Draw renders every set pixel in view as a filled rectangle. The core
// never sees pixel pitch or color; this is the only place those live.
func (w *Window) Draw(view [chip8.ScreenHeight][chip8.ScreenWidth]bool) {
	w.Clear(colornames.Black)
	draw := imdraw.New(nil)
	draw.Color = pixel.RGB(1, 1, 1)

	for y := 0; y < chip8.ScreenHeight; y++ {
		for x := 0; x < chip8.ScreenWidth; x++ {
			if !view[y][x] {
				continue
			}
			// Flip y: CHIP-8's origin is top-left, pixel's is bottom-left.
			flippedY := chip8.ScreenHeight - 1 - y
			draw.Push(pixel.V(w.scale*float64(x), w.scale*float64(flippedY)))
			draw.Push(pixel.V(w.scale*float64(x)+w.scale, w.scale*float64(flippedY)+w.scale))
			draw.Rectangle(0)
		}
	}

	draw.Draw(w)
	w.Update()
}

// PollKeys reads the current keyboard state through KeyMap and returns a
// chip8.Keys snapshot, applying key-repeat so a key held across frames
// keeps reading as pressed.
func (w *Window) PollKeys() chip8.Keys {
	var keys chip8.Keys

	for idx, btn := range KeyMap {
		switch {
		case w.JustReleased(btn):
			if t := w.keysDown[idx]; t != nil {
				t.Stop()
				w.keysDown[idx] = nil
			}
		case w.JustPressed(btn):
			if w.keysDown[idx] == nil {
				w.keysDown[idx] = time.NewTicker(keyRepeatDur)
			}
			keys[idx] = true
		case w.Pressed(btn):
			keys[idx] = true
		}

		if w.keysDown[idx] == nil {
			continue
		}
		select {
		case <-w.keysDown[idx].C:
			keys[idx] = true
		default:
		}
	}

	return keys
}
