// trace_overlay.go - Renders the visible trace tree into an RGBA image for PNG export

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	overlayCols   = 100
	overlayMargin = 4
	overlayBG     = 0x0055AAFF // deep blue background
	overlayHeader = 0x003366FF
)

// TraceOverlay draws rendered view lines in a fixed-pitch font.
type TraceOverlay struct {
	face   font.Face
	cellW  int
	cellH  int
	ascent int
	cols   int
}

// NewTraceOverlay creates an overlay using the 7x13 basic font.
func NewTraceOverlay() *TraceOverlay {
	face := basicfont.Face7x13
	return &TraceOverlay{
		face:   face,
		cellW:  face.Advance,
		cellH:  face.Height,
		ascent: face.Ascent,
		cols:   overlayCols,
	}
}

// colorFromPacked converts a packed 0xRRGGBBAA to a color.
func colorFromPacked(c uint32) color.RGBA {
	return color.RGBA{R: byte(c >> 24), G: byte(c >> 16), B: byte(c >> 8), A: byte(c)}
}

// Render draws a header row followed by lines. Lines wider than the overlay
// are truncated.
func (o *TraceOverlay) Render(header string, lines []ViewLine) *image.RGBA {
	w := o.cols*o.cellW + 2*overlayMargin
	h := (len(lines)+1)*o.cellH + 2*overlayMargin
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorFromPacked(overlayBG)), image.Point{}, draw.Src)

	headRect := image.Rect(0, 0, w, overlayMargin+o.cellH)
	draw.Draw(img, headRect, image.NewUniform(colorFromPacked(overlayHeader)), image.Point{}, draw.Src)
	o.drawString(img, header, 0, colorCyan)

	for i, l := range lines {
		o.drawString(img, l.Text, i+1, l.Color)
	}
	return img
}

func (o *TraceOverlay) drawString(img *image.RGBA, s string, row int, fg uint32) {
	if len(s) > o.cols {
		s = s[:o.cols]
	}
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(colorFromPacked(fg)),
		Face: o.face,
		Dot:  fixed.P(overlayMargin, overlayMargin+row*o.cellH+o.ascent),
	}
	d.DrawString(s)
}

// EncodePNG renders and encodes the image.
func (o *TraceOverlay) EncodePNG(header string, lines []ViewLine) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, o.Render(header, lines)); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes the rendered view to path.
func (o *TraceOverlay) SavePNG(path, header string, lines []ViewLine) error {
	data, err := o.EncodePNG(header, lines)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
