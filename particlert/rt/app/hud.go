package app

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextVertex matches TextIn of text.wgsl.
type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextItem is one string placed in pixels from the top-left corner.
type TextItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// HUD lays out overlay text against a glyph atlas of printable ASCII.
type HUD struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Face       font.Face
	Items      []TextItem
}

const atlasSize = 256

// NewHUD rasterises face into an atlas; nil uses the built-in 7x13 bitmap font.
func NewHUD(face font.Face) *HUD {
	if face == nil {
		face = basicfont.Face7x13
	}
	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 1, 1
	rowHeight := 0
	for r := rune(32); r < 127; r++ {
		dr, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w, h := dr.Dx(), dr.Dy()
		if x+w >= atlasSize {
			x = 1
			y += rowHeight + 2
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}
		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, maskp, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(dr.Min.X), float32(dr.Min.Y)},
			Adv:   float32(adv) / 64,
		}
		x += w + 2
		if h > rowHeight {
			rowHeight = h
		}
	}
	return &HUD{AtlasImage: atlas, Glyphs: glyphs, Face: face}
}

func (h *HUD) Clear() { h.Items = h.Items[:0] }

func (h *HUD) Print(text string, x, y, scale float32, color [4]float32) {
	h.Items = append(h.Items, TextItem{Text: text, Position: [2]float32{x, y}, Scale: scale, Color: color})
}

// BuildVertices emits two triangles per glyph in normalized device coordinates.
func (h *HUD) BuildVertices(screenW, screenH int) []TextVertex {
	vertices := make([]TextVertex, 0, len(h.Items)*64)
	sw, sh := float32(screenW), float32(screenH)
	metrics := h.Face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range h.Items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				posX = startX
				posY += lineHeight * item.Scale
				continue
			}
			g, ok := h.Glyphs[r]
			if !ok {
				continue
			}
			x0 := (posX+g.Off[0]*item.Scale)/sw*2 - 1
			y0 := 1 - (posY+g.Off[1]*item.Scale)/sh*2
			x1 := (posX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2 - 1
			y1 := 1 - (posY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2

			vertices = append(vertices,
				TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
			)
			posX += g.Adv * item.Scale
		}
	}
	return vertices
}

// MeasureText returns the pixel width and height of text at scale.
func (h *HUD) MeasureText(text string, scale float32) (float32, float32) {
	lineHeight := float32(h.Face.Metrics().Height.Ceil())
	maxW, cur := float32(0), float32(0)
	lines := 1
	for _, r := range text {
		if r == '\n' {
			maxW = max(maxW, cur)
			cur = 0
			lines++
			continue
		}
		if g, ok := h.Glyphs[r]; ok {
			cur += g.Adv * scale
		}
	}
	return max(maxW, cur), lineHeight * scale * float32(lines)
}
