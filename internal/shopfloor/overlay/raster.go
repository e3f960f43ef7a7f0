package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	pdf "github.com/ledongthuc/pdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// errInterrupted 渲染过程中被取代或取消
var errInterrupted = errors.New("render interrupted")

var (
	paperColor    = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	inkColor      = color.RGBA{R: 0x1f, G: 0x1f, B: 0x1f, A: 0xff}
	ruleColor     = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	checkColor    = color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff}
	disabledColor = color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
)

// checkInterval 每绘制多少个元素检查一次取消
const checkInterval = 256

// Rasterize 把页面绘制到按设备像素比放大的画布上，并叠加布局中的勾选框。
// pl 必须由同一文档的页面尺寸计算得到。
func Rasterize(ctx context.Context, doc *Document, pl PageLayout, devicePixelRatio float64) (*image.RGBA, error) {
	img, err := rasterize(doc, pl, devicePixelRatio, func() bool { return ctx.Err() != nil })
	if errors.Is(err, errInterrupted) {
		return nil, ctx.Err()
	}
	return img, err
}

func rasterize(doc *Document, pl PageLayout, devicePixelRatio float64, interrupted func() bool) (*image.RGBA, error) {
	page, err := doc.Page(pl.Page)
	if err != nil {
		return nil, err
	}
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	if pl.BackingWidth <= 0 || pl.BackingHeight <= 0 {
		return nil, fmt.Errorf("page %d: empty backing surface", pl.Page)
	}

	content, err := doc.content(pl.Page)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, pl.BackingWidth, pl.BackingHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(paperColor), image.Point{}, draw.Src)

	// PDF 坐标 → 画布像素
	k := pl.Scale * devicePixelRatio
	toX := func(x float64) float64 { return (x - page.OriginX) * k }
	toY := func(y float64) float64 { return (page.Height - (y - page.OriginY)) * k }

	for i, r := range content.Rect {
		if i%checkInterval == 0 && interrupted() {
			return nil, errInterrupted
		}
		strokeRect(img, toX(r.Min.X), toY(r.Max.Y), toX(r.Max.X), toY(r.Min.Y), ruleColor)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(inkColor),
		Face: basicfont.Face7x13,
	}
	for i, t := range content.Text {
		if i%checkInterval == 0 && interrupted() {
			return nil, errInterrupted
		}
		drawText(d, t, toX(t.X), toY(t.Y))
	}

	for _, cb := range pl.Checkboxes {
		drawCheckbox(img, cb, devicePixelRatio)
	}

	if interrupted() {
		return nil, errInterrupted
	}
	return img, nil
}

func drawText(d *font.Drawer, t pdf.Text, x, y float64) {
	if t.S == "" {
		return
	}
	d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
	d.DrawString(t.S)
}

func drawCheckbox(img *image.RGBA, cb Checkbox, dpr float64) {
	x0, y0 := cb.Left*dpr, cb.Top*dpr
	size := CheckboxSize * dpr
	c := checkColor
	if cb.Disabled {
		c = disabledColor
	}
	strokeRect(img, x0, y0, x0+size, y0+size, c)
	if cb.Checked {
		inset := math.Max(2, size/4)
		fillRect(img, x0+inset, y0+inset, x0+size-inset, y0+size-inset, c)
	}
}

func pixelRect(x0, y0, x1, y1 float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(math.Min(x0, x1))),
		int(math.Floor(math.Min(y0, y1))),
		int(math.Ceil(math.Max(x0, x1))),
		int(math.Ceil(math.Max(y0, y1))),
	)
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 float64, c color.Color) {
	r := pixelRect(x0, y0, x1, y1).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeRect(img *image.RGBA, x0, y0, x1, y1 float64, c color.Color) {
	r := pixelRect(x0, y0, x1, y1)
	if r.Dx() <= 1 || r.Dy() <= 1 {
		fillRect(img, float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y), c)
		return
	}
	minX, minY := float64(r.Min.X), float64(r.Min.Y)
	maxX, maxY := float64(r.Max.X), float64(r.Max.Y)
	fillRect(img, minX, minY, maxX, minY+1, c)
	fillRect(img, minX, maxY-1, maxX, maxY, c)
	fillRect(img, minX, minY, minX+1, maxY, c)
	fillRect(img, maxX-1, minY, maxX, maxY, c)
}

// EncodePNG 输出 PNG
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
