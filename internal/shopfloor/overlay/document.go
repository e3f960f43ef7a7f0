package overlay

import (
	"bytes"
	"errors"
	"fmt"

	pdf "github.com/ledongthuc/pdf"
)

// 未声明 MediaBox 时按 A4 处理
const (
	defaultPageWidth  = 595.0
	defaultPageHeight = 842.0
)

// ErrPageOutOfRange 页码超出文档范围
var ErrPageOutOfRange = errors.New("page out of range")

// Document 已加载的 PDF 文档
type Document struct {
	reader *pdf.Reader
	pages  []PageSize
}

// OpenDocument 从内存加载 PDF
func OpenDocument(data []byte) (doc *Document, err error) {
	// ledongthuc/pdf 遇到损坏文件会 panic
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("open pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	if n <= 0 {
		return nil, fmt.Errorf("open pdf: document has no pages")
	}
	pages := make([]PageSize, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, pageSize(reader.Page(i), i))
	}
	return &Document{reader: reader, pages: pages}, nil
}

// NumPage 页数
func (d *Document) NumPage() int {
	return len(d.pages)
}

// Pages 所有页面尺寸
func (d *Document) Pages() []PageSize {
	out := make([]PageSize, len(d.pages))
	copy(out, d.pages)
	return out
}

// Page 单页尺寸，页码从 1 开始
func (d *Document) Page(n int) (PageSize, error) {
	if n < 1 || n > len(d.pages) {
		return PageSize{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// content 读取页面文字与矩形
func (d *Document) content(n int) (c pdf.Content, err error) {
	if _, err := d.Page(n); err != nil {
		return pdf.Content{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read page %d: %v", n, r)
		}
	}()
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return pdf.Content{}, fmt.Errorf("read page %d: missing page object", n)
	}
	return p.Content(), nil
}

// pageSize 读取可继承的 MediaBox
func pageSize(p pdf.Page, n int) PageSize {
	size := PageSize{Number: n, Width: defaultPageWidth, Height: defaultPageHeight}
	box := inherited(p.V, "MediaBox")
	if box.Len() != 4 {
		return size
	}
	llx, lly := box.Index(0).Float64(), box.Index(1).Float64()
	urx, ury := box.Index(2).Float64(), box.Index(3).Float64()
	if urx-llx <= 0 || ury-lly <= 0 {
		return size
	}
	size.Width = urx - llx
	size.Height = ury - lly
	size.OriginX = llx
	size.OriginY = lly
	return size
}

func inherited(v pdf.Value, key string) pdf.Value {
	for ; !v.IsNull(); v = v.Key("Parent") {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
	}
	return pdf.Value{}
}
