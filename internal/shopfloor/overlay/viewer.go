package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	// ErrStaleRender 渲染完成前已有新的渲染开始，结果被丢弃
	ErrStaleRender = errors.New("render superseded")
	// ErrDocumentFailed 文档加载或渲染失败，此后不再渲染该文档
	ErrDocumentFailed = errors.New("document failed")
	// ErrNoDocument 尚未加载文档
	ErrNoDocument = errors.New("no document loaded")
)

// Frame 一次渲染的结果
type Frame struct {
	Generation int64
	Layout     PageLayout
	Image      *image.RGBA
}

// Viewer 单文档查看器。
// 每次 Load/Render 取得新的代号，代号被取代的渲染结果一律丢弃；
// 文档失败后只记录日志，不重试，直到加载新文档。
type Viewer struct {
	logger     *zap.Logger
	generation *atomic.Int64
	failed     *atomic.Bool

	mu  sync.RWMutex
	doc *Document
}

// NewViewer 创建查看器
func NewViewer(logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Viewer{
		logger:     logger,
		generation: atomic.NewInt64(0),
		failed:     atomic.NewBool(false),
	}
}

// Load 加载新文档，进行中的渲染全部作废
func (v *Viewer) Load(data []byte) error {
	v.generation.Inc()

	doc, err := OpenDocument(data)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.doc = nil
		v.failed.Store(true)
		v.logger.Error("pdf load failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDocumentFailed, err)
	}
	v.doc = doc
	v.failed.Store(false)
	return nil
}

// Document 当前文档
func (v *Viewer) Document() (*Document, error) {
	if v.failed.Load() {
		return nil, ErrDocumentFailed
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.doc == nil {
		return nil, ErrNoDocument
	}
	return v.doc, nil
}

// Layout 计算全部页面的勾选框布局
func (v *Viewer) Layout(rows []Row, state RowState, opts Options) ([]PageLayout, error) {
	doc, err := v.Document()
	if err != nil {
		return nil, err
	}
	return Layout(doc.Pages(), rows, state, opts), nil
}

// Render 渲染一页。页码或缩放变化时调用方重新调用即可，旧的渲染会返回 ErrStaleRender。
func (v *Viewer) Render(ctx context.Context, page int, rows []Row, state RowState, opts Options) (*Frame, error) {
	token := v.generation.Inc()

	doc, err := v.Document()
	if err != nil {
		return nil, err
	}
	size, err := doc.Page(page)
	if err != nil {
		return nil, err
	}

	opts = opts.normalized()
	pl := LayoutPage(size, GroupByPage(rows)[page], state, opts)

	img, err := rasterize(doc, pl, opts.DevicePixelRatio, func() bool {
		return v.generation.Load() != token || ctx.Err() != nil
	})
	if err != nil {
		if errors.Is(err, errInterrupted) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrStaleRender
		}
		v.fail(doc, page, err)
		return nil, fmt.Errorf("%w: %v", ErrDocumentFailed, err)
	}

	if v.generation.Load() != token {
		return nil, ErrStaleRender
	}
	return &Frame{Generation: token, Layout: pl, Image: img}, nil
}

// fail 标记文档失败；文档已被替换时忽略
func (v *Viewer) fail(doc *Document, page int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.doc != doc {
		return
	}
	v.failed.Store(true)
	v.logger.Error("pdf page render failed", zap.Int("page", page), zap.Error(err))
}
