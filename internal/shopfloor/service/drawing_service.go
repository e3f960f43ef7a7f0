package service

import (
	"bytes"
	"context"
	"errors"

	"github.com/bitfantasy/nimo-shopfloor/internal/config"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/handoff"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/metrics"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/overlay"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/storage"
	"go.uber.org/zap"
)

// DrawingRequest 图纸渲染参数
type DrawingRequest struct {
	Department       entity.Department
	OrderID          int64
	AttachmentURL    string
	Scale            float64
	DevicePixelRatio float64
	ViewOnly         bool
}

// DrawingLayout 图纸各页尺寸与勾选框位置
type DrawingLayout struct {
	AttachmentURL string               `json:"attachment_url"`
	Scale         float64              `json:"scale"`
	Interactive   bool                 `json:"interactive"`
	Stage         handoff.Stage        `json:"stage,omitempty"`
	Pages         []overlay.PageLayout `json:"pages"`
}

// DrawingService 图纸叠加层与页面栅格
type DrawingService struct {
	client   *backend.Client
	fetcher  *storage.Fetcher
	workflow *handoff.Workflow
	cfg      config.OverlayConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewDrawingService(client *backend.Client, fetcher *storage.Fetcher, workflow *handoff.Workflow, cfg config.OverlayConfig, m *metrics.Metrics, logger *zap.Logger) *DrawingService {
	return &DrawingService{client: client, fetcher: fetcher, workflow: workflow, cfg: cfg, metrics: m, logger: logger}
}

func (s *DrawingService) options(req DrawingRequest, interactive bool) overlay.Options {
	scale := req.Scale
	if scale == 0 {
		scale = s.cfg.DefaultScale
	}
	dpr := req.DevicePixelRatio
	if dpr <= 0 {
		dpr = s.cfg.DevicePixelRatio
	}
	return overlay.Options{
		Scale:            overlay.ClampScale(scale),
		DevicePixelRatio: overlay.ClampDevicePixelRatio(dpr),
		Interactive:      interactive,
	}
}

// prepare 下载并打开 PDF，取行锚点与勾选状态。
// 行数据或勾选状态获取失败时退化为无勾选框，不影响图纸预览。
func (s *DrawingService) prepare(ctx context.Context, req DrawingRequest) (*overlay.Viewer, []overlay.Row, overlay.RowState, *handoff.Board, error) {
	if req.AttachmentURL == "" {
		return nil, nil, nil, nil, invalid("attachment_url is required")
	}
	if !entity.IsPDFURL(req.AttachmentURL) {
		return nil, nil, nil, nil, invalid("attachment is not a PDF")
	}

	data, err := s.fetcher.Fetch(ctx, req.AttachmentURL)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	viewer := overlay.NewViewer(s.logger)
	if err := viewer.Load(data); err != nil {
		return nil, nil, nil, nil, err
	}
	if req.ViewOnly {
		return viewer, nil, nil, nil, nil
	}

	subnests, err := s.client.SubnestData(ctx, req.AttachmentURL)
	if err != nil {
		if isAuth(err) {
			return nil, nil, nil, nil, err
		}
		s.logger.Warn("subnest rows unavailable", zap.String("attachment_url", req.AttachmentURL), zap.Error(err))
	}
	rows := overlay.RowsFromSubnests(subnests)

	board, err := s.workflow.Board(ctx, req.Department, req.OrderID, req.AttachmentURL)
	switch {
	case errors.Is(err, handoff.ErrNoSelectionColumn):
		// 没有勾选列的部门只读查看
		return viewer, rows, nil, nil, nil
	case err != nil:
		if isAuth(err) {
			return nil, nil, nil, nil, err
		}
		s.logger.Warn("selection unavailable", zap.Int64("order_id", req.OrderID), zap.Error(err))
		return viewer, rows, nil, nil, nil
	}
	return viewer, rows, board.RowState, board, nil
}

// Layout 全部页面的布局
func (s *DrawingService) Layout(ctx context.Context, req DrawingRequest) (*DrawingLayout, error) {
	viewer, rows, state, board, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	interactive := board != nil
	opts := s.options(req, interactive)
	pages, err := viewer.Layout(rows, state, opts)
	if err != nil {
		return nil, err
	}

	out := &DrawingLayout{
		AttachmentURL: req.AttachmentURL,
		Scale:         opts.Scale,
		Interactive:   interactive,
		Pages:         pages,
	}
	if board != nil {
		out.Stage = board.Stage()
	}
	return out, nil
}

// RenderPage 单页 PNG
func (s *DrawingService) RenderPage(ctx context.Context, req DrawingRequest, page int) ([]byte, error) {
	viewer, rows, state, board, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	frame, err := viewer.Render(ctx, page, rows, state, s.options(req, board != nil))
	s.metrics.Render(err)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := overlay.EncodePNG(&buf, frame.Image); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
