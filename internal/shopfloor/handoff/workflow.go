package handoff

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/metrics"
	"go.uber.org/zap"
)

// Backend 交接流程依赖的后端接口
type Backend interface {
	SubnestData(ctx context.Context, attachmentURL string) ([]entity.SubnestRow, error)
	PartsData(ctx context.Context, attachmentURL string) ([]entity.PartRow, error)
	MaterialData(ctx context.Context, attachmentURL string) ([]entity.MaterialRow, error)
	GetRowSelection(ctx context.Context, orderID int64, attachmentURL string) (*entity.RowSelection, error)
	SaveRowSelection(ctx context.Context, orderID int64, sel entity.RowSelection) (*entity.RowSelection, error)
	GetDepartmentSelection(ctx context.Context, endpoint backend.SelectionEndpoint, orderID int64, attachmentURL string) (*entity.RowSelection, error)
	AdvanceWithSelection(ctx context.Context, endpoint backend.SelectionEndpoint, orderID int64, sel entity.RowSelection) (*entity.Order, error)
	TransitionDepartment(ctx context.Context, id int64, dept entity.Department) (*entity.Order, error)
}

// Workbench 一次打开的结果：解析表格 + 勾选面板
type Workbench struct {
	OrderID       int64                `json:"order_id"`
	AttachmentURL string               `json:"attachment_url"`
	Subnests      []entity.SubnestRow  `json:"subnests"`
	Parts         []entity.PartRow     `json:"parts"`
	Materials     []entity.MaterialRow `json:"materials"`
	// Warnings 获取失败的数据源，对应表格为空
	Warnings []string `json:"warnings,omitempty"`

	Board *Board `json:"-"`
}

// SendResult 发送结果
type SendResult struct {
	Selection *entity.RowSelection `json:"selection"`
	Order     *entity.Order        `json:"order"`
}

// Workflow 打开/保存/发送
type Workflow struct {
	backend Backend
	logger  *zap.Logger
	metrics *metrics.Metrics
	seed    bool
}

// NewWorkflow 创建交接流程；seed 控制是否允许上一部门预填
func NewWorkflow(b Backend, logger *zap.Logger, m *metrics.Metrics, seed bool) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{backend: b, logger: logger, metrics: m, seed: seed}
}

// Open 打开订单附件：每次都重新获取表格与勾选状态。
// 单个数据源失败只记录日志并留空，登录失效除外。
func (w *Workflow) Open(ctx context.Context, dept entity.Department, orderID int64, attachmentURL string) (*Workbench, error) {
	cfg, err := ConfigFor(dept)
	if err != nil {
		return nil, err
	}

	wb := &Workbench{
		OrderID:       orderID,
		AttachmentURL: attachmentURL,
		Subnests:      []entity.SubnestRow{},
		Parts:         []entity.PartRow{},
		Materials:     []entity.MaterialRow{},
	}

	var authErr error
	tolerate := func(source string, err error) {
		if isAuthError(err) && authErr == nil {
			authErr = err
		}
		w.logger.Warn("workbench fetch failed",
			zap.String("source", source),
			zap.Int64("order_id", orderID),
			zap.String("department", string(dept)),
			zap.Error(err),
		)
		wb.Warnings = append(wb.Warnings, source)
	}

	if rows, err := w.backend.SubnestData(ctx, attachmentURL); err != nil {
		tolerate("subnests", err)
	} else if rows != nil {
		wb.Subnests = rows
	}
	if rows, err := w.backend.PartsData(ctx, attachmentURL); err != nil {
		tolerate("parts", err)
	} else if rows != nil {
		wb.Parts = rows
	}
	if rows, err := w.backend.MaterialData(ctx, attachmentURL); err != nil {
		tolerate("materials", err)
	} else if rows != nil {
		wb.Materials = rows
	}

	sel, err := w.fetchSelection(ctx, cfg, orderID, attachmentURL)
	if err != nil {
		tolerate("selection", err)
		sel = entity.RowSelection{}
	}

	if authErr != nil {
		w.metrics.HandoffAction(string(dept), "open", authErr)
		return nil, authErr
	}

	wb.Board = NewBoard(cfg, orderID, attachmentURL, sel, w.seed)
	w.metrics.HandoffAction(string(dept), "open", nil)
	return wb, nil
}

// Board 只获取勾选状态（保存/发送前重建面板）。预填规则与 Open 相同，
// 打开时看到的预填勾选在未提交 rows 时原样保存/发送
func (w *Workflow) Board(ctx context.Context, dept entity.Department, orderID int64, attachmentURL string) (*Board, error) {
	cfg, err := ConfigFor(dept)
	if err != nil {
		return nil, err
	}
	sel, err := w.fetchSelection(ctx, cfg, orderID, attachmentURL)
	if err != nil {
		return nil, err
	}
	return NewBoard(cfg, orderID, attachmentURL, sel, w.seed), nil
}

// fetchSelection 合并勾选状态；404 视为尚未勾选。
// 有专属接口的部门在合并状态中没有本部门列时，再从专属接口补取。
func (w *Workflow) fetchSelection(ctx context.Context, cfg DepartmentConfig, orderID int64, attachmentURL string) (entity.RowSelection, error) {
	var sel entity.RowSelection
	got, err := w.backend.GetRowSelection(ctx, orderID, attachmentURL)
	switch {
	case errors.Is(err, backend.ErrNotFound):
	case err != nil:
		return entity.RowSelection{}, err
	case got != nil:
		sel = *got
	}

	if cfg.Endpoint == "" || len(sel.Column(cfg.Own)) > 0 {
		return sel, nil
	}
	own, err := w.backend.GetDepartmentSelection(ctx, cfg.Endpoint, orderID, attachmentURL)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			w.logger.Warn("department selection fetch failed",
				zap.String("endpoint", string(cfg.Endpoint)),
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)
		}
		return sel, nil
	}
	if own != nil {
		rows := own.Column(cfg.Own)
		if len(rows) == 0 && !hasColumns(*own) {
			rows = own.SelectedRowIDs
		}
		sel = sel.WithColumn(cfg.Own, rows)
	}
	return sel, nil
}

// Save 保存本部门勾选（请求体为完整并集，重复保存结果不变）
func (w *Workflow) Save(ctx context.Context, b *Board) (*entity.RowSelection, error) {
	dept := string(b.cfg.Own)
	saved, err := w.save(ctx, b)
	w.metrics.HandoffAction(dept, "save", err)
	return saved, err
}

func (w *Workflow) save(ctx context.Context, b *Board) (*entity.RowSelection, error) {
	payload := b.Payload()
	saved, err := w.backend.SaveRowSelection(ctx, b.orderID, payload)
	if err != nil {
		w.logger.Warn("save selection failed",
			zap.Int64("order_id", b.orderID),
			zap.String("department", string(b.cfg.Own)),
			zap.Error(err),
		)
		return nil, err
	}
	// 后端响应体为空时以请求体为准
	if saved == nil || (len(saved.Union()) == 0 && len(payload.Union()) > 0) {
		saved = &payload
	}
	return saved, nil
}

// Send 保存并推进到下一个部门。本部门列为空时不发起任何请求。
func (w *Workflow) Send(ctx context.Context, b *Board) (*SendResult, error) {
	dept := string(b.cfg.Own)
	if !b.CanSend() {
		w.metrics.HandoffAction(dept, "send", ErrEmptySelection)
		return nil, ErrEmptySelection
	}

	saved, err := w.save(ctx, b)
	if err != nil {
		w.metrics.HandoffAction(dept, "send", err)
		return nil, err
	}

	var order *entity.Order
	if b.cfg.Endpoint != "" {
		order, err = w.backend.AdvanceWithSelection(ctx, b.cfg.Endpoint, b.orderID, b.Payload())
	} else {
		order, err = w.backend.TransitionDepartment(ctx, b.orderID, b.cfg.Next)
	}
	w.metrics.HandoffAction(dept, "send", err)
	if err != nil {
		w.logger.Warn("advance order failed",
			zap.Int64("order_id", b.orderID),
			zap.String("from", dept),
			zap.String("to", string(b.cfg.Next)),
			zap.Error(err),
		)
		return nil, err
	}

	w.logger.Info("order handed off",
		zap.Int64("order_id", b.orderID),
		zap.String("from", dept),
		zap.String("to", string(b.cfg.Next)),
		zap.Ints("rows", b.Own()),
	)
	return &SendResult{Selection: saved, Order: order}, nil
}

func hasColumns(sel entity.RowSelection) bool {
	for _, d := range entity.SelectionDepartments {
		if len(sel.Column(d)) > 0 {
			return true
		}
	}
	return false
}

func isAuthError(err error) bool {
	return errors.Is(err, backend.ErrUnauthorized) ||
		errors.Is(err, auth.ErrNoSession) ||
		errors.Is(err, auth.ErrSessionExpired)
}
