package handoff

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

var (
	// ErrEmptySelection 本部门未勾选任何行时不能发送
	ErrEmptySelection = errors.New("select at least one row before sending")
	// ErrNoSelectionColumn 部门没有勾选列
	ErrNoSelectionColumn = errors.New("department has no selection column")
	// ErrInvalidRow 行号必须为正整数
	ErrInvalidRow = errors.New("invalid row id")
)

// Column 展示给某部门的一列勾选框
type Column struct {
	Department entity.Department `json:"department"`
	Rows       []int             `json:"rows"`
	Disabled   bool              `json:"disabled"`
}

// Board 一次打开的勾选状态。
// 上游列只读，本部门列可编辑，下游列原样带回；不跨打开保存任何状态。
type Board struct {
	cfg           DepartmentConfig
	orderID       int64
	attachmentURL string

	persisted entity.RowSelection
	own       map[int]struct{}
	seeded    bool
}

// NewBoard 由后端最新的勾选状态构建；seed 为 true 时按部门配置预填一次
func NewBoard(cfg DepartmentConfig, orderID int64, attachmentURL string, persisted entity.RowSelection, seed bool) *Board {
	persisted = attribute(cfg, persisted)

	b := &Board{
		cfg:           cfg,
		orderID:       orderID,
		attachmentURL: attachmentURL,
		persisted:     persisted,
		own:           make(map[int]struct{}),
	}
	for _, r := range persisted.Column(cfg.Own) {
		b.own[r] = struct{}{}
	}

	if seed && cfg.SeedFromUpstream && len(b.own) == 0 {
		if prior, ok := cfg.Prior(); ok {
			for _, r := range persisted.Column(prior) {
				b.own[r] = struct{}{}
			}
			b.seeded = len(b.own) > 0
		}
	}
	return b
}

// attribute 只有扁平 selectedRowIds 的旧数据归到紧邻的上一个部门（没有上游时归本部门）
func attribute(cfg DepartmentConfig, sel entity.RowSelection) entity.RowSelection {
	if hasColumns(sel) || len(sel.SelectedRowIDs) == 0 {
		return sel
	}
	owner, ok := cfg.Prior()
	if !ok {
		owner = cfg.Own
	}
	sel = sel.WithColumn(owner, sel.SelectedRowIDs)
	sel.SelectedRowIDs = nil
	return sel
}

// Config 部门配置
func (b *Board) Config() DepartmentConfig {
	return b.cfg
}

// OrderID 订单 ID
func (b *Board) OrderID() int64 {
	return b.orderID
}

// AttachmentURL 附件地址
func (b *Board) AttachmentURL() string {
	return b.attachmentURL
}

// Seeded 本部门列是否由上一部门预填
func (b *Board) Seeded() bool {
	return b.seeded
}

// Toggle 勾选/取消本部门列中的一行
func (b *Board) Toggle(rowID int, checked bool) error {
	if rowID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRow, rowID)
	}
	if checked {
		b.own[rowID] = struct{}{}
	} else {
		delete(b.own, rowID)
	}
	return nil
}

// SetOwn 整体替换本部门列
func (b *Board) SetOwn(rows []int) error {
	next := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if r <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidRow, r)
		}
		next[r] = struct{}{}
	}
	b.own = next
	b.seeded = false
	return nil
}

// Own 本部门列（升序）
func (b *Board) Own() []int {
	rows := make([]int, 0, len(b.own))
	for r := range b.own {
		rows = append(rows, r)
	}
	return entity.SortedRows(rows)
}

// Claimed 上游部门已勾选的行（并集）
func (b *Board) Claimed() []int {
	var rows []int
	for _, d := range b.cfg.Upstream {
		rows = append(rows, b.persisted.Column(d)...)
	}
	return entity.SortedRows(rows)
}

// Columns 展示的勾选列：上游列禁用，本部门列可编辑
func (b *Board) Columns() []Column {
	cols := make([]Column, 0, len(b.cfg.Upstream)+1)
	for _, d := range b.cfg.Upstream {
		cols = append(cols, Column{Department: d, Rows: b.persisted.Column(d), Disabled: true})
	}
	cols = append(cols, Column{Department: b.cfg.Own, Rows: b.Own(), Disabled: false})
	return cols
}

// RowState 供 PDF 叠加层使用：上游已勾选的行显示为已勾选且禁用
func (b *Board) RowState(rowID int) (checked, disabled bool) {
	for _, d := range b.cfg.Upstream {
		for _, r := range b.persisted.Column(d) {
			if r == rowID {
				return true, true
			}
		}
	}
	_, mine := b.own[rowID]
	return mine, false
}

// Payload 保存请求体：全部部门列 + 扁平并集，不是增量
func (b *Board) Payload() entity.RowSelection {
	sel := b.persisted.WithColumn(b.cfg.Own, b.Own())
	sel.OrderID = b.orderID
	sel.AttachmentURL = b.attachmentURL
	for _, d := range entity.SelectionDepartments {
		sel = sel.WithColumn(d, sel.Column(d))
	}
	sel.SelectedRowIDs = nil
	sel.SelectedRowIDs = sel.Union()
	return sel
}

// CanSend 本部门列非空才能发送
func (b *Board) CanSend() bool {
	return len(b.own) > 0
}

// Stage 按当前（含未保存的）勾选推导阶段
func (b *Board) Stage() Stage {
	return StageOf(b.Payload())
}
