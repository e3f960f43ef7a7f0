package handoff

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryBackend 内存后端：按订单保存最后一次写入（后写覆盖）
type memoryBackend struct {
	subnests   []entity.SubnestRow
	selections map[int64]entity.RowSelection
	orders     map[int64]*entity.Order

	failTables error
	failSave   error
	calls      []string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		subnests: []entity.SubnestRow{
			{RowNo: 1, PageNumber: 1, YPosition: 700, PageHeight: 792},
			{RowNo: 2, PageNumber: 1, YPosition: 650, PageHeight: 792},
			{RowNo: 3, PageNumber: 1, YPosition: 600, PageHeight: 792},
		},
		selections: map[int64]entity.RowSelection{},
		orders: map[int64]*entity.Order{
			1005: {ID: 1005, Department: entity.DeptDesign},
		},
	}
}

func (m *memoryBackend) SubnestData(ctx context.Context, url string) ([]entity.SubnestRow, error) {
	m.calls = append(m.calls, "subnests")
	if m.failTables != nil {
		return nil, m.failTables
	}
	return m.subnests, nil
}

func (m *memoryBackend) PartsData(ctx context.Context, url string) ([]entity.PartRow, error) {
	m.calls = append(m.calls, "parts")
	if m.failTables != nil {
		return nil, m.failTables
	}
	return []entity.PartRow{{PartName: "BRACKET-A", Material: "MS"}}, nil
}

func (m *memoryBackend) MaterialData(ctx context.Context, url string) ([]entity.MaterialRow, error) {
	m.calls = append(m.calls, "materials")
	if m.failTables != nil {
		return nil, m.failTables
	}
	return nil, nil
}

func (m *memoryBackend) GetRowSelection(ctx context.Context, orderID int64, url string) (*entity.RowSelection, error) {
	m.calls = append(m.calls, "get-selection")
	sel, ok := m.selections[orderID]
	if !ok {
		return nil, &backend.APIError{StatusCode: 404, Message: "no selection"}
	}
	return &sel, nil
}

func (m *memoryBackend) SaveRowSelection(ctx context.Context, orderID int64, sel entity.RowSelection) (*entity.RowSelection, error) {
	m.calls = append(m.calls, "save-selection")
	if m.failSave != nil {
		return nil, m.failSave
	}
	m.selections[orderID] = sel
	return &sel, nil
}

func (m *memoryBackend) GetDepartmentSelection(ctx context.Context, endpoint backend.SelectionEndpoint, orderID int64, url string) (*entity.RowSelection, error) {
	m.calls = append(m.calls, "get-"+string(endpoint))
	return nil, &backend.APIError{StatusCode: 404}
}

func (m *memoryBackend) AdvanceWithSelection(ctx context.Context, endpoint backend.SelectionEndpoint, orderID int64, sel entity.RowSelection) (*entity.Order, error) {
	m.calls = append(m.calls, "advance-"+string(endpoint))
	o := m.orders[orderID]
	switch endpoint {
	case backend.MachiningSelection:
		o.Department = entity.DeptInspection
	case backend.InspectionSelection:
		o.Department = entity.DeptCompleted
	}
	m.selections[orderID] = sel
	return o, nil
}

func (m *memoryBackend) TransitionDepartment(ctx context.Context, id int64, dept entity.Department) (*entity.Order, error) {
	m.calls = append(m.calls, "transition")
	o := m.orders[id]
	o.Department = dept
	return o, nil
}

const drawingURL = "/uploads/SF1005-nesting.pdf"

func TestStageOf(t *testing.T) {
	assert.Equal(t, StageNone, StageOf(entity.RowSelection{}))
	assert.Equal(t, StageDesign, StageOf(entity.RowSelection{Design: []int{1}}))
	assert.Equal(t, StageProduction, StageOf(entity.RowSelection{Design: []int{1}, Production: []int{2}}))
	assert.Equal(t, StageMachine, StageOf(entity.RowSelection{Machine: []int{4}}))
	assert.Equal(t, StageInspection, StageOf(entity.RowSelection{Design: []int{1}, Inspection: []int{1}}))
}

func TestConfigFor(t *testing.T) {
	for _, d := range entity.SelectionDepartments {
		cfg, err := ConfigFor(d)
		require.NoError(t, err)
		assert.Equal(t, d, cfg.Own)
		assert.Equal(t, d.Next(), cfg.Next)
		for _, u := range cfg.Upstream {
			assert.True(t, u.Before(d))
		}
	}

	_, err := ConfigFor(entity.DeptEnquiry)
	assert.ErrorIs(t, err, ErrNoSelectionColumn)
	_, err = ConfigFor(entity.DeptCompleted)
	assert.ErrorIs(t, err, ErrNoSelectionColumn)
}

func TestBoardColumnsEditability(t *testing.T) {
	persisted := entity.RowSelection{Design: []int{1}, Production: []int{2}, Machine: []int{3}, Inspection: []int{4}}

	for _, d := range entity.SelectionDepartments {
		cfg, _ := ConfigFor(d)
		b := NewBoard(cfg, 1, drawingURL, persisted, false)
		for _, col := range b.Columns() {
			if col.Department == d {
				assert.False(t, col.Disabled, "own column of %s must be editable", d)
			} else {
				assert.True(t, col.Disabled, "column %s on %s screen must be disabled", col.Department, d)
			}
		}
	}

	// 空选择时同样成立
	cfg, _ := ConfigFor(entity.DeptInspection)
	cols := NewBoard(cfg, 1, drawingURL, entity.RowSelection{}, false).Columns()
	require.Len(t, cols, 4)
	for _, col := range cols[:3] {
		assert.True(t, col.Disabled)
		assert.Empty(t, col.Rows)
	}
	assert.False(t, cols[3].Disabled)
}

func TestBoardSeedsOnceFromPrior(t *testing.T) {
	cfg, _ := ConfigFor(entity.DeptProduction)
	persisted := entity.RowSelection{Design: []int{1, 2}}

	b := NewBoard(cfg, 1005, drawingURL, persisted, true)
	assert.True(t, b.Seeded())
	assert.Equal(t, []int{1, 2}, b.Own())

	// 用户可以修改预填值
	require.NoError(t, b.Toggle(2, false))
	assert.Equal(t, []int{1}, b.Own())

	// 本部门已有勾选时不预填
	b = NewBoard(cfg, 1005, drawingURL, entity.RowSelection{Design: []int{1, 2}, Production: []int{5}}, true)
	assert.False(t, b.Seeded())
	assert.Equal(t, []int{5}, b.Own())

	// Design 没有上游
	design, _ := ConfigFor(entity.DeptDesign)
	b = NewBoard(design, 1005, drawingURL, entity.RowSelection{}, true)
	assert.False(t, b.Seeded())
	assert.Empty(t, b.Own())
}

func TestBoardPayloadCarriesDownstream(t *testing.T) {
	cfg, _ := ConfigFor(entity.DeptProduction)
	persisted := entity.RowSelection{Design: []int{1}, Production: []int{2}, Machine: []int{7}}

	b := NewBoard(cfg, 9, drawingURL, persisted, false)
	require.NoError(t, b.Toggle(3, true))

	p := b.Payload()
	assert.Equal(t, int64(9), p.OrderID)
	assert.Equal(t, drawingURL, p.AttachmentURL)
	assert.Equal(t, []int{1}, p.Design)
	assert.Equal(t, []int{2, 3}, p.Production)
	assert.Equal(t, []int{7}, p.Machine)
	assert.Equal(t, []int{}, p.Inspection)
	assert.Equal(t, []int{1, 2, 3, 7}, p.SelectedRowIDs)
}

func TestBoardFlattenedSelectionAttributedToPrior(t *testing.T) {
	cfg, _ := ConfigFor(entity.DeptMachining)
	b := NewBoard(cfg, 1, drawingURL, entity.RowSelection{SelectedRowIDs: []int{3, 1, 2}}, false)

	cols := b.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, entity.DeptProduction, cols[1].Department)
	assert.Equal(t, []int{1, 2, 3}, cols[1].Rows)
	assert.Empty(t, b.Own())
}

func TestBoardRowState(t *testing.T) {
	cfg, _ := ConfigFor(entity.DeptMachining)
	b := NewBoard(cfg, 1, drawingURL, entity.RowSelection{Design: []int{1, 2}, Production: []int{3}}, false)
	require.NoError(t, b.Toggle(4, true))

	checked, disabled := b.RowState(1)
	assert.True(t, checked)
	assert.True(t, disabled)
	checked, disabled = b.RowState(3)
	assert.True(t, checked)
	assert.True(t, disabled)
	checked, disabled = b.RowState(4)
	assert.True(t, checked)
	assert.False(t, disabled)
	checked, disabled = b.RowState(5)
	assert.False(t, checked)
	assert.False(t, disabled)
}

func TestBoardRejectsInvalidRows(t *testing.T) {
	cfg, _ := ConfigFor(entity.DeptDesign)
	b := NewBoard(cfg, 1, drawingURL, entity.RowSelection{}, false)
	assert.ErrorIs(t, b.Toggle(0, true), ErrInvalidRow)
	assert.ErrorIs(t, b.SetOwn([]int{1, -2}), ErrInvalidRow)
	assert.Empty(t, b.Own())
}

func TestSendRequiresSelection(t *testing.T) {
	mb := newMemoryBackend()
	wf := NewWorkflow(mb, zap.NewNop(), nil, true)

	cfg, _ := ConfigFor(entity.DeptDesign)
	b := NewBoard(cfg, 1005, drawingURL, entity.RowSelection{}, false)
	require.False(t, b.CanSend())

	_, err := wf.Send(context.Background(), b)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Empty(t, mb.calls, "no network call when nothing is selected")
	assert.Equal(t, entity.DeptDesign, mb.orders[1005].Department)
}

func TestSaveIsIdempotent(t *testing.T) {
	mb := newMemoryBackend()
	wf := NewWorkflow(mb, zap.NewNop(), nil, true)
	ctx := context.Background()

	wb, err := wf.Open(ctx, entity.DeptDesign, 1005, drawingURL)
	require.NoError(t, err)
	require.NoError(t, wb.Board.SetOwn([]int{2, 1}))

	_, err = wf.Save(ctx, wb.Board)
	require.NoError(t, err)
	once := mb.selections[1005]

	_, err = wf.Save(ctx, wb.Board)
	require.NoError(t, err)
	assert.Equal(t, once, mb.selections[1005])
}

func TestOpenToleratesFetchFailures(t *testing.T) {
	mb := newMemoryBackend()
	mb.failTables = errors.New("connection refused")
	wf := NewWorkflow(mb, zap.NewNop(), nil, true)

	wb, err := wf.Open(context.Background(), entity.DeptProduction, 1005, drawingURL)
	require.NoError(t, err)
	assert.Empty(t, wb.Subnests)
	assert.Empty(t, wb.Parts)
	assert.Empty(t, wb.Materials)
	assert.ElementsMatch(t, []string{"subnests", "parts", "materials"}, wb.Warnings)
	require.NotNil(t, wb.Board)
	assert.Equal(t, StageNone, wb.Board.Stage())
}

func TestOpenSurfacesUnauthorized(t *testing.T) {
	mb := newMemoryBackend()
	mb.failTables = &backend.APIError{StatusCode: 401, Message: "token expired"}
	wf := NewWorkflow(mb, zap.NewNop(), nil, true)

	_, err := wf.Open(context.Background(), entity.DeptDesign, 1005, drawingURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Equal(t, "token expired", backend.UserMessage(err))
}

func TestSaveFailureKeepsBoard(t *testing.T) {
	mb := newMemoryBackend()
	wf := NewWorkflow(mb, zap.NewNop(), nil, true)
	ctx := context.Background()

	wb, err := wf.Open(ctx, entity.DeptDesign, 1005, drawingURL)
	require.NoError(t, err)
	require.NoError(t, wb.Board.Toggle(1, true))

	mb.failSave = &backend.APIError{StatusCode: 500}
	_, err = wf.Send(ctx, wb.Board)
	require.Error(t, err)
	assert.Equal(t, backend.FallbackMessage, backend.UserMessage(err))
	assert.Equal(t, entity.DeptDesign, mb.orders[1005].Department)

	// 重试成功
	mb.failSave = nil
	res, err := wf.Send(ctx, wb.Board)
	require.NoError(t, err)
	assert.Equal(t, entity.DeptProduction, res.Order.Department)
}

func TestBoardSeedsLikeOpen(t *testing.T) {
	mb := newMemoryBackend()
	mb.selections[1005] = entity.RowSelection{Design: []int{1, 2}}
	mb.orders[1005].Department = entity.DeptProduction
	wf := NewWorkflow(mb, zap.NewNop(), nil, true)
	ctx := context.Background()

	wb, err := wf.Open(ctx, entity.DeptProduction, 1005, drawingURL)
	require.NoError(t, err)
	require.True(t, wb.Board.Seeded())
	require.True(t, wb.Board.CanSend())

	b, err := wf.Board(ctx, entity.DeptProduction, 1005, drawingURL)
	require.NoError(t, err)
	assert.Equal(t, wb.Board.Own(), b.Own())
	assert.True(t, b.CanSend())

	res, err := wf.Send(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, entity.DeptMachining, res.Order.Department)
	assert.Equal(t, []int{1, 2}, mb.selections[1005].Production)

	// 关闭预填时本部门列保持为空
	wf = NewWorkflow(mb, zap.NewNop(), nil, false)
	mb.selections[1005] = entity.RowSelection{Design: []int{1, 2}}
	b, err = wf.Board(ctx, entity.DeptProduction, 1005, drawingURL)
	require.NoError(t, err)
	assert.False(t, b.CanSend())
}

// SF1005：Design 勾选 {1,2} → Production 追加 {3} → Machining 只读看到 {1,2,3}
func TestHandoffScenarioSF1005(t *testing.T) {
	mb := newMemoryBackend()
	wf := NewWorkflow(mb, zap.NewNop(), nil, false)
	ctx := context.Background()

	// Design
	wb, err := wf.Open(ctx, entity.DeptDesign, 1005, drawingURL)
	require.NoError(t, err)
	require.Len(t, wb.Subnests, 3)
	require.NoError(t, wb.Board.Toggle(1, true))
	require.NoError(t, wb.Board.Toggle(2, true))
	_, err = wf.Save(ctx, wb.Board)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, mb.selections[1005].Union())
	assert.Equal(t, StageDesign, StageOf(mb.selections[1005]))

	res, err := wf.Send(ctx, wb.Board)
	require.NoError(t, err)
	assert.Equal(t, entity.DeptProduction, res.Order.Department)

	// Production
	wb, err = wf.Open(ctx, entity.DeptProduction, 1005, drawingURL)
	require.NoError(t, err)
	cols := wb.Board.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, []int{1, 2}, cols[0].Rows)
	assert.True(t, cols[0].Disabled)
	require.NoError(t, wb.Board.Toggle(3, true))
	_, err = wf.Save(ctx, wb.Board)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, mb.selections[1005].Union())
	assert.Equal(t, []int{1, 2}, mb.selections[1005].Design)
	assert.Equal(t, StageProduction, StageOf(mb.selections[1005]))

	res, err = wf.Send(ctx, wb.Board)
	require.NoError(t, err)
	assert.Equal(t, entity.DeptMachining, res.Order.Department)

	// Machining
	wb, err = wf.Open(ctx, entity.DeptMachining, 1005, drawingURL)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, wb.Board.Claimed())
	for _, row := range []int{1, 2, 3} {
		checked, disabled := wb.Board.RowState(row)
		assert.True(t, checked)
		assert.True(t, disabled)
	}
	checked, disabled := wb.Board.RowState(4)
	assert.False(t, checked)
	assert.False(t, disabled)

	require.NoError(t, wb.Board.Toggle(4, true))
	res, err = wf.Send(ctx, wb.Board)
	require.NoError(t, err)
	assert.Equal(t, entity.DeptInspection, res.Order.Department)
	assert.Contains(t, mb.calls, "advance-machining-selection")
	assert.Equal(t, []int{1, 2, 3, 4}, mb.selections[1005].Union())
	assert.Equal(t, StageMachine, StageOf(mb.selections[1005]))
}
