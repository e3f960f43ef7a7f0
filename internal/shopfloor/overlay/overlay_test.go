package overlay

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"testing"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClampScale(t *testing.T) {
	assert.Equal(t, 0.5, ClampScale(0.1))
	assert.Equal(t, 3.0, ClampScale(7))
	assert.Equal(t, 1.3, ClampScale(1.3))
	assert.Equal(t, DefaultScale, ClampScale(0))
	assert.Equal(t, DefaultScale, ClampScale(-2))
}

func TestClampDevicePixelRatio(t *testing.T) {
	assert.Equal(t, 2.0, ClampDevicePixelRatio(2))
	assert.Equal(t, 1.0, ClampDevicePixelRatio(0.5))
	assert.Equal(t, MaxDevicePixelRatio, ClampDevicePixelRatio(200))
	assert.Equal(t, 1.0, ClampDevicePixelRatio(0))
	assert.Equal(t, 1.0, ClampDevicePixelRatio(math.NaN()))
	assert.Equal(t, 1.0, ClampDevicePixelRatio(math.Inf(1)))
	assert.Equal(t, 1.0, ClampDevicePixelRatio(math.Inf(-1)))
}

func TestStepScale(t *testing.T) {
	assert.Equal(t, 1.1, StepScale(1.0, 1))
	assert.Equal(t, 0.9, StepScale(1.0, -1))
	assert.Equal(t, 1.5, StepScale(1.2, 3))
	assert.Equal(t, 0.5, StepScale(0.6, -5))
	assert.Equal(t, 3.0, StepScale(2.95, 2))

	// 连续步进不累积浮点误差
	s := 1.0
	for i := 0; i < 7; i++ {
		s = StepScale(s, 1)
	}
	assert.Equal(t, 1.7, s)
}

func TestScreenTopFormula(t *testing.T) {
	heights := []float64{792, 595.28, 841.89, 1000}
	ys := []float64{0, 12.5, 300, 700.25, 792}
	scales := []float64{0.5, 1, 1.3, 2.2, 3}

	for _, h := range heights {
		for _, y := range ys {
			for _, s := range scales {
				want := (h - y) * s
				assert.Equal(t, want, ScreenTop(h, y, s))

				page := PageSize{Number: 1, Width: 612, Height: h}
				pl := LayoutPage(page, []Row{{ID: 1, PageNumber: 1, YPosition: y, PageHeight: h}}, nil, Options{Scale: s, Interactive: true})
				require.Len(t, pl.Checkboxes, 1)
				assert.Equal(t, want-CheckboxCenterOffset, pl.Checkboxes[0].Top)
				assert.Equal(t, 612*s-CheckboxRightInset, pl.Checkboxes[0].Left)
			}
		}
	}
}

func TestLayoutScalesProportionally(t *testing.T) {
	pages := []PageSize{{Number: 1, Width: 612, Height: 792}}
	rows := []Row{
		{ID: 1, PageNumber: 1, YPosition: 700, PageHeight: 792},
		{ID: 2, PageNumber: 1, YPosition: 650, PageHeight: 792},
	}

	a := Layout(pages, rows, nil, Options{Scale: 1, Interactive: true})
	b := Layout(pages, rows, nil, Options{Scale: 2, Interactive: true})
	require.Len(t, a, 1)
	require.Len(t, b, 1)

	assert.Equal(t, a[0].CSSWidth*2, b[0].CSSWidth)
	assert.Equal(t, a[0].CSSHeight*2, b[0].CSSHeight)
	for i := range a[0].Checkboxes {
		anchorA := a[0].Checkboxes[i].Top + CheckboxCenterOffset
		anchorB := b[0].Checkboxes[i].Top + CheckboxCenterOffset
		assert.InDelta(t, anchorA*2, anchorB, 1e-9)
		// 锚点相对页面高度的比例不随缩放变化
		assert.InDelta(t, anchorA/a[0].CSSHeight, anchorB/b[0].CSSHeight, 1e-12)
	}
}

func TestLayoutBackingSize(t *testing.T) {
	page := PageSize{Number: 1, Width: 595.28, Height: 841.89}

	pl := LayoutPage(page, nil, nil, Options{Scale: 1.5, DevicePixelRatio: 2})
	assert.InDelta(t, 892.92, pl.CSSWidth, 1e-9)
	assert.Equal(t, 1786, pl.BackingWidth)
	assert.Equal(t, 2526, pl.BackingHeight)

	// 未提供像素比时按 1 处理
	pl = LayoutPage(page, nil, nil, Options{Scale: 1})
	assert.Equal(t, 596, pl.BackingWidth)
	assert.Equal(t, 842, pl.BackingHeight)
}

func TestLayoutBackingSizeBounded(t *testing.T) {
	page := PageSize{Number: 1, Width: 595.28, Height: 841.89}

	// 超大像素比被限制在 MaxDevicePixelRatio
	pl := LayoutPage(page, nil, nil, Options{Scale: 1.3, DevicePixelRatio: 200})
	assert.Equal(t, int(math.Ceil(pl.CSSWidth*MaxDevicePixelRatio)), pl.BackingWidth)
	assert.Equal(t, int(math.Ceil(pl.CSSHeight*MaxDevicePixelRatio)), pl.BackingHeight)

	// NaN 按 1 处理，不产生负尺寸
	pl = LayoutPage(page, nil, nil, Options{Scale: 1.3, DevicePixelRatio: math.NaN()})
	assert.Equal(t, int(math.Ceil(pl.CSSWidth)), pl.BackingWidth)
	assert.Equal(t, int(math.Ceil(pl.CSSHeight)), pl.BackingHeight)
	assert.Positive(t, pl.BackingWidth)
}

func TestViewerRenderNaNDevicePixelRatio(t *testing.T) {
	v := NewViewer(zap.NewNop())
	require.NoError(t, v.Load(testutil.NestingReportPDF()))

	frame, err := v.Render(context.Background(), 1, nil, nil, Options{Scale: 1, DevicePixelRatio: math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, 612, frame.Image.Bounds().Dx())
	assert.Equal(t, 792, frame.Image.Bounds().Dy())

	// 文档未被标记失败
	_, err = v.Render(context.Background(), 1, nil, nil, Options{Scale: 1})
	assert.NoError(t, err)
}

func TestLayoutRowsOnMissingPage(t *testing.T) {
	pages := []PageSize{{Number: 1, Width: 612, Height: 792}, {Number: 2, Width: 612, Height: 792}}
	rows := []Row{
		{ID: 1, PageNumber: 1, YPosition: 700, PageHeight: 792},
		{ID: 9, PageNumber: 5, YPosition: 100, PageHeight: 792},
		{ID: 10, PageNumber: 0, YPosition: 100, PageHeight: 792},
	}

	var layouts []PageLayout
	assert.NotPanics(t, func() {
		layouts = Layout(pages, rows, nil, Options{Scale: 1, Interactive: true})
	})
	require.Len(t, layouts, 2)
	require.Len(t, layouts[0].Checkboxes, 1)
	assert.Equal(t, 1, layouts[0].Checkboxes[0].RowID)
	assert.Empty(t, layouts[1].Checkboxes)
}

func TestLayoutViewOnly(t *testing.T) {
	pages := []PageSize{{Number: 1, Width: 612, Height: 792}}
	rows := []Row{{ID: 1, PageNumber: 1, YPosition: 700, PageHeight: 792}}

	layouts := Layout(pages, rows, nil, Options{Scale: 1, Interactive: false})
	require.Len(t, layouts, 1)
	assert.NotNil(t, layouts[0].Checkboxes)
	assert.Empty(t, layouts[0].Checkboxes)
}

func TestLayoutRowState(t *testing.T) {
	pages := []PageSize{{Number: 1, Width: 612, Height: 792}}
	rows := []Row{
		{ID: 3, PageNumber: 1, YPosition: 600},
		{ID: 1, PageNumber: 1, YPosition: 700},
		{ID: 2, PageNumber: 1, YPosition: 650},
	}
	state := func(id int) (bool, bool) {
		return id != 3, id == 1
	}

	layouts := Layout(pages, rows, state, Options{Scale: 1, Interactive: true})
	cbs := layouts[0].Checkboxes
	require.Len(t, cbs, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{cbs[0].RowID, cbs[1].RowID, cbs[2].RowID})
	assert.True(t, cbs[0].Checked)
	assert.True(t, cbs[0].Disabled)
	assert.True(t, cbs[1].Checked)
	assert.False(t, cbs[1].Disabled)
	assert.False(t, cbs[2].Checked)

	// pageHeight 缺失时使用文档页面高度
	assert.Equal(t, (792.0-600)-CheckboxCenterOffset, cbs[2].Top)
}

func TestRowsFromSubnests(t *testing.T) {
	rows := RowsFromSubnests([]entity.SubnestRow{
		{RowNo: 4, PageNumber: 2, YPosition: 512.5, PageHeight: 595},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, Row{ID: 4, PageNumber: 2, YPosition: 512.5, PageHeight: 595}, rows[0])
}

func TestOpenDocument(t *testing.T) {
	doc, err := OpenDocument(testutil.NestingReportPDF())
	require.NoError(t, err)
	require.Equal(t, 2, doc.NumPage())

	p1, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 612.0, p1.Width)
	assert.Equal(t, 792.0, p1.Height)

	p2, err := doc.Page(2)
	require.NoError(t, err)
	assert.Equal(t, 842.0, p2.Width)
	assert.Equal(t, 595.0, p2.Height)

	_, err = doc.Page(3)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestOpenDocumentInvalid(t *testing.T) {
	_, err := OpenDocument([]byte("<html>not a pdf</html>"))
	assert.Error(t, err)

	_, err = OpenDocument(nil)
	assert.Error(t, err)
}

func TestRasterize(t *testing.T) {
	doc, err := OpenDocument(testutil.NestingReportPDF())
	require.NoError(t, err)

	page, err := doc.Page(1)
	require.NoError(t, err)
	rows := []Row{{ID: 1, PageNumber: 1, YPosition: 700, PageHeight: 792}}
	pl := LayoutPage(page, rows, func(int) (bool, bool) { return true, false }, Options{Scale: 1, DevicePixelRatio: 1, Interactive: true})

	img, err := Rasterize(context.Background(), doc, pl, 1)
	require.NoError(t, err)
	assert.Equal(t, 612, img.Bounds().Dx())
	assert.Equal(t, 792, img.Bounds().Dy())

	// 矩形 (50,690)-(250,710) 的左上角落在 (50, 792-710)
	assert.Equal(t, ruleColor, img.RGBAAt(50, 82))
	assert.Equal(t, paperColor, img.RGBAAt(150, 90))

	// 勾选框：left=590, top=85，已勾选时内部填充
	assert.Equal(t, checkColor, img.RGBAAt(590, 85))
	assert.Equal(t, checkColor, img.RGBAAt(597, 92))

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestRasterizeHighDPI(t *testing.T) {
	doc, err := OpenDocument(testutil.NestingReportPDF())
	require.NoError(t, err)

	page, err := doc.Page(2)
	require.NoError(t, err)
	pl := LayoutPage(page, nil, nil, Options{Scale: 0.5, DevicePixelRatio: 2})

	img, err := Rasterize(context.Background(), doc, pl, 2)
	require.NoError(t, err)
	assert.Equal(t, 842, img.Bounds().Dx())
	assert.Equal(t, 595, img.Bounds().Dy())
}

func TestRasterizeCancelled(t *testing.T) {
	doc, err := OpenDocument(testutil.NestingReportPDF())
	require.NoError(t, err)
	page, err := doc.Page(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Rasterize(ctx, doc, LayoutPage(page, nil, nil, Options{Scale: 1}), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestViewerRender(t *testing.T) {
	v := NewViewer(zap.NewNop())
	require.NoError(t, v.Load(testutil.NestingReportPDF()))

	rows := []Row{
		{ID: 1, PageNumber: 1, YPosition: 700, PageHeight: 792},
		{ID: 4, PageNumber: 2, YPosition: 500, PageHeight: 595},
	}
	frame, err := v.Render(context.Background(), 2, rows, nil, Options{Scale: 1, Interactive: true})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Layout.Page)
	require.Len(t, frame.Layout.Checkboxes, 1)
	assert.Equal(t, 4, frame.Layout.Checkboxes[0].RowID)
	assert.Equal(t, 842-CheckboxRightInset, frame.Layout.Checkboxes[0].Left)

	layouts, err := v.Layout(rows, nil, Options{Scale: 1, Interactive: true})
	require.NoError(t, err)
	assert.Len(t, layouts, 2)
}

func TestViewerStaleRender(t *testing.T) {
	v := NewViewer(zap.NewNop())
	data := testutil.NestingReportPDF()
	require.NoError(t, v.Load(data))

	rows := []Row{{ID: 1, PageNumber: 1, YPosition: 700, PageHeight: 792}}
	superseded := false
	state := func(int) (bool, bool) {
		// 布局计算期间开始新的渲染周期
		if !superseded {
			superseded = true
			require.NoError(t, v.Load(data))
		}
		return false, false
	}

	_, err := v.Render(context.Background(), 1, rows, state, Options{Scale: 1, Interactive: true})
	assert.ErrorIs(t, err, ErrStaleRender)

	frame, err := v.Render(context.Background(), 1, rows, state, Options{Scale: 1, Interactive: true})
	require.NoError(t, err)
	assert.NotNil(t, frame.Image)
}

func TestViewerDocumentFailed(t *testing.T) {
	v := NewViewer(zap.NewNop())

	_, err := v.Render(context.Background(), 1, nil, nil, Options{})
	assert.ErrorIs(t, err, ErrNoDocument)

	err = v.Load([]byte("garbage"))
	assert.ErrorIs(t, err, ErrDocumentFailed)

	// 失败后不再渲染
	_, err = v.Render(context.Background(), 1, nil, nil, Options{})
	assert.ErrorIs(t, err, ErrDocumentFailed)
	_, err = v.Layout(nil, nil, Options{})
	assert.ErrorIs(t, err, ErrDocumentFailed)

	// 加载新文档后恢复
	require.NoError(t, v.Load(testutil.NestingReportPDF()))
	_, err = v.Render(context.Background(), 1, nil, nil, Options{Scale: 1})
	assert.NoError(t, err)
}

func TestViewerPageOutOfRange(t *testing.T) {
	v := NewViewer(nil)
	require.NoError(t, v.Load(testutil.NestingReportPDF()))

	_, err := v.Render(context.Background(), 7, nil, nil, Options{Scale: 1})
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	// 页码错误不影响文档
	_, err = v.Render(context.Background(), 1, nil, nil, Options{Scale: 1})
	assert.NoError(t, err)
}
