package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-shopfloor/internal/config"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/metrics"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/overlay"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func setupServices(t *testing.T) (*Services, *testutil.FakeBackend, context.Context) {
	t.Helper()
	fake := testutil.NewFakeBackend()
	t.Cleanup(fake.Close)

	client, err := backend.NewClient(fake.URL(), 0, zap.NewNop())
	require.NoError(t, err)
	cfg := &config.Config{
		Overlay: config.OverlayConfig{DefaultScale: 1.3, DevicePixelRatio: 1, MaxPDFSize: 1 << 20},
		Handoff: config.HandoffConfig{SeedFromUpstream: true},
	}
	svc := NewServices(client, nil, cfg, metrics.New(), zap.NewNop())

	session, err := auth.NewSession(testutil.DefaultTestToken(), time.Now())
	require.NoError(t, err)
	return svc, fake, auth.WithSession(context.Background(), session)
}

func TestDrawingForWalksUpstream(t *testing.T) {
	now := time.Now()
	history := []entity.StatusHistoryEntry{
		{NewStatus: entity.DeptDesign, AttachmentURL: "/uploads/design.pdf", CreatedAt: now.Add(-time.Hour)},
		{NewStatus: entity.DeptProduction, AttachmentURL: "/uploads/photo.jpg", CreatedAt: now},
	}

	d, ok := DrawingFor(history, entity.DeptMachining)
	require.True(t, ok)
	assert.Equal(t, "/uploads/design.pdf", d.AttachmentURL)

	history = append(history, entity.StatusHistoryEntry{NewStatus: entity.DeptMachining, AttachmentURL: "/uploads/mach.PDF", CreatedAt: now})
	d, ok = DrawingFor(history, entity.DeptMachining)
	require.True(t, ok)
	assert.Equal(t, "/uploads/mach.PDF", d.AttachmentURL)

	_, ok = DrawingFor(history, entity.DeptEnquiry)
	assert.False(t, ok)
}

func TestValidateOrder(t *testing.T) {
	req := backend.OrderRequest{CustomProductDetail: "x"}
	assert.ErrorIs(t, validateOrder(&req), ErrInvalidInput)

	req = backend.OrderRequest{CustomerIDs: []int64{1}, CustomProductDetail: "   "}
	assert.ErrorIs(t, validateOrder(&req), ErrInvalidInput)

	req = backend.OrderRequest{CustomerIDs: []int64{1}, ProductIDs: []int64{2}}
	assert.NoError(t, validateOrder(&req))

	req = backend.OrderRequest{CustomerIDs: []int64{1}, ProductIDs: []int64{2}, Department: "WAREHOUSE"}
	assert.ErrorIs(t, validateOrder(&req), ErrInvalidInput)
}

func TestValidateMasterData(t *testing.T) {
	c := entity.Customer{Name: " Acme ", Email: "not-an-email"}
	assert.ErrorIs(t, validateCustomer(&c), ErrInvalidInput)
	c.Email = "ops@acme.example"
	require.NoError(t, validateCustomer(&c))
	assert.Equal(t, "Acme", c.Name)

	m := entity.Machine{Name: "Press"}
	require.NoError(t, validateMachine(&m))
	assert.Equal(t, entity.MachineStatusActive, m.Status)

	m.Status = "SCRAPPED"
	assert.ErrorIs(t, validateMachine(&m), ErrInvalidInput)

	p := entity.Product{}
	assert.ErrorIs(t, validateProduct(&p), ErrInvalidInput)
}

func TestIsAuth(t *testing.T) {
	assert.True(t, isAuth(&backend.APIError{StatusCode: 401}))
	assert.True(t, isAuth(auth.ErrNoSession))
	assert.True(t, isAuth(auth.ErrSessionExpired))
	assert.False(t, isAuth(&backend.APIError{StatusCode: 500}))
	assert.False(t, isAuth(errors.New("boom")))
}

func TestBuildWorkbook(t *testing.T) {
	tables := entity.PDFTables{
		Subnests: []entity.SubnestRow{
			{RowNo: 1, Material: "MS", NCFile: "A.nc", Qty: 2},
			{RowNo: 2, Material: "SS", NCFile: "B.nc", Qty: 1},
		},
		Materials: []entity.MaterialRow{{Material: "MS", Thickness: 3, SheetQty: 4}},
	}
	sel := entity.RowSelection{Design: []int{1, 2}, Production: []int{2}}

	f, err := BuildWorkbook(tables, sel)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Subnests", "Parts", "Materials"}, f.GetSheetList())

	header, _ := f.GetCellValue("Subnests", "N1")
	assert.Equal(t, "Production", header)
	v, _ := f.GetCellValue("Subnests", "N2")
	assert.Equal(t, "", v)
	v, _ = f.GetCellValue("Subnests", "N3")
	assert.Equal(t, "✓", v)
	v, _ = f.GetCellValue("Subnests", "H3")
	assert.Equal(t, "B.nc", v)

	rows, err := f.GetRows("Parts")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "parts sheet has only the header")

	v, _ = f.GetCellValue("Materials", "E2")
	assert.Equal(t, "4", v)
}

func TestStatusCreateUsesOrderDepartment(t *testing.T) {
	svc, fake, ctx := setupServices(t)
	o := fake.AddOrder(entity.Order{Department: entity.DeptProduction})

	entry, err := svc.Status.Create(ctx, StatusInput{
		OrderID:   o.ID,
		NewStatus: entity.DeptMachining,
		File: &Upload{
			FileName: "cutlist.pdf",
			Reader:   strings.NewReader("%PDF-1.4"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DeptProduction, entry.OldStatus)
	assert.True(t, entry.IsPDF())

	_, err = svc.Status.Create(ctx, StatusInput{OrderID: o.ID, NewStatus: "PAINT"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStatusListSortedAscending(t *testing.T) {
	svc, fake, ctx := setupServices(t)
	o := fake.AddOrder(entity.Order{Department: entity.DeptDesign})
	now := time.Now()
	fake.AddStatus(entity.StatusHistoryEntry{OrderID: o.ID, NewStatus: entity.DeptProduction, CreatedAt: now})
	fake.AddStatus(entity.StatusHistoryEntry{OrderID: o.ID, NewStatus: entity.DeptDesign, CreatedAt: now.Add(-time.Hour)})

	entries, err := svc.Status.List(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entity.DeptDesign, entries[0].NewStatus)
}

func TestDrawingLayoutDefaultsAndDegradation(t *testing.T) {
	svc, fake, ctx := setupServices(t)
	o := fake.AddOrder(entity.Order{Department: entity.DeptDesign})
	url := fake.AddFile("plain.pdf", testutil.NestingReportPDF())

	// 没有解析结果：仍然返回页面，只是没有勾选框
	layout, err := svc.Drawing.Layout(ctx, DrawingRequest{Department: entity.DeptDesign, OrderID: o.ID, AttachmentURL: url})
	require.NoError(t, err)
	assert.Equal(t, 1.3, layout.Scale)
	require.Len(t, layout.Pages, 2)
	assert.Empty(t, layout.Pages[0].Checkboxes)

	// 没有勾选列的部门只读
	layout, err = svc.Drawing.Layout(ctx, DrawingRequest{Department: entity.DeptEnquiry, OrderID: o.ID, AttachmentURL: url, Scale: 9})
	require.NoError(t, err)
	assert.False(t, layout.Interactive)
	assert.Equal(t, overlay.MaxScale, layout.Scale)
}

func TestDrawingRenderPageHighDPI(t *testing.T) {
	svc, fake, ctx := setupServices(t)
	o := fake.AddOrder(entity.Order{Department: entity.DeptDesign})
	url := fake.AddFile("plain.pdf", testutil.NestingReportPDF())

	data, err := svc.Drawing.RenderPage(ctx, DrawingRequest{Department: entity.DeptDesign, OrderID: o.ID, AttachmentURL: url, Scale: 1, DevicePixelRatio: 2}, 2)
	require.NoError(t, err)
	assert.True(t, len(data) > 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	_, err = svc.Drawing.RenderPage(ctx, DrawingRequest{Department: entity.DeptDesign, OrderID: o.ID, AttachmentURL: url}, 3)
	assert.ErrorIs(t, err, overlay.ErrPageOutOfRange)
}

func TestExportRequiresSession(t *testing.T) {
	svc, fake, _ := setupServices(t)
	o := fake.AddOrder(entity.Order{Department: entity.DeptDesign})

	_, _, err := svc.Export.Export(context.Background(), entity.DeptDesign, o.ID, "/uploads/x.pdf")
	assert.ErrorIs(t, err, auth.ErrNoSession)
	assert.Empty(t, fake.Calls())
}

func TestWriteSubnestCSV(t *testing.T) {
	subnests := []entity.SubnestRow{
		{RowNo: 1, Material: "MS", Thickness: 2.5, NCFile: "A.nc", Qty: 2, PageNumber: 1},
		{RowNo: 2, Material: "SS", NCFile: "B.nc", Qty: 1, PageNumber: 1},
	}
	sel := entity.RowSelection{Design: []int{1, 2}, Production: []int{2}}

	var buf bytes.Buffer
	require.NoError(t, WriteSubnestCSV(&buf, subnests, sel))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Row,Size X,"))
	assert.Equal(t, "1,0,0,MS,2.5,,,A.nc,2,0,0,1,Y,,,", lines[1])
	assert.Equal(t, "2,0,0,SS,0,,,B.nc,1,0,0,1,Y,Y,,", lines[2])
}

func TestExportCSVGBK(t *testing.T) {
	svc, fake, ctx := setupServices(t)
	url := fake.AddFile("nest-42.pdf", testutil.NestingReportPDF())
	fake.SetTables(url, entity.PDFTables{
		Subnests: []entity.SubnestRow{
			{RowNo: 1, Material: "钢板", Qty: 1, PageNumber: 1},
			{RowNo: 2, Material: "MS", NCFile: "🔩.nc", Qty: 1, PageNumber: 1},
		},
	})

	var buf bytes.Buffer
	name, err := svc.Export.ExportCSV(ctx, entity.DeptDesign, 42, url, true, &buf)
	require.NoError(t, err)
	assert.Equal(t, "SF42_nest-42.csv", name)
	assert.NotContains(t, buf.String(), "钢板", "output is not utf-8")

	decoded, err := io.ReadAll(simplifiedchinese.GBK.NewDecoder().Reader(&buf))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Area (m2)")
	assert.Contains(t, string(decoded), "1,0,0,钢板,")
	assert.Contains(t, string(decoded), "2,0,0,MS,")
	assert.NotContains(t, string(decoded), "🔩")
}
