package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/overlay"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFixtures(t *testing.T) (pdfPath, rowsPath string) {
	t.Helper()
	dir := t.TempDir()
	pdfPath = filepath.Join(dir, "nest.pdf")
	if err := os.WriteFile(pdfPath, testutil.NestingReportPDF(), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, _ := json.Marshal([]entity.SubnestRow{
		{RowNo: 1, PageNumber: 1, YPosition: 700, PageHeight: 792},
		{RowNo: 2, PageNumber: 1, YPosition: 650, PageHeight: 792},
		{RowNo: 4, PageNumber: 2, YPosition: 500, PageHeight: 595},
	})
	rowsPath = filepath.Join(dir, "rows.json")
	if err := os.WriteFile(rowsPath, rows, 0o644); err != nil {
		t.Fatal(err)
	}
	return pdfPath, rowsPath
}

func TestLayoutCommand(t *testing.T) {
	pdfPath, rowsPath := writeFixtures(t)

	out, err := runCLI(t, "layout", pdfPath, "--rows", rowsPath, "--scale", "1", "--disabled", "1", "--checked", "2")
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}

	var pages []overlay.PageLayout
	if err := json.Unmarshal([]byte(out), &pages); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(pages))
	}
	if len(pages[0].Checkboxes) != 2 {
		t.Fatalf("Expected 2 checkboxes on page 1, got %d", len(pages[0].Checkboxes))
	}
	first := pages[0].Checkboxes[0]
	if first.Left != 590 || first.Top != 85 {
		t.Errorf("Expected checkbox at (590, 85), got (%v, %v)", first.Left, first.Top)
	}
	if !first.Checked || !first.Disabled {
		t.Errorf("Expected row 1 checked and disabled, got %+v", first)
	}
	second := pages[0].Checkboxes[1]
	if !second.Checked || second.Disabled {
		t.Errorf("Expected row 2 checked and editable, got %+v", second)
	}
	if pages[1].CSSWidth != 842 {
		t.Errorf("Expected page 2 width 842, got %v", pages[1].CSSWidth)
	}
}

func TestLayoutViewOnly(t *testing.T) {
	pdfPath, rowsPath := writeFixtures(t)

	out, err := runCLI(t, "layout", pdfPath, "--rows", rowsPath, "--view-only")
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	var pages []overlay.PageLayout
	if err := json.Unmarshal([]byte(out), &pages); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, p := range pages {
		if len(p.Checkboxes) != 0 {
			t.Errorf("Expected no checkboxes on page %d, got %d", p.Page, len(p.Checkboxes))
		}
	}
}

func TestRenderCommand(t *testing.T) {
	pdfPath, rowsPath := writeFixtures(t)
	outPath := filepath.Join(t.TempDir(), "page.png")

	out, err := runCLI(t, "render", pdfPath, outPath, "--rows", rowsPath, "--scale", "1", "--dpr", "2")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "1224x1584") {
		t.Errorf("Expected backing size 1224x1584 in output, got %q", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Expected PNG output")
	}
}

func TestRenderPageOutOfRange(t *testing.T) {
	pdfPath, _ := writeFixtures(t)
	outPath := filepath.Join(t.TempDir(), "page.png")

	if _, err := runCLI(t, "render", pdfPath, outPath, "--page", "3"); err == nil {
		t.Error("Expected error for page 3")
	}
}

func TestHandoffSend(t *testing.T) {
	fake := testutil.NewFakeBackend()
	defer fake.Close()

	url := fake.AddFile("nest-2001.pdf", testutil.NestingReportPDF())
	order := fake.AddOrder(entity.Order{ID: 2001, Department: entity.DeptProduction})
	fake.SetSelection(order.ID, url, entity.RowSelection{Design: []int{1, 2}})

	out, err := runCLI(t, "handoff", "send",
		"--backend", fake.URL(),
		"--token", testutil.DefaultTestToken(),
		"-d", "production",
		"-o", strconv.FormatInt(order.ID, 10),
		"-a", url,
		"--rows", "1,2",
	)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !strings.Contains(out, "MACHINING") {
		t.Errorf("Expected MACHINING in output, got %q", out)
	}

	got, _ := fake.Order(order.ID)
	if got.Department != entity.DeptMachining {
		t.Errorf("Expected MACHINING, got %s", got.Department)
	}
	sel, ok := fake.Selection(order.ID, url)
	if !ok {
		t.Fatal("Expected selection saved")
	}
	if len(sel.Production) != 2 || len(sel.Design) != 2 {
		t.Errorf("Unexpected saved selection %+v", sel)
	}
}

func TestHandoffSendEmpty(t *testing.T) {
	fake := testutil.NewFakeBackend()
	defer fake.Close()

	url := fake.AddFile("nest-2002.pdf", testutil.NestingReportPDF())
	order := fake.AddOrder(entity.Order{ID: 2002, Department: entity.DeptDesign})

	_, err := runCLI(t, "handoff", "send",
		"--backend", fake.URL(),
		"--token", testutil.DefaultTestToken(),
		"-d", "design",
		"-o", strconv.FormatInt(order.ID, 10),
		"-a", url,
	)
	if err == nil {
		t.Fatal("Expected error for empty selection")
	}
	if n := fake.CallCount("POST", "/api/orders/2002/row-selection"); n != 0 {
		t.Errorf("Expected no save call, got %d", n)
	}
}

func TestHandoffRequiresToken(t *testing.T) {
	t.Setenv("SHOPFLOOR_TOKEN", "")
	_, err := runCLI(t, "handoff", "open", "--backend", "http://localhost:1", "-d", "design", "-o", "1", "-a", "/uploads/x.pdf")
	if err == nil {
		t.Error("Expected error without token")
	}
}
