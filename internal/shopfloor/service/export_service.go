package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/metrics"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var subnestExportHeaders = []string{
	"Row", "Size X", "Size Y", "Material", "Thickness", "Time / Instance", "Total Time",
	"NC File", "Qty", "Area (m2)", "Efficiency %", "Page",
	"Design", "Production", "Machining", "Inspection",
}

var partExportHeaders = []string{
	"Part", "Material", "Thickness", "Required", "Placed", "Weight (kg)",
	"Time / Instance", "Pierce", "Cut Length",
}

var materialExportHeaders = []string{
	"Material", "Thickness", "Size X", "Size Y", "Sheets", "Notes",
}

// ExportService 解析表格导出为 xlsx
type ExportService struct {
	client  *backend.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewExportService(client *backend.Client, m *metrics.Metrics, logger *zap.Logger) *ExportService {
	return &ExportService{client: client, metrics: m, logger: logger}
}

// Export 套料/零件/板材三张表各一个工作表，套料表附带各部门勾选列
func (s *ExportService) Export(ctx context.Context, dept entity.Department, orderID int64, attachmentURL string) (*excelize.File, string, error) {
	tables, sel, err := s.fetch(ctx, orderID, attachmentURL)
	if err != nil {
		return nil, "", err
	}

	f, err := BuildWorkbook(tables, sel)
	if err != nil {
		return nil, "", err
	}
	s.metrics.Export(string(dept))
	return f, exportFileName(orderID, attachmentURL, ".xlsx"), nil
}

// ExportCSV 只导出套料表；gbk 为 true 时按 GBK 编码输出（中文版 Excel 直接打开）
func (s *ExportService) ExportCSV(ctx context.Context, dept entity.Department, orderID int64, attachmentURL string, gbk bool, w io.Writer) (string, error) {
	tables, sel, err := s.fetch(ctx, orderID, attachmentURL)
	if err != nil {
		return "", err
	}

	if !gbk {
		if err := WriteSubnestCSV(w, tables.Subnests, sel); err != nil {
			return "", err
		}
	} else {
		// UTF-8 → GBK，GBK 无法表示的字符被替换
		tw := transform.NewWriter(w, encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder()))
		if err := WriteSubnestCSV(tw, tables.Subnests, sel); err != nil {
			tw.Close()
			return "", err
		}
		if err := tw.Close(); err != nil {
			return "", fmt.Errorf("gbk encode: %w", err)
		}
	}
	s.metrics.Export(string(dept))
	return exportFileName(orderID, attachmentURL, ".csv"), nil
}

func (s *ExportService) fetch(ctx context.Context, orderID int64, attachmentURL string) (entity.PDFTables, entity.RowSelection, error) {
	var tables entity.PDFTables
	var sel entity.RowSelection
	if attachmentURL == "" {
		return tables, sel, invalid("attachment_url is required")
	}

	var err error
	if tables.Subnests, err = s.client.SubnestData(ctx, attachmentURL); err != nil {
		return tables, sel, fmt.Errorf("subnest data: %w", err)
	}
	if tables.Parts, err = s.client.PartsData(ctx, attachmentURL); err != nil {
		return tables, sel, fmt.Errorf("parts data: %w", err)
	}
	if tables.Materials, err = s.client.MaterialData(ctx, attachmentURL); err != nil {
		return tables, sel, fmt.Errorf("material data: %w", err)
	}

	if got, err := s.client.GetRowSelection(ctx, orderID, attachmentURL); err == nil && got != nil {
		sel = *got
	} else if err != nil && !errors.Is(err, backend.ErrNotFound) {
		s.logger.Warn("selection unavailable for export", zap.Int64("order_id", orderID), zap.Error(err))
	}
	return tables, sel, nil
}

func exportFileName(orderID int64, attachmentURL, ext string) string {
	base := strings.TrimSuffix(path.Base(attachmentURL), path.Ext(attachmentURL))
	return fmt.Sprintf("SF%d_%s%s", orderID, base, ext)
}

// selectionMarks 每个部门列一个行号集合
func selectionMarks(sel entity.RowSelection) map[entity.Department]map[int]bool {
	columns := map[entity.Department]map[int]bool{}
	for _, d := range entity.SelectionDepartments {
		set := map[int]bool{}
		for _, r := range sel.Column(d) {
			set[r] = true
		}
		columns[d] = set
	}
	return columns
}

// WriteSubnestCSV 套料表 CSV，勾选列写 Y
func WriteSubnestCSV(w io.Writer, subnests []entity.SubnestRow, sel entity.RowSelection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(subnestExportHeaders); err != nil {
		return err
	}
	columns := selectionMarks(sel)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, r := range subnests {
		record := []string{
			strconv.Itoa(r.RowNo), f(r.SizeX), f(r.SizeY), r.Material, f(r.Thickness), r.TimePerInstance, r.TotalTime,
			r.NCFile, strconv.Itoa(r.Qty), f(r.AreaM2), f(r.EfficiencyPercent), strconv.Itoa(r.PageNumber),
		}
		for _, d := range entity.SelectionDepartments {
			mark := ""
			if columns[d][r.RowNo] {
				mark = "Y"
			}
			record = append(record, mark)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildWorkbook 生成工作簿
func BuildWorkbook(tables entity.PDFTables, sel entity.RowSelection) (*excelize.File, error) {
	f := excelize.NewFile()

	// 表头样式: 加粗
	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	// Subnests
	sheet := "Subnests"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, subnestExportHeaders, boldStyle)
	columns := selectionMarks(sel)
	for i, r := range tables.Subnests {
		values := []interface{}{
			r.RowNo, r.SizeX, r.SizeY, r.Material, r.Thickness, r.TimePerInstance, r.TotalTime,
			r.NCFile, r.Qty, r.AreaM2, r.EfficiencyPercent, r.PageNumber,
		}
		for _, d := range entity.SelectionDepartments {
			mark := ""
			if columns[d][r.RowNo] {
				mark = "✓"
			}
			values = append(values, mark)
		}
		writeRow(f, sheet, i+2, values)
	}
	setWidths(f, sheet, []float64{6, 10, 10, 12, 10, 14, 12, 24, 6, 10, 12, 6, 10, 12, 12, 12})

	// Parts
	sheet = "Parts"
	f.NewSheet(sheet)
	writeHeader(f, sheet, partExportHeaders, boldStyle)
	for i, p := range tables.Parts {
		writeRow(f, sheet, i+2, []interface{}{
			p.PartName, p.Material, p.Thickness, p.RequiredQty, p.PlacedQty, p.WeightKg,
			p.TimePerInstance, p.Pierce, p.CuttingLength,
		})
	}
	setWidths(f, sheet, []float64{24, 12, 10, 10, 10, 12, 14, 8, 12})

	// Materials
	sheet = "Materials"
	f.NewSheet(sheet)
	writeHeader(f, sheet, materialExportHeaders, boldStyle)
	for i, m := range tables.Materials {
		writeRow(f, sheet, i+2, []interface{}{m.Material, m.Thickness, m.SizeX, m.SizeY, m.SheetQty, m.Notes})
	}
	setWidths(f, sheet, []float64{14, 10, 10, 10, 8, 30})

	return f, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
	}
}

func setWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}
