package testutil

import (
	"bytes"
	"fmt"
)

// SamplePage 测试 PDF 的一页；Width/Height 为 0 时继承页树上的 MediaBox
type SamplePage struct {
	Width   float64
	Height  float64
	Content string
}

// SamplePDF 生成带 xref 的最小 PDF，页树默认 MediaBox 为 612×792（Letter）
func SamplePDF(pages ...SamplePage) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) int {
		offsets = append(offsets, buf.Len())
		n := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
		return n
	}

	buf.WriteString("%PDF-1.4\n")

	// 1 目录、2 页树、3 字体，页面对象从 4 开始，每页两个对象（页面 + 内容流）
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+i*2)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", kids, len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		box := ""
		if p.Width > 0 && p.Height > 0 {
			box = fmt.Sprintf(" /MediaBox [0 0 %g %g]", p.Width, p.Height)
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R%s /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", box, 5+i*2))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// NestingReportPDF 两页套料报告：第 1 页三行（y=700/650/600），第 2 页一行（y=500）
func NestingReportPDF() []byte {
	page1 := "50 690 200 20 re S\n50 640 200 20 re S\n50 590 200 20 re S\nBT /F1 10 Tf 60 730 Td (Subnest report) Tj ET"
	page2 := "50 490 200 20 re S"
	return SamplePDF(SamplePage{Content: page1}, SamplePage{Width: 842, Height: 595, Content: page2})
}
