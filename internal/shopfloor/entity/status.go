package entity

import (
	"net/url"
	"strings"
	"time"
)

// StatusHistoryEntry 订单状态流转记录，只追加不修改
type StatusHistoryEntry struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"orderId"`
	OldStatus     Department `json:"oldStatus"`
	NewStatus     Department `json:"newStatus"`
	Comment       string     `json:"comment,omitempty"`
	Percentage    int        `json:"percentage"`
	AttachmentURL string     `json:"attachmentUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CreatedBy     string     `json:"createdBy,omitempty"`
}

// IsPDF 附件是否为 PDF（忽略大小写和查询参数）
func (e StatusHistoryEntry) IsPDF() bool {
	return IsPDFURL(e.AttachmentURL)
}

// IsPDFURL 判断附件地址是否指向 PDF
func IsPDFURL(raw string) bool {
	if raw == "" {
		return false
	}
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(p), ".pdf")
}

// ActiveDrawing 部门当前生效的图纸：NewStatus 为该部门且附件为 PDF 的最新一条记录。
// 按 CreatedAt 比较，时间相同时取列表中靠后的记录。
func ActiveDrawing(entries []StatusHistoryEntry, dept Department) (StatusHistoryEntry, bool) {
	var (
		found  StatusHistoryEntry
		exists bool
	)
	for _, e := range entries {
		if e.NewStatus != dept || !e.IsPDF() {
			continue
		}
		if !exists || !e.CreatedAt.Before(found.CreatedAt) {
			found = e
			exists = true
		}
	}
	return found, exists
}
