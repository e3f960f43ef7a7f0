package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// StatusRequest 追加状态记录
type StatusRequest struct {
	OrderID       int64             `json:"orderId"`
	OldStatus     entity.Department `json:"oldStatus"`
	NewStatus     entity.Department `json:"newStatus"`
	Comment       string            `json:"comment,omitempty"`
	Percentage    int               `json:"percentage"`
	AttachmentURL string            `json:"attachmentUrl,omitempty"`
}

// ListStatusHistory 订单状态历史
func (c *Client) ListStatusHistory(ctx context.Context, orderID int64) ([]entity.StatusHistoryEntry, error) {
	var entries []entity.StatusHistoryEntry
	path := fmt.Sprintf("/api/status/order/%d", orderID)
	if err := c.doRequest(ctx, http.MethodGet, "status.list", path, nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateStatus 追加状态记录（附件已有地址或无附件）
func (c *Client) CreateStatus(ctx context.Context, req StatusRequest) (*entity.StatusHistoryEntry, error) {
	var entry entity.StatusHistoryEntry
	if err := c.doRequest(ctx, http.MethodPost, "status.create", "/api/status", nil, req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateStatusWithFile 追加状态记录并由后端保存上传的附件
func (c *Client) CreateStatusWithFile(ctx context.Context, req StatusRequest, fileName string, file io.Reader) (*entity.StatusHistoryEntry, error) {
	fields := map[string]string{
		"orderId":    strconv.FormatInt(req.OrderID, 10),
		"oldStatus":  string(req.OldStatus),
		"newStatus":  string(req.NewStatus),
		"comment":    req.Comment,
		"percentage": strconv.Itoa(req.Percentage),
	}
	var entry entity.StatusHistoryEntry
	if err := c.doMultipart(ctx, "status.upload", "/api/status/upload", fields, "file", fileName, file, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
