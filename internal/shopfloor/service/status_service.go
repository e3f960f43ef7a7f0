package service

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/storage"
)

// Upload 随状态记录上传的附件
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// StatusInput 追加状态记录
type StatusInput struct {
	OrderID       int64
	NewStatus     entity.Department
	Comment       string
	Percentage    int
	AttachmentURL string
	File          *Upload
}

// StatusService 状态历史（只追加）
type StatusService struct {
	client  *backend.Client
	objects *storage.ObjectStore
}

func NewStatusService(client *backend.Client, objects *storage.ObjectStore) *StatusService {
	return &StatusService{client: client, objects: objects}
}

// List 按时间升序
func (s *StatusService) List(ctx context.Context, orderID int64) ([]entity.StatusHistoryEntry, error) {
	if orderID <= 0 {
		return nil, invalid("invalid order id %d", orderID)
	}
	entries, err := s.client.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []entity.StatusHistoryEntry{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Create 追加一条状态记录。oldStatus 取订单当前部门。
// 配置了对象存储时附件先上传到 MinIO，否则以 multipart 转交后端保存。
func (s *StatusService) Create(ctx context.Context, in StatusInput) (*entity.StatusHistoryEntry, error) {
	if in.OrderID <= 0 {
		return nil, invalid("invalid order id %d", in.OrderID)
	}
	if !in.NewStatus.Valid() {
		return nil, invalid("unknown status %q", in.NewStatus)
	}
	if in.Percentage < 0 || in.Percentage > 100 {
		return nil, invalid("percentage must be between 0 and 100")
	}
	if in.File != nil && strings.TrimSpace(in.File.FileName) == "" {
		return nil, invalid("attachment file name is required")
	}

	order, err := s.client.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	req := backend.StatusRequest{
		OrderID:       in.OrderID,
		OldStatus:     order.Department,
		NewStatus:     in.NewStatus,
		Comment:       strings.TrimSpace(in.Comment),
		Percentage:    in.Percentage,
		AttachmentURL: in.AttachmentURL,
	}

	if in.File == nil {
		return s.client.CreateStatus(ctx, req)
	}
	if s.objects != nil {
		contentType := in.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		url, err := s.objects.Put(ctx, in.OrderID, in.File.FileName, in.File.Reader, in.File.Size, contentType)
		if err != nil {
			return nil, err
		}
		req.AttachmentURL = url
		return s.client.CreateStatus(ctx, req)
	}
	return s.client.CreateStatusWithFile(ctx, req, in.File.FileName, in.File.Reader)
}
