package service

import (
	"context"
	"sort"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"go.uber.org/zap"
)

// QueueItem 部门队列中的一个订单
type QueueItem struct {
	entity.Order
	DisplayID     string                     `json:"displayId"`
	ProductLabel  string                     `json:"productLabel"`
	ActiveDrawing *entity.StatusHistoryEntry `json:"activeDrawing,omitempty"`
}

// QueueService 部门队列
type QueueService struct {
	client *backend.Client
	logger *zap.Logger
}

func NewQueueService(client *backend.Client, logger *zap.Logger) *QueueService {
	return &QueueService{client: client, logger: logger}
}

// List 部门队列：订单的 department 字段决定可见性，每个订单附带当前图纸
func (s *QueueService) List(ctx context.Context, dept entity.Department) ([]QueueItem, error) {
	if !dept.Valid() {
		return nil, invalid("unknown department %q", dept)
	}
	orders, err := s.client.ListOrders(ctx, dept)
	if err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(orders))
	for _, o := range orders {
		// 后端未按部门过滤时在这里兜底
		if o.Department != dept {
			continue
		}
		item := QueueItem{Order: o, DisplayID: o.DisplayID(), ProductLabel: o.ProductLabel()}

		history, err := s.client.ListStatusHistory(ctx, o.ID)
		if err != nil {
			s.logger.Warn("status history fetch failed", zap.Int64("order_id", o.ID), zap.Error(err))
		} else if d, ok := DrawingFor(history, dept); ok {
			item.ActiveDrawing = &d
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// DrawingFor 部门使用的图纸：先找本部门上传的 PDF，没有则沿上游部门向前找
func DrawingFor(history []entity.StatusHistoryEntry, dept entity.Department) (entity.StatusHistoryEntry, bool) {
	for d := dept; d.Valid(); d = d.Prev() {
		if e, ok := entity.ActiveDrawing(history, d); ok {
			return e, true
		}
	}
	return entity.StatusHistoryEntry{}, false
}
