package handler

import (
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// QueueHandler 部门队列
type QueueHandler struct {
	svc *service.QueueService
}

func NewQueueHandler(svc *service.QueueService) *QueueHandler {
	return &QueueHandler{svc: svc}
}

// List 部门队列中的订单（新订单在前），附带当前图纸
// GET /api/v1/queues/:department
func (h *QueueHandler) List(c *gin.Context) {
	dept, ok := parseDepartment(c, c.Param("department"))
	if !ok {
		return
	}
	items, err := h.svc.List(c.Request.Context(), dept)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items, "total": len(items)})
}
