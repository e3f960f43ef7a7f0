package handler

import (
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 订单
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// OrderRequest 创建/更新订单
type OrderRequest struct {
	CustomerIDs         []int64 `json:"customer_ids"`
	ProductIDs          []int64 `json:"product_ids"`
	CustomProductDetail string  `json:"custom_product_details"`
	Units               string  `json:"units"`
	Material            string  `json:"material"`
	Department          string  `json:"department"`
}

func (r OrderRequest) toBackend() (backend.OrderRequest, bool) {
	req := backend.OrderRequest{
		CustomerIDs:         r.CustomerIDs,
		ProductIDs:          r.ProductIDs,
		CustomProductDetail: r.CustomProductDetail,
		Units:               r.Units,
		Material:            r.Material,
	}
	if r.Department != "" {
		dept, ok := entity.ParseDepartment(r.Department)
		if !ok {
			return req, false
		}
		req.Department = dept
	}
	return req, true
}

// List 订单列表
// GET /api/v1/orders?department=DESIGN
func (h *OrderHandler) List(c *gin.Context) {
	var dept entity.Department
	if raw := c.Query("department"); raw != "" {
		d, ok := parseDepartment(c, raw)
		if !ok {
			return
		}
		dept = d
	}
	orders, err := h.svc.List(c.Request.Context(), dept)
	if err != nil {
		handleError(c, err)
		return
	}
	if orders == nil {
		orders = []entity.Order{}
	}
	Success(c, gin.H{"items": orders, "total": len(orders)})
}

// Get 订单详情
// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, order)
}

// Create 创建订单
// POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	in, ok := req.toBackend()
	if !ok {
		BadRequest(c, "unknown department: "+req.Department)
		return
	}
	order, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, order)
}

// Update 更新订单（部门只能通过部门切换修改）
// PUT /api/v1/orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	in, _ := req.toBackend()
	order, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, order)
}

// TransitionRequest 部门切换
type TransitionRequest struct {
	Department string `json:"department" binding:"required"`
}

// Transition 切换订单部门
// PUT /api/v1/orders/:id/department
func (h *OrderHandler) Transition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "department is required")
		return
	}
	dept, ok := parseDepartment(c, req.Department)
	if !ok {
		return
	}
	order, err := h.svc.Transition(c.Request.Context(), id, dept)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, order)
}
