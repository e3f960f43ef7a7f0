package handler

import (
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// MasterDataHandler 客户/产品/设备
type MasterDataHandler struct {
	svc *service.MasterDataService
}

func NewMasterDataHandler(svc *service.MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{svc: svc}
}

// ============================================================
// Customer
// ============================================================

func (h *MasterDataHandler) ListCustomers(c *gin.Context) {
	items, err := h.svc.ListCustomers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if items == nil {
		items = []entity.Customer{}
	}
	Success(c, gin.H{"items": items})
}

func (h *MasterDataHandler) GetCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetCustomer(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

func (h *MasterDataHandler) CreateCustomer(c *gin.Context) {
	var req entity.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

func (h *MasterDataHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req entity.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.UpdateCustomer(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

func (h *MasterDataHandler) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCustomer(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// ============================================================
// Product
// ============================================================

func (h *MasterDataHandler) ListProducts(c *gin.Context) {
	items, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if items == nil {
		items = []entity.Product{}
	}
	Success(c, gin.H{"items": items})
}

func (h *MasterDataHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetProduct(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

func (h *MasterDataHandler) CreateProduct(c *gin.Context) {
	var req entity.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

func (h *MasterDataHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req entity.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

func (h *MasterDataHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// ============================================================
// Machine
// ============================================================

func (h *MasterDataHandler) ListMachines(c *gin.Context) {
	items, err := h.svc.ListMachines(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if items == nil {
		items = []entity.Machine{}
	}
	Success(c, gin.H{"items": items})
}

func (h *MasterDataHandler) GetMachine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetMachine(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

func (h *MasterDataHandler) CreateMachine(c *gin.Context) {
	var req entity.Machine
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.CreateMachine(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

func (h *MasterDataHandler) UpdateMachine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req entity.Machine
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.UpdateMachine(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

func (h *MasterDataHandler) DeleteMachine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMachine(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
