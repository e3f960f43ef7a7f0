package handler

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/handoff"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/overlay"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WorkbenchHandler 部门工作台：解析表格、勾选交接、图纸叠加层、导出
type WorkbenchHandler struct {
	workflow *handoff.Workflow
	drawings *service.DrawingService
	exports  *service.ExportService
	logger   *zap.Logger
}

func NewWorkbenchHandler(workflow *handoff.Workflow, drawings *service.DrawingService, exports *service.ExportService, logger *zap.Logger) *WorkbenchHandler {
	return &WorkbenchHandler{workflow: workflow, drawings: drawings, exports: exports, logger: logger}
}

// WorkbenchView 打开工作台的响应
type WorkbenchView struct {
	OrderID       int64                `json:"order_id"`
	DisplayID     string               `json:"display_id"`
	Department    entity.Department    `json:"department"`
	Next          entity.Department    `json:"next_department"`
	AttachmentURL string               `json:"attachment_url"`
	Subnests      []entity.SubnestRow  `json:"subnests"`
	Parts         []entity.PartRow     `json:"parts"`
	Materials     []entity.MaterialRow `json:"materials"`
	Warnings      []string             `json:"warnings,omitempty"`
	Columns       []handoff.Column     `json:"columns"`
	Claimed       []int                `json:"claimed"`
	Own           []int                `json:"own"`
	Seeded        bool                 `json:"seeded"`
	CanSend       bool                 `json:"can_send"`
	Stage         handoff.Stage        `json:"stage,omitempty"`
}

// SelectionRequest 保存/发送请求。rows 为本部门列的完整内容；省略时沿用已保存的列
type SelectionRequest struct {
	AttachmentURL string `json:"attachment_url" binding:"required"`
	Rows          []int  `json:"rows"`
}

func (h *WorkbenchHandler) target(c *gin.Context) (entity.Department, int64, bool) {
	dept, ok := parseDepartment(c, c.Param("department"))
	if !ok {
		return "", 0, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return "", 0, false
	}
	return dept, id, true
}

func attachmentParam(c *gin.Context) (string, bool) {
	raw := c.Query("attachment_url")
	if raw == "" {
		BadRequest(c, "attachment_url is required")
		return "", false
	}
	return raw, true
}

// Open 打开订单附件：每次重新获取表格与勾选状态
// GET /api/v1/workbench/:department/orders/:id?attachment_url=
func (h *WorkbenchHandler) Open(c *gin.Context) {
	dept, id, ok := h.target(c)
	if !ok {
		return
	}
	attachmentURL, ok := attachmentParam(c)
	if !ok {
		return
	}

	wb, err := h.workflow.Open(c.Request.Context(), dept, id, attachmentURL)
	if err != nil {
		handleError(c, err)
		return
	}
	b := wb.Board
	Success(c, WorkbenchView{
		OrderID:       id,
		DisplayID:     entity.Order{ID: id}.DisplayID(),
		Department:    dept,
		Next:          b.Config().Next,
		AttachmentURL: attachmentURL,
		Subnests:      wb.Subnests,
		Parts:         wb.Parts,
		Materials:     wb.Materials,
		Warnings:      wb.Warnings,
		Columns:       b.Columns(),
		Claimed:       b.Claimed(),
		Own:           b.Own(),
		Seeded:        b.Seeded(),
		CanSend:       b.CanSend(),
		Stage:         b.Stage(),
	})
}

// board 按最新的后端状态重建面板并应用本次提交的勾选
func (h *WorkbenchHandler) board(c *gin.Context, dept entity.Department, id int64, req SelectionRequest) (*handoff.Board, error) {
	b, err := h.workflow.Board(c.Request.Context(), dept, id, req.AttachmentURL)
	if err != nil {
		return nil, err
	}
	if req.Rows != nil {
		if err := b.SetOwn(req.Rows); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Save 保存本部门勾选，不推进订单
// POST /api/v1/workbench/:department/orders/:id/save
func (h *WorkbenchHandler) Save(c *gin.Context) {
	dept, id, ok := h.target(c)
	if !ok {
		return
	}
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "attachment_url is required")
		return
	}

	b, err := h.board(c, dept, id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	saved, err := h.workflow.Save(c.Request.Context(), b)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"selection": saved, "stage": handoff.StageOf(*saved)})
}

// Send 保存并推进到下一个部门；本部门未勾选时直接拒绝
// POST /api/v1/workbench/:department/orders/:id/send
func (h *WorkbenchHandler) Send(c *gin.Context) {
	dept, id, ok := h.target(c)
	if !ok {
		return
	}
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "attachment_url is required")
		return
	}
	if req.Rows != nil && len(req.Rows) == 0 {
		handleError(c, handoff.ErrEmptySelection)
		return
	}

	b, err := h.board(c, dept, id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := h.workflow.Send(c.Request.Context(), b)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}

// Export 导出解析表格为 xlsx；format=csv 时只导出套料表，encoding=gbk 可选
// GET /api/v1/workbench/:department/orders/:id/export?attachment_url=&format=&encoding=
func (h *WorkbenchHandler) Export(c *gin.Context) {
	dept, id, ok := h.target(c)
	if !ok {
		return
	}
	attachmentURL, ok := attachmentParam(c)
	if !ok {
		return
	}

	switch c.DefaultQuery("format", "xlsx") {
	case "xlsx":
	case "csv":
		h.exportCSV(c, dept, id, attachmentURL)
		return
	default:
		BadRequest(c, "format must be xlsx or csv")
		return
	}

	f, filename, err := h.exports.Export(c.Request.Context(), dept, id, attachmentURL)
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, filename, url.PathEscape(filename)))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("write xlsx failed", zap.Int64("order_id", id), zap.Error(err))
	}
}

func (h *WorkbenchHandler) exportCSV(c *gin.Context, dept entity.Department, id int64, attachmentURL string) {
	gbk := strings.EqualFold(c.Query("encoding"), "gbk")

	var buf bytes.Buffer
	filename, err := h.exports.ExportCSV(c.Request.Context(), dept, id, attachmentURL, gbk, &buf)
	if err != nil {
		handleError(c, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if gbk {
		contentType = "text/csv; charset=gbk"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, filename, url.PathEscape(filename)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *WorkbenchHandler) drawingRequest(c *gin.Context) (service.DrawingRequest, bool) {
	dept, id, ok := h.target(c)
	if !ok {
		return service.DrawingRequest{}, false
	}
	attachmentURL, ok := attachmentParam(c)
	if !ok {
		return service.DrawingRequest{}, false
	}
	req := service.DrawingRequest{Department: dept, OrderID: id, AttachmentURL: attachmentURL}

	if raw := c.Query("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			BadRequest(c, "invalid scale: "+raw)
			return req, false
		}
		req.Scale = v
	}
	if raw := c.Query("dpr"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > overlay.MaxDevicePixelRatio {
			BadRequest(c, fmt.Sprintf("invalid dpr: %s (must be in (0, %g])", raw, overlay.MaxDevicePixelRatio))
			return req, false
		}
		req.DevicePixelRatio = v
	}
	req.ViewOnly = c.Query("view_only") == "true" || c.Query("view_only") == "1"
	return req, true
}

// DrawingLayout 图纸各页尺寸与勾选框位置
// GET /api/v1/workbench/:department/orders/:id/drawing/layout?attachment_url=&scale=&dpr=&view_only=
func (h *WorkbenchHandler) DrawingLayout(c *gin.Context) {
	req, ok := h.drawingRequest(c)
	if !ok {
		return
	}
	layout, err := h.drawings.Layout(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, layout)
}

// DrawingPage 单页 PNG（含勾选框）
// GET /api/v1/workbench/:department/orders/:id/drawing/pages/:page
func (h *WorkbenchHandler) DrawingPage(c *gin.Context) {
	req, ok := h.drawingRequest(c)
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page <= 0 {
		BadRequest(c, "invalid page: "+c.Param("page"))
		return
	}

	png, err := h.drawings.RenderPage(c.Request.Context(), req, page)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
