package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/service"
	"github.com/gin-gonic/gin"
)

// StatusHandler 订单状态历史
type StatusHandler struct {
	svc *service.StatusService
}

func NewStatusHandler(svc *service.StatusService) *StatusHandler {
	return &StatusHandler{svc: svc}
}

// StatusRequest 追加状态记录（JSON）
type StatusRequest struct {
	NewStatus     string `json:"new_status" binding:"required"`
	Comment       string `json:"comment"`
	Percentage    int    `json:"percentage"`
	AttachmentURL string `json:"attachment_url"`
}

// List 状态历史（按时间升序）
// GET /api/v1/orders/:id/status
func (h *StatusHandler) List(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.svc.List(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": entries, "total": len(entries)})
}

// Create 追加状态记录；multipart 请求可带附件（字段 file）
// POST /api/v1/orders/:id/status
func (h *StatusHandler) Create(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in service.StatusInput
	if c.ContentType() == "multipart/form-data" {
		percentage, err := strconv.Atoi(c.DefaultPostForm("percentage", "0"))
		if err != nil {
			BadRequest(c, "percentage must be a number")
			return
		}
		dept, ok := parseDepartment(c, c.PostForm("new_status"))
		if !ok {
			return
		}
		in = service.StatusInput{
			NewStatus:     dept,
			Comment:       c.PostForm("comment"),
			Percentage:    percentage,
			AttachmentURL: c.PostForm("attachment_url"),
		}

		if fh, err := c.FormFile("file"); err == nil {
			file, err := fh.Open()
			if err != nil {
				BadRequest(c, "Failed to read file")
				return
			}
			defer file.Close()
			in.File = &service.Upload{
				FileName:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Reader:      file,
			}
		}
	} else {
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "new_status is required")
			return
		}
		dept, ok := entity.ParseDepartment(req.NewStatus)
		if !ok {
			BadRequest(c, "unknown department: "+req.NewStatus)
			return
		}
		in = service.StatusInput{
			NewStatus:     dept,
			Comment:       req.Comment,
			Percentage:    req.Percentage,
			AttachmentURL: req.AttachmentURL,
		}
	}
	in.OrderID = id

	entry, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, entry)
}
