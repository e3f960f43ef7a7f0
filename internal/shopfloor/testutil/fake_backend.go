package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/gin-gonic/gin"
)

// FakeBackend 内存版 ERP 后端，用于 handler/service 测试
type FakeBackend struct {
	Server *httptest.Server

	mu         sync.Mutex
	users      map[string]string
	orders     map[int64]*entity.Order
	nextOrder  int64
	history    map[int64][]entity.StatusHistoryEntry
	nextStatus int64
	selections map[string]entity.RowSelection
	deptSel    map[string]entity.RowSelection
	tables     map[string]entity.PDFTables
	files      map[string][]byte
	master     map[string]map[int64]map[string]interface{}
	nextMaster int64
	failures   map[string]int
	calls      []string
}

// NewFakeBackend 启动 httptest 服务；测试结束时自动关闭需调用方 defer Close
func NewFakeBackend() *FakeBackend {
	f := &FakeBackend{
		users:      map[string]string{},
		orders:     map[int64]*entity.Order{},
		nextOrder:  1000,
		history:    map[int64][]entity.StatusHistoryEntry{},
		selections: map[string]entity.RowSelection{},
		deptSel:    map[string]entity.RowSelection{},
		tables:     map[string]entity.PDFTables{},
		files:      map[string][]byte{},
		master: map[string]map[int64]map[string]interface{}{
			"customers": {},
			"products":  {},
			"machines":  {},
		},
		failures: map[string]int{},
	}
	f.Server = httptest.NewServer(f.routes())
	return f
}

// Close 关闭服务
func (f *FakeBackend) Close() {
	f.Server.Close()
}

// URL 服务地址
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

func (f *FakeBackend) routes() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(f.record)

	r.POST("/api/auth/login", f.login)

	api := r.Group("", f.requireToken)
	api.GET("/api/orders", f.listOrders)
	api.POST("/api/orders", f.createOrder)
	api.GET("/api/orders/:id", f.getOrder)
	api.PUT("/api/orders/:id", f.updateOrder)
	api.PUT("/api/orders/:id/department", f.transition)
	api.GET("/api/orders/:id/:action", f.getSelection)
	api.POST("/api/orders/:id/:action", f.postSelection)

	api.GET("/api/status/order/:id", f.listStatus)
	api.POST("/api/status", f.createStatus)
	api.POST("/api/status/upload", f.uploadStatus)

	api.GET("/api/pdf/:table", f.pdfTable)

	for _, res := range []string{"customers", "products", "machines"} {
		res := res
		api.GET("/api/"+res, func(c *gin.Context) { f.listMaster(c, res) })
		api.POST("/api/"+res, func(c *gin.Context) { f.saveMaster(c, res, 0) })
		api.GET("/api/"+res+"/:id", func(c *gin.Context) { f.getMaster(c, res) })
		api.PUT("/api/"+res+"/:id", func(c *gin.Context) { f.saveMaster(c, res, pathID(c)) })
		api.DELETE("/api/"+res+"/:id", func(c *gin.Context) { f.deleteMaster(c, res) })
	}

	api.GET("/uploads/*path", f.download)
	return r
}

// ==================== 测试数据 ====================

// AddUser 登录账号
func (f *FakeBackend) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// AddOrder 添加订单；ID 为 0 时自动分配
func (f *FakeBackend) AddOrder(o entity.Order) entity.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == 0 {
		f.nextOrder++
		o.ID = f.nextOrder
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	f.orders[o.ID] = &o
	return o
}

// Order 当前订单状态
func (f *FakeBackend) Order(id int64) (entity.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return entity.Order{}, false
	}
	return *o, true
}

// AddStatus 追加状态记录
func (f *FakeBackend) AddStatus(e entity.StatusHistoryEntry) entity.StatusHistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendStatus(e)
}

func (f *FakeBackend) appendStatus(e entity.StatusHistoryEntry) entity.StatusHistoryEntry {
	f.nextStatus++
	e.ID = f.nextStatus
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	f.history[e.OrderID] = append(f.history[e.OrderID], e)
	return e
}

// History 订单状态历史
func (f *FakeBackend) History(orderID int64) []entity.StatusHistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.StatusHistoryEntry(nil), f.history[orderID]...)
}

// SetTables 设置附件解析结果
func (f *FakeBackend) SetTables(attachmentURL string, tables entity.PDFTables) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[attachmentURL] = tables
}

// SetSelection 设置合并勾选状态
func (f *FakeBackend) SetSelection(orderID int64, attachmentURL string, sel entity.RowSelection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selections[selectionKey(orderID, attachmentURL)] = sel
}

// Selection 已保存的合并勾选状态
func (f *FakeBackend) Selection(orderID int64, attachmentURL string) (entity.RowSelection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sel, ok := f.selections[selectionKey(orderID, attachmentURL)]
	return sel, ok
}

// SetDepartmentSelection 设置部门专属接口的勾选
func (f *FakeBackend) SetDepartmentSelection(endpoint backend.SelectionEndpoint, orderID int64, attachmentURL string, sel entity.RowSelection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deptSel[string(endpoint)+"|"+selectionKey(orderID, attachmentURL)] = sel
}

// AddFile 发布一个可下载的附件，返回相对地址
func (f *FakeBackend) AddFile(name string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := "/uploads/" + strings.TrimPrefix(name, "/")
	f.files[p] = data
	return p
}

// Fail 让某个请求返回指定状态码
func (f *FakeBackend) Fail(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// Calls 收到的请求（METHOD path）
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount 某个请求的次数
func (f *FakeBackend) CallCount(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == method+" "+path {
			n++
		}
	}
	return n
}

// ==================== 中间件 ====================

func (f *FakeBackend) record(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path
	f.mu.Lock()
	f.calls = append(f.calls, key)
	status, fail := f.failures[key]
	f.mu.Unlock()

	if fail {
		c.AbortWithStatusJSON(status, gin.H{"message": fmt.Sprintf("forced %d", status)})
		return
	}
	c.Next()
}

func (f *FakeBackend) requireToken(c *gin.Context) {
	if !strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.Next()
}

// ==================== 处理器 ====================

func (f *FakeBackend) login(c *gin.Context) {
	var req backend.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	f.mu.Lock()
	pw, ok := f.users[req.Username]
	f.mu.Unlock()
	if !ok || pw != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}
	c.JSON(http.StatusOK, backend.LoginResponse{
		Token: DefaultTestToken(),
		User:  backend.LoginUser{ID: 7, Name: req.Username, Role: "ADMIN"},
	})
}

func (f *FakeBackend) listOrders(c *gin.Context) {
	dept := entity.Department(c.Query("department"))
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.Order{}
	for _, o := range f.orders {
		if dept == "" || o.Department == dept {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) getOrder(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[pathID(c)]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (f *FakeBackend) createOrder(c *gin.Context) {
	var req backend.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	f.mu.Lock()
	f.nextOrder++
	o := &entity.Order{ID: f.nextOrder, CreatedAt: time.Now()}
	f.applyOrder(o, req)
	if req.Department != "" {
		o.Department = req.Department
	}
	f.orders[o.ID] = o
	f.mu.Unlock()
	c.JSON(http.StatusCreated, o)
}

func (f *FakeBackend) updateOrder(c *gin.Context) {
	var req backend.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[pathID(c)]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	f.applyOrder(o, req)
	c.JSON(http.StatusOK, o)
}

func (f *FakeBackend) applyOrder(o *entity.Order, req backend.OrderRequest) {
	o.Customers = nil
	for _, id := range req.CustomerIDs {
		if m, ok := f.master["customers"][id]; ok {
			o.Customers = append(o.Customers, entity.Customer{ID: id, Name: fmt.Sprint(m["name"])})
		} else {
			o.Customers = append(o.Customers, entity.Customer{ID: id})
		}
	}
	o.Products = nil
	for _, id := range req.ProductIDs {
		if m, ok := f.master["products"][id]; ok {
			o.Products = append(o.Products, entity.Product{ID: id, Name: fmt.Sprint(m["name"])})
		} else {
			o.Products = append(o.Products, entity.Product{ID: id})
		}
	}
	o.CustomProductDetail = req.CustomProductDetail
	o.Units = req.Units
	o.Material = req.Material
}

func (f *FakeBackend) transition(c *gin.Context) {
	var body struct {
		Department entity.Department `json:"department"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !body.Department.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid department"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[pathID(c)]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	o.Department = body.Department
	c.JSON(http.StatusOK, o)
}

func (f *FakeBackend) getSelection(c *gin.Context) {
	key := selectionKey(pathID(c), c.Query("attachmentUrl"))
	f.mu.Lock()
	defer f.mu.Unlock()

	var (
		sel entity.RowSelection
		ok  bool
	)
	switch action := c.Param("action"); action {
	case "row-selection":
		sel, ok = f.selections[key]
	case string(backend.MachiningSelection), string(backend.InspectionSelection):
		sel, ok = f.deptSel[action+"|"+key]
	default:
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "No selection"})
		return
	}
	c.JSON(http.StatusOK, sel)
}

func (f *FakeBackend) postSelection(c *gin.Context) {
	var sel entity.RowSelection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	id := pathID(c)
	key := selectionKey(id, sel.AttachmentURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}

	switch action := c.Param("action"); action {
	case "row-selection":
		f.selections[key] = sel
		c.JSON(http.StatusOK, sel)
	case string(backend.MachiningSelection):
		f.selections[key] = sel
		f.deptSel[action+"|"+key] = sel
		o.Department = entity.DeptInspection
		c.JSON(http.StatusOK, o)
	case string(backend.InspectionSelection):
		f.selections[key] = sel
		f.deptSel[action+"|"+key] = sel
		o.Department = entity.DeptCompleted
		c.JSON(http.StatusOK, o)
	default:
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	}
}

func (f *FakeBackend) listStatus(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]entity.StatusHistoryEntry{}, f.history[pathID(c)]...)
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) createStatus(c *gin.Context) {
	var req backend.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.appendStatus(entity.StatusHistoryEntry{
		OrderID:       req.OrderID,
		OldStatus:     req.OldStatus,
		NewStatus:     req.NewStatus,
		Comment:       req.Comment,
		Percentage:    req.Percentage,
		AttachmentURL: req.AttachmentURL,
		CreatedBy:     "Test Operator",
	})
	c.JSON(http.StatusCreated, e)
}

func (f *FakeBackend) uploadStatus(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "file is required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "read file failed"})
		return
	}
	orderID, _ := strconv.ParseInt(c.PostForm("orderId"), 10, 64)
	percentage, _ := strconv.Atoi(c.PostForm("percentage"))

	f.mu.Lock()
	defer f.mu.Unlock()
	p := fmt.Sprintf("/uploads/status/%d/%s", orderID, header.Filename)
	f.files[p] = data
	e := f.appendStatus(entity.StatusHistoryEntry{
		OrderID:       orderID,
		OldStatus:     entity.Department(c.PostForm("oldStatus")),
		NewStatus:     entity.Department(c.PostForm("newStatus")),
		Comment:       c.PostForm("comment"),
		Percentage:    percentage,
		AttachmentURL: p,
		CreatedBy:     "Test Operator",
	})
	c.JSON(http.StatusCreated, e)
}

func (f *FakeBackend) pdfTable(c *gin.Context) {
	f.mu.Lock()
	tables, ok := f.tables[c.Query("attachmentUrl")]
	f.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Attachment not parsed"})
		return
	}
	switch c.Param("table") {
	case "subnest":
		c.JSON(http.StatusOK, tables.Subnests)
	case "parts":
		c.JSON(http.StatusOK, tables.Parts)
	case "material":
		c.JSON(http.StatusOK, tables.Materials)
	default:
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	}
}

func (f *FakeBackend) listMaster(c *gin.Context, res string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.master[res]))
	for id := range f.master[res] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.master[res][id])
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) getMaster(c *gin.Context, res string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.master[res][pathID(c)]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (f *FakeBackend) saveMaster(c *gin.Context, res string, id int64) {
	var item map[string]interface{}
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status := http.StatusOK
	if id == 0 {
		f.nextMaster++
		id = f.nextMaster
		status = http.StatusCreated
	} else if _, ok := f.master[res][id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	item["id"] = id
	f.master[res][id] = item
	c.JSON(status, item)
}

func (f *FakeBackend) deleteMaster(c *gin.Context, res string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := pathID(c)
	if _, ok := f.master[res][id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	delete(f.master[res], id)
	c.Status(http.StatusNoContent)
}

func (f *FakeBackend) download(c *gin.Context) {
	f.mu.Lock()
	data, ok := f.files[c.Request.URL.Path]
	f.mu.Unlock()
	if !ok {
		c.String(http.StatusNotFound, "file not found")
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

func pathID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

func selectionKey(orderID int64, attachmentURL string) string {
	return strconv.FormatInt(orderID, 10) + "|" + attachmentURL
}
