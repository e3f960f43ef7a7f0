package entity

import (
	"strconv"
	"strings"
	"time"
)

// Department 订单所处部门（工作流阶段）
type Department string

const (
	DeptEnquiry    Department = "ENQUIRY"
	DeptDesign     Department = "DESIGN"
	DeptProduction Department = "PRODUCTION"
	DeptMachining  Department = "MACHINING"
	DeptInspection Department = "INSPECTION"
	DeptCompleted  Department = "COMPLETED"
)

// departmentOrder 部门流转顺序
var departmentOrder = []Department{
	DeptEnquiry,
	DeptDesign,
	DeptProduction,
	DeptMachining,
	DeptInspection,
	DeptCompleted,
}

// Valid 是否为已知部门
func (d Department) Valid() bool {
	return d.Index() >= 0
}

// Index 部门在流转顺序中的位置，未知部门返回 -1
func (d Department) Index() int {
	for i, v := range departmentOrder {
		if v == d {
			return i
		}
	}
	return -1
}

// Next 下一个部门；COMPLETED 及未知部门返回空
func (d Department) Next() Department {
	i := d.Index()
	if i < 0 || i == len(departmentOrder)-1 {
		return ""
	}
	return departmentOrder[i+1]
}

// Prev 上一个部门；ENQUIRY 及未知部门返回空
func (d Department) Prev() Department {
	i := d.Index()
	if i <= 0 {
		return ""
	}
	return departmentOrder[i-1]
}

// Before d 是否在 other 之前
func (d Department) Before(other Department) bool {
	return d.Index() >= 0 && d.Index() < other.Index()
}

// ParseDepartment 解析部门名称（大小写不敏感，兼容 MECHANIST）
func ParseDepartment(s string) (Department, bool) {
	switch normalize(s) {
	case "ENQUIRY":
		return DeptEnquiry, true
	case "DESIGN":
		return DeptDesign, true
	case "PRODUCTION":
		return DeptProduction, true
	case "MACHINING", "MECHANIST", "MECHINIST", "MACHINE":
		return DeptMachining, true
	case "INSPECTION":
		return DeptInspection, true
	case "COMPLETED":
		return DeptCompleted, true
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Order 订单
type Order struct {
	ID                  int64      `json:"id"`
	Department          Department `json:"department"`
	Customers           []Customer `json:"customers,omitempty"`
	Products            []Product  `json:"products,omitempty"`
	CustomProductDetail string     `json:"customProductDetails,omitempty"`
	Units               string     `json:"units,omitempty"`
	Material            string     `json:"material,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// DisplayID 展示用订单号，如 SF1005
func (o Order) DisplayID() string {
	return "SF" + strconv.FormatInt(o.ID, 10)
}

// ProductLabel 产品描述：优先使用产品名称，否则使用自定义描述
func (o Order) ProductLabel() string {
	if len(o.Products) > 0 {
		label := o.Products[0].Name
		for _, p := range o.Products[1:] {
			label += ", " + p.Name
		}
		return label
	}
	return o.CustomProductDetail
}
