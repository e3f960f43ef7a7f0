package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// OrderService 订单增改查与部门切换
type OrderService struct {
	client *backend.Client
}

func NewOrderService(client *backend.Client) *OrderService {
	return &OrderService{client: client}
}

// List 订单列表，dept 为空返回全部
func (s *OrderService) List(ctx context.Context, dept entity.Department) ([]entity.Order, error) {
	if dept != "" && !dept.Valid() {
		return nil, invalid("unknown department %q", dept)
	}
	return s.client.ListOrders(ctx, dept)
}

func (s *OrderService) Get(ctx context.Context, id int64) (*entity.Order, error) {
	if id <= 0 {
		return nil, invalid("invalid order id %d", id)
	}
	return s.client.GetOrder(ctx, id)
}

// Create 新订单默认进入 ENQUIRY
func (s *OrderService) Create(ctx context.Context, req backend.OrderRequest) (*entity.Order, error) {
	if err := validateOrder(&req); err != nil {
		return nil, err
	}
	if req.Department == "" {
		req.Department = entity.DeptEnquiry
	}
	return s.client.CreateOrder(ctx, req)
}

// Update 部门字段不能通过更新修改，只能走部门切换
func (s *OrderService) Update(ctx context.Context, id int64, req backend.OrderRequest) (*entity.Order, error) {
	if id <= 0 {
		return nil, invalid("invalid order id %d", id)
	}
	if err := validateOrder(&req); err != nil {
		return nil, err
	}
	req.Department = ""
	return s.client.UpdateOrder(ctx, id, req)
}

// Transition 显式切换部门
func (s *OrderService) Transition(ctx context.Context, id int64, dept entity.Department) (*entity.Order, error) {
	if id <= 0 {
		return nil, invalid("invalid order id %d", id)
	}
	if !dept.Valid() {
		return nil, invalid("unknown department %q", dept)
	}
	return s.client.TransitionDepartment(ctx, id, dept)
}

func validateOrder(req *backend.OrderRequest) error {
	req.CustomProductDetail = strings.TrimSpace(req.CustomProductDetail)
	if len(req.CustomerIDs) == 0 {
		return invalid("at least one customer is required")
	}
	if len(req.ProductIDs) == 0 && req.CustomProductDetail == "" {
		return invalid("select a product or describe a custom product")
	}
	if req.Department != "" && !req.Department.Valid() {
		return invalid("unknown department %q", req.Department)
	}
	return nil
}
