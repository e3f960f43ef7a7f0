package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// OrderRequest 创建/更新订单
type OrderRequest struct {
	CustomerIDs         []int64           `json:"customerIds"`
	ProductIDs          []int64           `json:"productIds,omitempty"`
	CustomProductDetail string            `json:"customProductDetails,omitempty"`
	Units               string            `json:"units,omitempty"`
	Material            string            `json:"material,omitempty"`
	Department          entity.Department `json:"department,omitempty"`
}

// ListOrders 订单列表；department 非空时由后端按部门过滤
func (c *Client) ListOrders(ctx context.Context, department entity.Department) ([]entity.Order, error) {
	var query url.Values
	if department != "" {
		query = url.Values{"department": {string(department)}}
	}
	var orders []entity.Order
	if err := c.doRequest(ctx, http.MethodGet, "orders.list", "/api/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder 获取订单
func (c *Client) GetOrder(ctx context.Context, id int64) (*entity.Order, error) {
	var order entity.Order
	if err := c.doRequest(ctx, http.MethodGet, "orders.get", fmt.Sprintf("/api/orders/%d", id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*entity.Order, error) {
	var order entity.Order
	if err := c.doRequest(ctx, http.MethodPost, "orders.create", "/api/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder 更新订单
func (c *Client) UpdateOrder(ctx context.Context, id int64, req OrderRequest) (*entity.Order, error) {
	var order entity.Order
	if err := c.doRequest(ctx, http.MethodPut, "orders.update", fmt.Sprintf("/api/orders/%d", id), nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionDepartment 显式切换订单部门
func (c *Client) TransitionDepartment(ctx context.Context, id int64, dept entity.Department) (*entity.Order, error) {
	body := map[string]entity.Department{"department": dept}
	var order entity.Order
	if err := c.doRequest(ctx, http.MethodPut, "orders.department", fmt.Sprintf("/api/orders/%d/department", id), nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
