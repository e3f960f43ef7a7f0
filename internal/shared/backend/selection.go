package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// SelectionEndpoint 部门专属的"带勾选推进"接口
type SelectionEndpoint string

const (
	MachiningSelection  SelectionEndpoint = "machining-selection"
	InspectionSelection SelectionEndpoint = "inspection-selection"
)

// GetRowSelection 获取订单+附件的合并勾选状态
func (c *Client) GetRowSelection(ctx context.Context, orderID int64, attachmentURL string) (*entity.RowSelection, error) {
	var sel entity.RowSelection
	path := fmt.Sprintf("/api/orders/%d/row-selection", orderID)
	if err := c.doRequest(ctx, http.MethodGet, "selection.get", path, attachmentQuery(attachmentURL), nil, &sel); err != nil {
		return nil, err
	}
	return &sel, nil
}

// SaveRowSelection 保存勾选状态；请求体是全部部门列及其并集，不是增量
func (c *Client) SaveRowSelection(ctx context.Context, orderID int64, sel entity.RowSelection) (*entity.RowSelection, error) {
	var saved entity.RowSelection
	path := fmt.Sprintf("/api/orders/%d/row-selection", orderID)
	if err := c.doRequest(ctx, http.MethodPost, "selection.save", path, nil, sel, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetDepartmentSelection 获取部门专属勾选（加工/检验）
func (c *Client) GetDepartmentSelection(ctx context.Context, endpoint SelectionEndpoint, orderID int64, attachmentURL string) (*entity.RowSelection, error) {
	var sel entity.RowSelection
	path := fmt.Sprintf("/api/orders/%d/%s", orderID, endpoint)
	if err := c.doRequest(ctx, http.MethodGet, "selection."+string(endpoint)+".get", path, attachmentQuery(attachmentURL), nil, &sel); err != nil {
		return nil, err
	}
	return &sel, nil
}

// AdvanceWithSelection 提交勾选并由后端推进订单部门
func (c *Client) AdvanceWithSelection(ctx context.Context, endpoint SelectionEndpoint, orderID int64, sel entity.RowSelection) (*entity.Order, error) {
	var order entity.Order
	path := fmt.Sprintf("/api/orders/%d/%s", orderID, endpoint)
	if err := c.doRequest(ctx, http.MethodPost, "selection."+string(endpoint)+".advance", path, nil, sel, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
