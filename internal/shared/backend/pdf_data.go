package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// 后端按附件地址解析 PDF 表格，每次按需重新获取

// SubnestData 套料排版表
func (c *Client) SubnestData(ctx context.Context, attachmentURL string) ([]entity.SubnestRow, error) {
	var rows []entity.SubnestRow
	if err := c.doRequest(ctx, http.MethodGet, "pdf.subnest", "/api/pdf/subnest", attachmentQuery(attachmentURL), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// PartsData 零件表
func (c *Client) PartsData(ctx context.Context, attachmentURL string) ([]entity.PartRow, error) {
	var rows []entity.PartRow
	if err := c.doRequest(ctx, http.MethodGet, "pdf.parts", "/api/pdf/parts", attachmentQuery(attachmentURL), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MaterialData 板材表
func (c *Client) MaterialData(ctx context.Context, attachmentURL string) ([]entity.MaterialRow, error) {
	var rows []entity.MaterialRow
	if err := c.doRequest(ctx, http.MethodGet, "pdf.material", "/api/pdf/material", attachmentQuery(attachmentURL), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func attachmentQuery(attachmentURL string) url.Values {
	return url.Values{"attachmentUrl": {attachmentURL}}
}
