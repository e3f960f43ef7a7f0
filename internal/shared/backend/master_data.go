package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// --- Customer ---

func (c *Client) ListCustomers(ctx context.Context) ([]entity.Customer, error) {
	var items []entity.Customer
	if err := c.doRequest(ctx, http.MethodGet, "customers.list", "/api/customers", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (*entity.Customer, error) {
	var item entity.Customer
	if err := c.doRequest(ctx, http.MethodGet, "customers.get", fmt.Sprintf("/api/customers/%d", id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateCustomer(ctx context.Context, in entity.Customer) (*entity.Customer, error) {
	var item entity.Customer
	if err := c.doRequest(ctx, http.MethodPost, "customers.create", "/api/customers", nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id int64, in entity.Customer) (*entity.Customer, error) {
	var item entity.Customer
	if err := c.doRequest(ctx, http.MethodPut, "customers.update", fmt.Sprintf("/api/customers/%d", id), nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteCustomer(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, "customers.delete", fmt.Sprintf("/api/customers/%d", id), nil, nil, nil)
}

// --- Product ---

func (c *Client) ListProducts(ctx context.Context) ([]entity.Product, error) {
	var items []entity.Product
	if err := c.doRequest(ctx, http.MethodGet, "products.list", "/api/products", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	var item entity.Product
	if err := c.doRequest(ctx, http.MethodGet, "products.get", fmt.Sprintf("/api/products/%d", id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateProduct(ctx context.Context, in entity.Product) (*entity.Product, error) {
	var item entity.Product
	if err := c.doRequest(ctx, http.MethodPost, "products.create", "/api/products", nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in entity.Product) (*entity.Product, error) {
	var item entity.Product
	if err := c.doRequest(ctx, http.MethodPut, "products.update", fmt.Sprintf("/api/products/%d", id), nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, "products.delete", fmt.Sprintf("/api/products/%d", id), nil, nil, nil)
}

// --- Machine ---

func (c *Client) ListMachines(ctx context.Context) ([]entity.Machine, error) {
	var items []entity.Machine
	if err := c.doRequest(ctx, http.MethodGet, "machines.list", "/api/machines", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetMachine(ctx context.Context, id int64) (*entity.Machine, error) {
	var item entity.Machine
	if err := c.doRequest(ctx, http.MethodGet, "machines.get", fmt.Sprintf("/api/machines/%d", id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateMachine(ctx context.Context, in entity.Machine) (*entity.Machine, error) {
	var item entity.Machine
	if err := c.doRequest(ctx, http.MethodPost, "machines.create", "/api/machines", nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateMachine(ctx context.Context, id int64, in entity.Machine) (*entity.Machine, error) {
	var item entity.Machine
	if err := c.doRequest(ctx, http.MethodPut, "machines.update", fmt.Sprintf("/api/machines/%d", id), nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteMachine(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, "machines.delete", fmt.Sprintf("/api/machines/%d", id), nil, nil, nil)
}
