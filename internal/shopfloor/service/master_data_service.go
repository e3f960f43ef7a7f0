package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// MasterDataService 客户/产品/设备
type MasterDataService struct {
	client *backend.Client
}

func NewMasterDataService(client *backend.Client) *MasterDataService {
	return &MasterDataService{client: client}
}

// ==================== Customer ====================

func (s *MasterDataService) ListCustomers(ctx context.Context) ([]entity.Customer, error) {
	return s.client.ListCustomers(ctx)
}

func (s *MasterDataService) GetCustomer(ctx context.Context, id int64) (*entity.Customer, error) {
	return s.client.GetCustomer(ctx, id)
}

func (s *MasterDataService) CreateCustomer(ctx context.Context, in entity.Customer) (*entity.Customer, error) {
	if err := validateCustomer(&in); err != nil {
		return nil, err
	}
	return s.client.CreateCustomer(ctx, in)
}

func (s *MasterDataService) UpdateCustomer(ctx context.Context, id int64, in entity.Customer) (*entity.Customer, error) {
	if err := validateCustomer(&in); err != nil {
		return nil, err
	}
	in.ID = id
	return s.client.UpdateCustomer(ctx, id, in)
}

func (s *MasterDataService) DeleteCustomer(ctx context.Context, id int64) error {
	return s.client.DeleteCustomer(ctx, id)
}

func validateCustomer(c *entity.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" {
		return invalid("customer name is required")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return invalid("invalid email %q", c.Email)
		}
	}
	return nil
}

// ==================== Product ====================

func (s *MasterDataService) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return s.client.ListProducts(ctx)
}

func (s *MasterDataService) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	return s.client.GetProduct(ctx, id)
}

func (s *MasterDataService) CreateProduct(ctx context.Context, in entity.Product) (*entity.Product, error) {
	if err := validateProduct(&in); err != nil {
		return nil, err
	}
	return s.client.CreateProduct(ctx, in)
}

func (s *MasterDataService) UpdateProduct(ctx context.Context, id int64, in entity.Product) (*entity.Product, error) {
	if err := validateProduct(&in); err != nil {
		return nil, err
	}
	in.ID = id
	return s.client.UpdateProduct(ctx, id, in)
}

func (s *MasterDataService) DeleteProduct(ctx context.Context, id int64) error {
	return s.client.DeleteProduct(ctx, id)
}

func validateProduct(p *entity.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalid("product name is required")
	}
	return nil
}

// ==================== Machine ====================

func (s *MasterDataService) ListMachines(ctx context.Context) ([]entity.Machine, error) {
	return s.client.ListMachines(ctx)
}

func (s *MasterDataService) GetMachine(ctx context.Context, id int64) (*entity.Machine, error) {
	return s.client.GetMachine(ctx, id)
}

func (s *MasterDataService) CreateMachine(ctx context.Context, in entity.Machine) (*entity.Machine, error) {
	if err := validateMachine(&in); err != nil {
		return nil, err
	}
	return s.client.CreateMachine(ctx, in)
}

func (s *MasterDataService) UpdateMachine(ctx context.Context, id int64, in entity.Machine) (*entity.Machine, error) {
	if err := validateMachine(&in); err != nil {
		return nil, err
	}
	in.ID = id
	return s.client.UpdateMachine(ctx, id, in)
}

func (s *MasterDataService) DeleteMachine(ctx context.Context, id int64) error {
	return s.client.DeleteMachine(ctx, id)
}

func validateMachine(m *entity.Machine) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("machine name is required")
	}
	switch m.Status {
	case "":
		m.Status = entity.MachineStatusActive
	case entity.MachineStatusActive, entity.MachineStatusMaintenance, entity.MachineStatusInactive:
	default:
		return invalid("unknown machine status %q", m.Status)
	}
	return nil
}
