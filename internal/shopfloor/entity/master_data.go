package entity

import "time"

// Customer 客户
type Customer struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ContactName string    `json:"contactName,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	GSTNumber   string    `json:"gstNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Product 产品
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description,omitempty"`
	Material    string    `json:"material,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// MachineStatus 设备状态
const (
	MachineStatusActive      = "ACTIVE"
	MachineStatusMaintenance = "MAINTENANCE"
	MachineStatusInactive    = "INACTIVE"
)

// Machine 加工设备
type Machine struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	Status    string    `json:"status,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
