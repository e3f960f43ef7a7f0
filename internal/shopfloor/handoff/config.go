// Package handoff 实现各部门对套料行的勾选交接：上游部门的勾选只读展示，
// 本部门在其上追加自己的勾选，保存或发送给下一个部门。
package handoff

import (
	"fmt"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// Stage 订单勾选阶段：最后一个有勾选的部门
type Stage string

const (
	StageNone       Stage = "NONE_SELECTED"
	StageDesign     Stage = "DESIGN_SELECTED"
	StageProduction Stage = "PRODUCTION_SELECTED"
	StageMachine    Stage = "MACHINE_SELECTED"
	StageInspection Stage = "INSPECTION_SELECTED"
)

var stageByDepartment = map[entity.Department]Stage{
	entity.DeptDesign:     StageDesign,
	entity.DeptProduction: StageProduction,
	entity.DeptMachining:  StageMachine,
	entity.DeptInspection: StageInspection,
}

// StageOf 根据各部门勾选列推导阶段
func StageOf(sel entity.RowSelection) Stage {
	stage := StageNone
	for _, d := range entity.SelectionDepartments {
		if len(sel.Column(d)) > 0 {
			stage = stageByDepartment[d]
		}
	}
	return stage
}

// DepartmentConfig 一个部门的交接配置
type DepartmentConfig struct {
	Own      entity.Department
	Upstream []entity.Department
	Next     entity.Department
	// Endpoint 非空时通过部门专属接口推进（提交勾选并由后端转部门），
	// 为空时保存勾选后调用部门转移接口
	Endpoint backend.SelectionEndpoint
	// SeedFromUpstream 本部门列为空时用上一部门的勾选预填一次
	SeedFromUpstream bool
}

// Prior 紧邻的上一个部门
func (c DepartmentConfig) Prior() (entity.Department, bool) {
	if len(c.Upstream) == 0 {
		return "", false
	}
	return c.Upstream[len(c.Upstream)-1], true
}

// IsUpstream d 是否为上游部门
func (c DepartmentConfig) IsUpstream(d entity.Department) bool {
	for _, u := range c.Upstream {
		if u == d {
			return true
		}
	}
	return false
}

var registry = map[entity.Department]DepartmentConfig{
	entity.DeptDesign: {
		Own:  entity.DeptDesign,
		Next: entity.DeptProduction,
	},
	entity.DeptProduction: {
		Own:              entity.DeptProduction,
		Upstream:         []entity.Department{entity.DeptDesign},
		Next:             entity.DeptMachining,
		SeedFromUpstream: true,
	},
	entity.DeptMachining: {
		Own:              entity.DeptMachining,
		Upstream:         []entity.Department{entity.DeptDesign, entity.DeptProduction},
		Next:             entity.DeptInspection,
		Endpoint:         backend.MachiningSelection,
		SeedFromUpstream: true,
	},
	entity.DeptInspection: {
		Own:              entity.DeptInspection,
		Upstream:         []entity.Department{entity.DeptDesign, entity.DeptProduction, entity.DeptMachining},
		Next:             entity.DeptCompleted,
		Endpoint:         backend.InspectionSelection,
		SeedFromUpstream: true,
	},
}

// ConfigFor 取部门配置；ENQUIRY/COMPLETED 没有勾选列
func ConfigFor(d entity.Department) (DepartmentConfig, error) {
	cfg, ok := registry[d]
	if !ok {
		return DepartmentConfig{}, fmt.Errorf("%w: %q", ErrNoSelectionColumn, d)
	}
	return cfg, nil
}
