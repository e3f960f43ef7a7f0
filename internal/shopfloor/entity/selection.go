package entity

import "sort"

// RowSelection 各部门对同一订单+附件勾选的套料行号
// 线上格式同时携带按部门拆分的列和扁平的 selectedRowIds 并集
type RowSelection struct {
	OrderID       int64  `json:"orderId,omitempty"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`

	Design     []int `json:"designerSelectedRowIds"`
	Production []int `json:"productionSelectedRowIds"`
	Machine    []int `json:"machineSelectedRowIds"`
	Inspection []int `json:"inspectionSelectedRowIds"`

	SelectedRowIDs []int `json:"selectedRowIds"`
}

// SelectionDepartments 拥有勾选列的部门，按流转顺序
var SelectionDepartments = []Department{DeptDesign, DeptProduction, DeptMachining, DeptInspection}

// Column 返回某部门的勾选列（拷贝）
func (s RowSelection) Column(dept Department) []int {
	switch dept {
	case DeptDesign:
		return SortedRows(s.Design)
	case DeptProduction:
		return SortedRows(s.Production)
	case DeptMachining:
		return SortedRows(s.Machine)
	case DeptInspection:
		return SortedRows(s.Inspection)
	}
	return []int{}
}

// WithColumn 返回替换了某部门勾选列的新值
func (s RowSelection) WithColumn(dept Department, rows []int) RowSelection {
	rows = SortedRows(rows)
	switch dept {
	case DeptDesign:
		s.Design = rows
	case DeptProduction:
		s.Production = rows
	case DeptMachining:
		s.Machine = rows
	case DeptInspection:
		s.Inspection = rows
	}
	return s
}

// Union 所有部门列的并集（升序去重）。
// 仅有扁平 selectedRowIds 的旧数据也计入并集。
func (s RowSelection) Union() []int {
	all := make([]int, 0, len(s.Design)+len(s.Production)+len(s.Machine)+len(s.Inspection)+len(s.SelectedRowIDs))
	all = append(all, s.Design...)
	all = append(all, s.Production...)
	all = append(all, s.Machine...)
	all = append(all, s.Inspection...)
	all = append(all, s.SelectedRowIDs...)
	return SortedRows(all)
}

// SortedRows 升序去重，nil 返回空切片
func SortedRows(rows []int) []int {
	out := make([]int, 0, len(rows))
	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}
