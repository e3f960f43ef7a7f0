package overlay

import (
	"sort"

	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
)

// Row 带 PDF 锚点的表格行
type Row struct {
	ID         int     `json:"row_id"`
	PageNumber int     `json:"page_number"`
	YPosition  float64 `json:"y_position"`
	PageHeight float64 `json:"page_height"`
}

// RowsFromSubnests 套料行转换为叠加行，行号即行 ID
func RowsFromSubnests(subnests []entity.SubnestRow) []Row {
	rows := make([]Row, 0, len(subnests))
	for _, s := range subnests {
		rows = append(rows, Row{
			ID:         s.RowNo,
			PageNumber: s.PageNumber,
			YPosition:  s.YPosition,
			PageHeight: s.PageHeight,
		})
	}
	return rows
}

// PageSize 页面尺寸（pt）。OriginX/OriginY 为 MediaBox 左下角
type PageSize struct {
	Number  int     `json:"number"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OriginX float64 `json:"-"`
	OriginY float64 `json:"-"`
}

// RowState 调用方提供的行状态：是否勾选、是否禁用
type RowState func(rowID int) (checked, disabled bool)

// Options 布局参数
type Options struct {
	Scale            float64
	DevicePixelRatio float64
	// Interactive 为 false 时（只读模式）不生成勾选框
	Interactive bool
}

func (o Options) normalized() Options {
	o.Scale = ClampScale(o.Scale)
	o.DevicePixelRatio = ClampDevicePixelRatio(o.DevicePixelRatio)
	return o
}

// Checkbox 叠加在页面上的勾选框
type Checkbox struct {
	RowID    int     `json:"row_id"`
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Checked  bool    `json:"checked"`
	Disabled bool    `json:"disabled"`
}

// PageLayout 单页布局：CSS 尺寸用于叠加层坐标，Backing 尺寸用于画布像素
type PageLayout struct {
	Page          int        `json:"page"`
	Scale         float64    `json:"scale"`
	CSSWidth      float64    `json:"css_width"`
	CSSHeight     float64    `json:"css_height"`
	BackingWidth  int        `json:"backing_width"`
	BackingHeight int        `json:"backing_height"`
	Checkboxes    []Checkbox `json:"checkboxes"`
}

// GroupByPage 按页码分组，组内按行号排序
func GroupByPage(rows []Row) map[int][]Row {
	groups := make(map[int][]Row)
	for _, r := range rows {
		groups[r.PageNumber] = append(groups[r.PageNumber], r)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].ID < g[j].ID })
	}
	return groups
}

// Layout 计算所有页面的布局。
// 页码不在文档中的行不生成勾选框，也不报错。
func Layout(pages []PageSize, rows []Row, state RowState, opts Options) []PageLayout {
	opts = opts.normalized()
	groups := GroupByPage(rows)

	layouts := make([]PageLayout, 0, len(pages))
	for _, p := range pages {
		layouts = append(layouts, LayoutPage(p, groups[p.Number], state, opts))
	}
	return layouts
}

// LayoutPage 计算单页布局；rows 应已属于该页
func LayoutPage(page PageSize, rows []Row, state RowState, opts Options) PageLayout {
	opts = opts.normalized()
	cssWidth := page.Width * opts.Scale
	cssHeight := page.Height * opts.Scale

	pl := PageLayout{
		Page:          page.Number,
		Scale:         opts.Scale,
		CSSWidth:      cssWidth,
		CSSHeight:     cssHeight,
		BackingWidth:  backingSize(cssWidth, opts.DevicePixelRatio),
		BackingHeight: backingSize(cssHeight, opts.DevicePixelRatio),
		Checkboxes:    []Checkbox{},
	}
	if !opts.Interactive {
		return pl
	}

	for _, r := range rows {
		if r.PageNumber != page.Number {
			continue
		}
		pageHeight := r.PageHeight
		if pageHeight <= 0 {
			pageHeight = page.Height
		}
		left, top := CheckboxPosition(cssWidth, pageHeight, r.YPosition, opts.Scale)
		cb := Checkbox{RowID: r.ID, Left: left, Top: top}
		if state != nil {
			cb.Checked, cb.Disabled = state(r.ID)
		}
		pl.Checkboxes = append(pl.Checkboxes, cb)
	}
	return pl
}
