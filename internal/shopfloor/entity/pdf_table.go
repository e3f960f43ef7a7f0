package entity

// SubnestRow 套料排版行（由后端从 PDF 解析）
type SubnestRow struct {
	RowNo             int     `json:"rowNo"`
	SizeX             float64 `json:"sizeX"`
	SizeY             float64 `json:"sizeY"`
	Material          string  `json:"material"`
	Thickness         float64 `json:"thickness"`
	TimePerInstance   string  `json:"timePerInstance"`
	TotalTime         string  `json:"totalTime"`
	NCFile            string  `json:"ncFile"`
	Qty               int     `json:"qty"`
	AreaM2            float64 `json:"areaM2"`
	EfficiencyPercent float64 `json:"efficiencyPercent"`

	// PDF 坐标系（左下角原点，单位 pt），用于叠加勾选框定位
	YPosition  float64 `json:"yPosition"`
	PageNumber int     `json:"pageNumber"`
	PageHeight float64 `json:"pageHeight"`
}

// PartRow 零件明细行
type PartRow struct {
	PartName        string  `json:"partName"`
	Material        string  `json:"material"`
	Thickness       float64 `json:"thickness"`
	RequiredQty     int     `json:"requiredQty"`
	PlacedQty       int     `json:"placedQty"`
	WeightKg        float64 `json:"weightKg"`
	TimePerInstance string  `json:"timePerInstance"`
	Pierce          int     `json:"pierceQty"`
	CuttingLength   float64 `json:"cuttingLength"`
}

// MaterialRow 板材需求汇总行
type MaterialRow struct {
	Material  string  `json:"material"`
	Thickness float64 `json:"thickness"`
	SizeX     float64 `json:"sizeX"`
	SizeY     float64 `json:"sizeY"`
	SheetQty  int     `json:"sheetQty"`
	Notes     string  `json:"notes,omitempty"`
}

// PDFTables 同一附件解析出的三张表
type PDFTables struct {
	Subnests  []SubnestRow  `json:"subnests"`
	Parts     []PartRow     `json:"parts"`
	Materials []MaterialRow `json:"materials"`
}
