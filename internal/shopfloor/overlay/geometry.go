// Package overlay 把后端给出的 PDF 坐标（左下角原点，pt）映射为页面上的勾选框位置，
// 并负责 PDF 页面的栅格化。勾选状态由调用方持有，本包不保存任何选择状态。
package overlay

import "math"

const (
	MinScale     = 0.5
	MaxScale     = 3.0
	ScaleStep    = 0.1
	DefaultScale = 1.0

	// 设备像素比范围；超出范围的画布会大到无法分配
	MinDevicePixelRatio = 1.0
	MaxDevicePixelRatio = 4.0

	// CheckboxRightInset 勾选框距页面右边缘的距离（CSS px）
	CheckboxRightInset = 22.0
	// CheckboxCenterOffset 让勾选框中心对齐锚点而不是落在锚点下方
	CheckboxCenterOffset = 7.0
	// CheckboxSize 勾选框边长（CSS px）
	CheckboxSize = 14.0
)

// ClampScale 把缩放限制在 [MinScale, MaxScale]；非法值回到默认值
func ClampScale(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return DefaultScale
	}
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

// ClampDevicePixelRatio 把设备像素比限制在 [MinDevicePixelRatio, MaxDevicePixelRatio]；
// NaN、Inf 与非正数按 1 处理
func ClampDevicePixelRatio(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return MinDevicePixelRatio
	}
	return math.Min(math.Max(r, MinDevicePixelRatio), MaxDevicePixelRatio)
}

// StepScale 以 0.1 为步长调整缩放，结果保留一位小数并限制范围
func StepScale(s float64, steps int) float64 {
	next := ClampScale(s) + float64(steps)*ScaleStep
	next = math.Round(next*10) / 10
	return ClampScale(next)
}

// ScreenTop PDF 坐标到页面顶部的屏幕偏移：(pageHeight − yPosition) × scale
func ScreenTop(pageHeight, yPosition, scale float64) float64 {
	return (pageHeight - yPosition) * scale
}

// CheckboxPosition 勾选框左上角位置（CSS px，相对页面左上角）
func CheckboxPosition(renderedPageWidth, pageHeight, yPosition, scale float64) (left, top float64) {
	left = renderedPageWidth - CheckboxRightInset
	top = ScreenTop(pageHeight, yPosition, scale) - CheckboxCenterOffset
	return left, top
}

// backingSize 按设备像素比计算画布实际像素尺寸
func backingSize(css, devicePixelRatio float64) int {
	return int(math.Ceil(css * devicePixelRatio))
}
