package cuesheet

import "fmt"

// FramesPerSecond CD 音频每秒 75 帧
const FramesPerSecond = 75

// Precision 时间格式化精度
type Precision int

const (
	// PrecisionFrame 保留帧精度，输出 S.ffffff
	PrecisionFrame Precision = iota
	// PrecisionSecond 截断到整秒，输出 MM:SS
	PrecisionSecond
)

// Seconds 返回帧精度的绝对秒数
func (i Index) Seconds() float64 {
	return float64(i.Minutes*60+i.Seconds) + float64(i.Frames)/FramesPerSecond
}

// WholeSeconds 返回截断帧之后的整秒数
func (i Index) WholeSeconds() int {
	return i.Minutes*60 + i.Seconds
}

// String 以 cue 原生格式 MM:SS:FF 输出
func (i Index) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", i.Minutes, i.Seconds, i.Frames)
}

// FormatSeconds 将秒数格式化为 FFmpeg 可接受的时间偏移
func FormatSeconds(sec float64, p Precision) string {
	if p == PrecisionSecond {
		whole := int(sec)
		return fmt.Sprintf("%02d:%02d", whole/60, whole%60)
	}
	return fmt.Sprintf("%.6f", sec)
}
