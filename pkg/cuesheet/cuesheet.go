// Package cuesheet 描述解析后的 CUE 文件记录以及 CUE 时间模型。
package cuesheet

// Index 轨道内的一个时间标记，INDEX 00 为前导间隙，INDEX 01 为可听起点
type Index struct {
	Number  int
	Minutes int
	Seconds int
	Frames  int
}

// Track 代表 CUE 中的一个音轨
type Track struct {
	Number    int
	Title     string
	Performer string // 为空时回退到专辑艺术家
	Indices   []Index
	File      string // 只有某个物理文件的第一个轨道才非空
}

// Sheet 代表一个完整的 CUE 文件
type Sheet struct {
	Title     string
	Performer string
	Genre     string
	Date      string
	Tracks    []Track
}
