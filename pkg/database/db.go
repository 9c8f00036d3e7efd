package database

// SheetStore 记录哪些 CUE 已经分割完成，watch 模式据此避免重复处理
type SheetStore interface {
	AddSplitSheet(cuePath string, tracks int) error // 将 CUE 标记为已分割
	IsSheetSplit(cuePath string) (bool, error)      // 检查 CUE 是否已分割
	Close() error                                   // 关闭数据库连接
}
