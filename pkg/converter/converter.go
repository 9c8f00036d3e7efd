package converter

// TextConverter 定义文本转换器接口
type TextConverter interface {
	TradToSim(text string) string // 将繁体中文转换为简体
}

// Nop 原样返回文本，未开启繁简转换时使用
type Nop struct{}

func (Nop) TradToSim(text string) string { return text }
