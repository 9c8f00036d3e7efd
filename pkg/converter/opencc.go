package converter

import (
	"fmt"

	"github.com/liuzl/gocc"
	"github.com/rs/zerolog"
)

// openCCConverter 是 TextConverter 的 OpenCC 实现
type openCCConverter struct {
	converter *gocc.OpenCC
	logger    zerolog.Logger
}

// NewOpenCCConverter 初始化 t2s (繁体到简体) 转换器
func NewOpenCCConverter(logger zerolog.Logger) (TextConverter, error) {
	converter, err := gocc.New("t2s")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenCC converter: %w", err)
	}
	logger.Debug().Msg("OpenCC converter (t2s) initialized")
	return &openCCConverter{converter: converter, logger: logger}, nil
}

// TradToSim 转换失败时返回原文
func (c *openCCConverter) TradToSim(text string) string {
	if text == "" {
		return text
	}
	out, err := c.converter.Convert(text)
	if err != nil {
		c.logger.Warn().Err(err).Str("text", text).Msg("Failed to convert text from Traditional to Simplified")
		return text
	}
	return out
}
