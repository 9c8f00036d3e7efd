package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// CharsetAuto 自动检测编码：UTF-8 BOM、合法 UTF-8，否则回退到 GB18030
const CharsetAuto = "auto"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrUnknownCharset 无法识别的字符集名称
var ErrUnknownCharset = errors.New("unknown charset")

// LookupCharset 根据名称 (gb2312, gbk, big5, shift_jis, utf-8 ...) 返回编码。
// CharsetAuto 和空字符串返回 nil，表示自动检测。
func LookupCharset(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, CharsetAuto) {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharset, name)
	}
	return enc, nil
}

// DecodeText 将文本解码为 UTF-8；enc 为 nil 时自动检测
func DecodeText(data []byte, enc encoding.Encoding) (string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	}
	if enc == nil {
		if utf8.Valid(data) {
			return string(data), nil
		}
		enc = simplifiedchinese.GB18030
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// ReadTextFileContent 读取文本文件内容并解码，返回的内容保证是 UTF-8
func ReadTextFileContent(path string, enc encoding.Encoding) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content, err := DecodeText(data, enc)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return content, nil
}

// SanitizeFileName 清理文件名，移除或替换不适用于文件路径的字符
func SanitizeFileName(name string) string {
	// 替换所有斜杠为下划线
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")

	invalidChars := []string{":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range invalidChars {
		name = strings.ReplaceAll(name, char, "")
	}
	// 合并连续空格
	return strings.Join(strings.Fields(name), " ")
}

// IsDirectory 检查路径是否为目录
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FileExists 检查路径是否为普通文件
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// IsRelevantMusicFile 判断文件是否与整轨分割相关（音频、CUE、封面）
func IsRelevantMusicFile(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".wav", ".flac", ".ape", ".wv", ".tak", ".tta", ".m4a", ".mp3", ".ogg":
		return true
	case ".cue", ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
