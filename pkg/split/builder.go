package split

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/yleoer/splitalbums/pkg/cuesheet"
	"github.com/yleoer/splitalbums/pkg/util"
)

// DefaultExtension 默认输出 FLAC
const DefaultExtension = "flac"

// Options 构建计划所需的配置
type Options struct {
	SourceDir string // CUE 所在目录，相对的 FILE 路径以此为基准
	OutputDir string
	Extension string
	Cover     string // 为空时不嵌入封面
}

// Tag 一个元数据键值对
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Plan 单个轨道完整的切割描述
type Plan struct {
	Number    int     `json:"number"`
	Source    string  `json:"source"`
	Start     float64 `json:"start"`
	End       End     `json:"end"`
	Output    string  `json:"output"`
	Title     string  `json:"title"`
	Performer string  `json:"performer"`
	Album     string  `json:"album"`
	Genre     string  `json:"genre,omitempty"`
	Date      string  `json:"date,omitempty"`
	Cover     string  `json:"cover,omitempty"`
}

// Metadata 返回写入输出文件的标签，顺序固定
func (p Plan) Metadata() []Tag {
	tags := []Tag{
		{Key: "title", Value: p.Title},
		{Key: "artist", Value: p.Performer},
		{Key: "album", Value: p.Album},
		{Key: "track", Value: strconv.Itoa(p.Number)},
	}
	if p.Genre != "" {
		tags = append(tags, Tag{Key: "genre", Value: p.Genre})
	}
	if p.Date != "" {
		tags = append(tags, Tag{Key: "date", Value: p.Date})
	}
	return tags
}

// FileName 输出文件名 "NN 标题.ext"
func FileName(number int, title, ext string) string {
	return fmt.Sprintf("%02d %s.%s", number, util.SanitizeFileName(title), ext)
}

// Build 为 CUE 中的每个轨道生成切割计划
func Build(sheet *cuesheet.Sheet, opts Options) ([]Plan, error) {
	boundaries, err := Resolve(sheet)
	if err != nil {
		return nil, err
	}
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}

	plans := make([]Plan, 0, len(boundaries))
	for i, b := range boundaries {
		track := sheet.Tracks[i]
		source := b.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(opts.SourceDir, source)
		}
		plans = append(plans, Plan{
			Number:    b.Number,
			Source:    source,
			Start:     b.Start,
			End:       b.End,
			Output:    filepath.Join(opts.OutputDir, FileName(b.Number, track.Title, ext)),
			Title:     track.Title,
			Performer: b.Performer,
			Album:     sheet.Title,
			Genre:     sheet.Genre,
			Date:      sheet.Date,
			Cover:     opts.Cover,
		})
	}
	return plans, nil
}
