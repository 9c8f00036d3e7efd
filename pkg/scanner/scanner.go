package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"

	"github.com/yleoer/splitalbums/pkg/converter"
	"github.com/yleoer/splitalbums/pkg/cuesheet"
	"github.com/yleoer/splitalbums/pkg/util"
)

// ErrSourceNotFound CUE 中声明的音频文件不存在，且找不到同名的其他格式
var ErrSourceNotFound = errors.New("audio file referenced by cue sheet not found")

// 声明的文件不存在时依次尝试的扩展名
var fallbackExtensions = []string{".flac", ".ape", ".wv", ".tak", ".tta", ".wav"}

// Album 一个待分割的 CUE 及其相关文件
type Album struct {
	CuePath string
	Dir     string
	Sheet   *cuesheet.Sheet
	Cover   string // 为空表示没有封面或已禁用
}

// AlbumScanner 负责从磁盘读取 CUE 并构建 Album
type AlbumScanner struct {
	charset   encoding.Encoding // nil 表示自动检测
	converter converter.TextConverter
	coverName string
	logger    zerolog.Logger
}

// NewAlbumScanner 创建一个新的 AlbumScanner 实例
func NewAlbumScanner(charset encoding.Encoding, tc converter.TextConverter, coverName string, logger zerolog.Logger) *AlbumScanner {
	if tc == nil {
		tc = converter.Nop{}
	}
	return &AlbumScanner{charset: charset, converter: tc, coverName: coverName, logger: logger}
}

// LoadAlbum 读取并解析 CUE，定位音频文件与封面
func (s *AlbumScanner) LoadAlbum(cuePath string, noCover bool) (*Album, error) {
	content, err := util.ReadTextFileContent(cuePath, s.charset)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue sheet: %w", err)
	}
	sheet, err := cuesheet.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse cue sheet %s: %w", cuePath, err)
	}

	album := &Album{CuePath: cuePath, Dir: filepath.Dir(cuePath), Sheet: sheet}
	s.convertText(sheet)
	if err := s.resolveSources(album); err != nil {
		return nil, err
	}

	if !noCover && s.coverName != "" {
		coverPath := filepath.Join(album.Dir, s.coverName)
		if util.FileExists(coverPath) {
			album.Cover = coverPath
		} else {
			s.logger.Debug().Str("cover", coverPath).Msg("Cover image not found, tracks will have no cover")
		}
	}
	return album, nil
}

func (s *AlbumScanner) convertText(sheet *cuesheet.Sheet) {
	sheet.Title = s.converter.TradToSim(sheet.Title)
	sheet.Performer = s.converter.TradToSim(sheet.Performer)
	for i := range sheet.Tracks {
		sheet.Tracks[i].Title = s.converter.TradToSim(sheet.Tracks[i].Title)
		sheet.Tracks[i].Performer = s.converter.TradToSim(sheet.Tracks[i].Performer)
	}
}

// resolveSources 检查 FILE 声明的文件是否存在，不存在时尝试同名的其他无损格式
func (s *AlbumScanner) resolveSources(album *Album) error {
	for i, track := range album.Sheet.Tracks {
		if track.File == "" {
			continue
		}
		// 在 Windows 上生成的 CUE 可能使用反斜杠
		declared := filepath.FromSlash(strings.ReplaceAll(track.File, `\`, "/"))
		path := declared
		if !filepath.IsAbs(path) {
			path = filepath.Join(album.Dir, path)
		}
		if util.FileExists(path) {
			album.Sheet.Tracks[i].File = declared
			continue
		}

		base := strings.TrimSuffix(declared, filepath.Ext(declared))
		found := ""
		for _, ext := range fallbackExtensions {
			candidate := base + ext
			full := candidate
			if !filepath.IsAbs(full) {
				full = filepath.Join(album.Dir, full)
			}
			if util.FileExists(full) {
				found = candidate
				break
			}
		}
		if found == "" {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		s.logger.Info().Str("declared", track.File).Str("using", found).Msg("Audio file not found, using alternative")
		album.Sheet.Tracks[i].File = found
	}
	return nil
}

// FindCueSheets 返回目录下（不含子目录）所有 CUE 文件，按文件名排序
func FindCueSheets(rootPath string) ([]string, error) {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, err
	}
	var cues []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".cue") {
			cues = append(cues, filepath.Join(rootPath, entry.Name()))
		}
	}
	sort.Strings(cues)
	return cues, nil
}
