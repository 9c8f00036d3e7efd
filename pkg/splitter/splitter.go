// Package splitter 串联 CUE 读取、切割计划构建与 FFmpeg 执行。
package splitter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yleoer/splitalbums/pkg/scanner"
	"github.com/yleoer/splitalbums/pkg/split"
)

// Executor 执行切割计划
type Executor interface {
	ProcessAll(ctx context.Context, plans []split.Plan) error
}

// Splitter 将一个 CUE 对应的整轨文件分割为单曲
type Splitter struct {
	scanner   *scanner.AlbumScanner
	executor  Executor
	extension string
	noCover   bool
	logger    zerolog.Logger
}

func New(s *scanner.AlbumScanner, executor Executor, extension string, noCover bool, logger zerolog.Logger) *Splitter {
	return &Splitter{scanner: s, executor: executor, extension: extension, noCover: noCover, logger: logger}
}

// Plan 只构建切割计划，不执行任何外部命令
func (s *Splitter) Plan(cuePath, outDir string) ([]split.Plan, error) {
	album, err := s.scanner.LoadAlbum(cuePath, s.noCover)
	if err != nil {
		return nil, err
	}
	plans, err := split.Build(album.Sheet, split.Options{
		SourceDir: album.Dir,
		OutputDir: outDir,
		Extension: s.extension,
		Cover:     album.Cover,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cuePath, err)
	}
	return plans, nil
}

// Split 构建计划并依次执行，返回分割出的轨道数
func (s *Splitter) Split(ctx context.Context, cuePath, outDir string) (int, error) {
	plans, err := s.Plan(cuePath, outDir)
	if err != nil {
		return 0, err
	}
	s.logger.Info().
		Str("cue", cuePath).
		Str("album", plans[0].Album).
		Int("tracks", len(plans)).
		Bool("cover", plans[0].Cover != "").
		Msg("Splitting album")
	if err := s.executor.ProcessAll(ctx, plans); err != nil {
		return 0, err
	}
	return len(plans), nil
}
