package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yleoer/splitalbums/pkg/config"
	"github.com/yleoer/splitalbums/pkg/database"
	"github.com/yleoer/splitalbums/pkg/scanner"
	"github.com/yleoer/splitalbums/pkg/util"
)

// AlbumSplitter 分割单个 CUE，返回分割出的轨道数
type AlbumSplitter interface {
	Split(ctx context.Context, cuePath, outDir string) (int, error)
}

// TaskScheduler 负责调度专辑目录的扫描与分割任务
type TaskScheduler struct {
	ctx               context.Context
	cfg               *config.Config
	store             database.SheetStore
	splitter          AlbumSplitter
	logger            zerolog.Logger
	scanMutex         sync.Mutex // 同一时间只处理一个目录
	pendingScans      map[string]*time.Timer
	pendingScansMutex sync.Mutex // 保护 pendingScans map 与 stopped
	stopped           bool
	inflight          sync.WaitGroup // 已排期或正在执行的扫描
}

// NewTaskScheduler 创建一个新的 TaskScheduler 实例，ctx 取消后不再启动新的分割
func NewTaskScheduler(
	ctx context.Context,
	cfg *config.Config,
	store database.SheetStore,
	splitter AlbumSplitter,
	logger zerolog.Logger,
) *TaskScheduler {
	return &TaskScheduler{
		ctx:          ctx,
		cfg:          cfg,
		store:        store,
		splitter:     splitter,
		logger:       logger,
		pendingScans: make(map[string]*time.Timer),
	}
}

// InitialScan 对下载目录的一级子目录进行初始扫描
func (ts *TaskScheduler) InitialScan(downloadRoot string) {
	ts.logger.Info().Str("dir", downloadRoot).Msg("Performing initial scan")
	entries, err := os.ReadDir(downloadRoot)
	if err != nil {
		ts.logger.Error().Err(err).Str("dir", downloadRoot).Msg("Failed to read download directory")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			ts.TriggerScan(filepath.Join(downloadRoot, entry.Name()))
		}
	}
	ts.logger.Info().Msg("Initial scan completed")
}

// TriggerScan 将目录加入延迟扫描队列，重复触发会重置计时器
func (ts *TaskScheduler) TriggerScan(dirPath string) {
	ts.pendingScansMutex.Lock()
	defer ts.pendingScansMutex.Unlock()
	if ts.stopped {
		return
	}
	if timer, ok := ts.pendingScans[dirPath]; ok && timer.Stop() {
		ts.inflight.Done()
	}

	ts.inflight.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(ts.cfg.StabilityCheckInterval, func() {
		defer ts.inflight.Done()
		ts.pendingScansMutex.Lock()
		if ts.pendingScans[dirPath] == timer {
			delete(ts.pendingScans, dirPath)
		}
		ts.pendingScansMutex.Unlock()

		if err := ts.ProcessDirectory(dirPath); err != nil {
			ts.logger.Error().Err(err).Str("dir", dirPath).Msg("Failed to process album directory")
		}
	})
	ts.pendingScans[dirPath] = timer
	ts.logger.Debug().Str("dir", dirPath).Dur("delay", ts.cfg.StabilityCheckInterval).Msg("Scheduled scan")
}

// Stop 取消所有尚未开始的扫描，并等待正在进行的扫描结束
func (ts *TaskScheduler) Stop() {
	ts.pendingScansMutex.Lock()
	ts.stopped = true
	for dir, timer := range ts.pendingScans {
		if timer.Stop() {
			ts.inflight.Done()
		}
		delete(ts.pendingScans, dir)
	}
	ts.pendingScansMutex.Unlock()

	ts.inflight.Wait()
}

// ProcessDirectory 等待目录内文件稳定后，分割其中所有尚未分割的 CUE
func (ts *TaskScheduler) ProcessDirectory(dir string) error {
	ts.scanMutex.Lock()
	defer ts.scanMutex.Unlock()

	if err := ts.ctx.Err(); err != nil {
		return err
	}
	if !ts.waitForFilesStability(dir) {
		if ts.ctx.Err() == nil {
			ts.logger.Info().Str("dir", dir).Msg("Files are still changing, rescheduling scan")
			ts.TriggerScan(dir)
		}
		return nil
	}

	cues, err := scanner.FindCueSheets(dir)
	if err != nil {
		return fmt.Errorf("failed to list cue sheets in %s: %w", dir, err)
	}
	if len(cues) == 0 {
		ts.logger.Debug().Str("dir", dir).Msg("No cue sheets found")
		return nil
	}

	var errs []error
	for _, cuePath := range cues {
		done, err := ts.store.IsSheetSplit(cuePath)
		if err != nil {
			ts.logger.Error().Err(err).Str("cue", cuePath).Msg("Failed to check split status")
		}
		if done {
			ts.logger.Info().Str("cue", cuePath).Msg("Cue sheet already split, skipping")
			continue
		}

		outDir := filepath.Join(ts.cfg.MusicLibDir, util.SanitizeFileName(filepath.Base(dir)))
		if len(cues) > 1 {
			outDir = filepath.Join(outDir, util.SanitizeFileName(strings.TrimSuffix(filepath.Base(cuePath), filepath.Ext(cuePath))))
		}
		tracks, err := ts.splitter.Split(ts.ctx, cuePath, outDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cuePath, err))
			continue
		}
		if err := ts.store.AddSplitSheet(cuePath, tracks); err != nil {
			errs = append(errs, err)
			continue
		}
		ts.logger.Info().Str("cue", cuePath).Int("tracks", tracks).Str("out", outDir).Msg("Album split")
	}
	return errors.Join(errs...)
}

// fileInfo 用于比较文件是否发生变化
type fileInfo struct {
	Size    int64
	ModTime time.Time
}

// waitForFilesStability 所有相关文件在 StabilityQuietDuration 内没有变化才算稳定
func (ts *TaskScheduler) waitForFilesStability(dir string) bool {
	ts.logger.Debug().Str("dir", dir).Dur("quiet", ts.cfg.StabilityQuietDuration).Msg("Waiting for files to stabilize")
	previous := make(map[string]fileInfo)
	lastChange := time.Now()
	deadline := time.Now().Add(ts.cfg.StabilityMaxWait)

	for time.Now().Before(deadline) {
		current, err := relevantFiles(dir)
		if err != nil {
			ts.logger.Error().Err(err).Str("dir", dir).Msg("Failed to read directory for stability check")
			return false
		}
		if len(current) == 0 {
			return true
		}
		if !sameFiles(previous, current) {
			lastChange = time.Now()
			previous = current
		} else if time.Since(lastChange) >= ts.cfg.StabilityQuietDuration {
			return true
		}

		select {
		case <-ts.ctx.Done():
			return false
		case <-time.After(ts.cfg.StabilityCheckInterval):
		}
	}
	ts.logger.Warn().Str("dir", dir).Dur("max_wait", ts.cfg.StabilityMaxWait).Msg("Max wait time for stability exceeded")
	return false
}

func relevantFiles(dir string) (map[string]fileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]fileInfo)
	for _, entry := range entries {
		if entry.IsDir() || !util.IsRelevantMusicFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		files[entry.Name()] = fileInfo{Size: info.Size(), ModTime: info.ModTime()}
	}
	return files, nil
}

func sameFiles(a, b map[string]fileInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for name, info := range a {
		other, ok := b[name]
		if !ok || other.Size != info.Size || !other.ModTime.Equal(info.ModTime) {
			return false
		}
	}
	return true
}
