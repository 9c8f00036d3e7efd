package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/yleoer/splitalbums/pkg/config"
	"github.com/yleoer/splitalbums/pkg/converter"
	"github.com/yleoer/splitalbums/pkg/database"
	"github.com/yleoer/splitalbums/pkg/log"
	"github.com/yleoer/splitalbums/pkg/processor"
	"github.com/yleoer/splitalbums/pkg/scanner"
	"github.com/yleoer/splitalbums/pkg/scheduler"
	"github.com/yleoer/splitalbums/pkg/splitter"
	"github.com/yleoer/splitalbums/pkg/util"
)

var version = "dev"

const (
	flagFile         = "file"
	flagOutDir       = "out-dir"
	flagDir          = "dir"
	flagSampleRate   = "ar"
	flagSampleFormat = "sample_fmt"
	flagNoCover      = "no-cover"
	flagExt          = "ext"
	flagEncoding     = "encoding"
	flagT2S          = "t2s"
	flagConfig       = "config"
	flagVerbose      = "verbose"
)

// exitInterrupted 与 shell 对 SIGINT 的约定一致
const exitInterrupted = 130

func main() {
	logger := log.New(os.Stdout, os.Stderr, false)

	err := newApp(processor.ExecRunner{}).Run(os.Args)
	switch code := exitCode(err); code {
	case 0:
	case exitInterrupted:
		logger.Warn().Msg("Interrupted, album was only partly split")
		os.Exit(code)
	default:
		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(code)
	}
}

// exitCode 被取消的分割视为中断而不是成功
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return 1
	}
}

func newApp(runner processor.Runner) *cli.App {
	splitAction := func(cCtx *cli.Context) error { return runSplit(cCtx, runner) }

	//nolint:exhaustruct
	return &cli.App{
		Name:    "splitalbums",
		Version: version,
		Usage:   "According to cue file and album file, split into multiple songs",
		Suggest: true,
		Flags:   append(cueFlags(false), outputFlags()...),
		Action:  splitAction,
		Commands: []*cli.Command{
			{
				Name:   "split",
				Usage:  "Split the album file described by a cue sheet",
				Flags:  append(cueFlags(true), outputFlags()...),
				Action: splitAction,
			},
			{
				Name:   "plan",
				Usage:  "Print the split plan as JSON without running ffmpeg",
				Flags:  append(cueFlags(true), outputFlags()...),
				Action: func(cCtx *cli.Context) error { return runPlan(cCtx, runner) },
			},
			{
				Name:  "watch",
				Usage: "Watch a download directory and split every new album",
				Flags: append(outputFlags(),
					&cli.StringFlag{Name: flagDir, Aliases: []string{"d"}, Usage: "The download directory to watch"},
					&cli.StringFlag{Name: flagOutDir, Aliases: []string{"o"}, Usage: "The music library directory"},
				),
				Action: func(cCtx *cli.Context) error { return runWatch(cCtx, runner) },
			},
		},
	}
}

// cueFlags 根命令上的 -f/-o 不标记为必填，由 cuePaths 检查
func cueFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{Name: flagFile, Aliases: []string{"f"}, Usage: "The .cue file", Required: required},
		&cli.PathFlag{Name: flagOutDir, Aliases: []string{"o"}, Usage: "The output directory", Required: required},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: flagSampleRate, Usage: "The sample rate"},
		&cli.StringFlag{Name: flagSampleFormat, Usage: "The sample format"},
		&cli.BoolFlag{Name: flagNoCover, Usage: "Do not embed the cover image"},
		&cli.StringFlag{Name: flagExt, Usage: "Output file extension (default from config: flac)"},
		&cli.StringFlag{Name: flagEncoding, Usage: "Cue sheet charset, e.g. gb2312, big5, shift_jis (default auto)"},
		&cli.BoolFlag{Name: flagT2S, Usage: "Convert Traditional Chinese titles to Simplified"},
		&cli.PathFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "YAML config file path"},
		&cli.BoolFlag{Name: flagVerbose, Aliases: []string{"v"}, Usage: "Print every ffmpeg command"},
	}
}

func cuePaths(cCtx *cli.Context) (string, string, error) {
	if cCtx.Path(flagFile) == "" || cCtx.Path(flagOutDir) == "" {
		return "", "", errors.New(`required flags "file" and "out-dir" not set`)
	}
	cuePath, err := filepath.Abs(cCtx.Path(flagFile))
	if err != nil {
		return "", "", err
	}
	return cuePath, cCtx.Path(flagOutDir), nil
}

// setup 加载配置、应用命令行覆盖并创建日志器
func setup(cCtx *cli.Context) (*config.Config, zerolog.Logger, error) {
	logger := log.New(os.Stdout, os.Stderr, false)
	cfg, err := config.LoadConfig(cCtx.Path(flagConfig), logger)
	if err != nil {
		return nil, logger, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cCtx.IsSet(flagExt) {
		cfg.OutputExt = cCtx.String(flagExt)
	}
	if cCtx.IsSet(flagEncoding) {
		cfg.CueEncoding = cCtx.String(flagEncoding)
	}
	if cCtx.IsSet(flagT2S) {
		cfg.TradToSim = cCtx.Bool(flagT2S)
	}

	if cfg.LogFormat == "json" {
		logger = log.NewPacked(os.Stdout, os.Stderr)
	}
	if cCtx.Bool(flagVerbose) {
		logger = logger.Level(zerolog.DebugLevel)
	}
	return cfg, logger, nil
}

func newSplitter(cCtx *cli.Context, runner processor.Runner, cfg *config.Config, logger zerolog.Logger) (*splitter.Splitter, error) {
	// 在解析任何 CUE 之前确定字符集
	charset, err := util.LookupCharset(cfg.CueEncoding)
	if err != nil {
		return nil, err
	}
	var textConverter converter.TextConverter = converter.Nop{}
	if cfg.TradToSim {
		if textConverter, err = converter.NewOpenCCConverter(logger); err != nil {
			return nil, err
		}
	}
	albumScanner := scanner.NewAlbumScanner(charset, textConverter, cfg.CoverName, logger)
	ffmpegProcessor := processor.NewFFmpegProcessor(runner, processor.Options{
		FFmpegPath:   cfg.FFmpegPath,
		FFprobePath:  cfg.FFprobePath,
		SampleRate:   cCtx.Int(flagSampleRate),
		SampleFormat: cCtx.String(flagSampleFormat),
	}, logger)
	return splitter.New(albumScanner, ffmpegProcessor, cfg.OutputExt, cCtx.Bool(flagNoCover), logger), nil
}

func runSplit(cCtx *cli.Context, runner processor.Runner) error {
	ctx, cancel := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cuePath, outDir, err := cuePaths(cCtx)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(cCtx)
	if err != nil {
		return err
	}
	s, err := newSplitter(cCtx, runner, cfg, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	tracks, err := s.Split(ctx, cuePath, outDir)
	if err != nil {
		return err
	}
	logger.Info().Int("tracks", tracks).Str("out", outDir).Msg("Album split completed")
	return nil
}

func runPlan(cCtx *cli.Context, runner processor.Runner) error {
	cuePath, outDir, err := cuePaths(cCtx)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(cCtx)
	if err != nil {
		return err
	}
	s, err := newSplitter(cCtx, runner, cfg, logger)
	if err != nil {
		return err
	}

	plans, err := s.Plan(cuePath, outDir)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plans: %w", err)
	}
	_, err = fmt.Fprintln(cCtx.App.Writer, string(out))
	return err
}

func runWatch(cCtx *cli.Context, runner processor.Runner) error {
	ctx, cancel := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := setup(cCtx)
	if err != nil {
		return err
	}
	if cCtx.IsSet(flagDir) {
		cfg.DownloadDir = cCtx.String(flagDir)
	}
	if cCtx.IsSet(flagOutDir) {
		cfg.MusicLibDir = cCtx.String(flagOutDir)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	s, err := newSplitter(cCtx, runner, cfg, logger)
	if err != nil {
		return err
	}
	store, err := database.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watchAlbumDirs(watcher, cfg.DownloadDir, logger); err != nil {
		return err
	}

	taskScheduler := scheduler.NewTaskScheduler(ctx, cfg, store, s, logger)
	// Stop 会等待正在分割的专辑完成，必须先于 store.Close 执行
	defer taskScheduler.Stop()
	taskScheduler.InitialScan(cfg.DownloadDir)
	logger.Info().Str("dir", cfg.DownloadDir).Str("out", cfg.MusicLibDir).Msg("Watching download directory")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Stopping watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleEvent(taskScheduler, watcher, cfg.DownloadDir, event, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// watchAlbumDirs 监听下载根目录以及其中已经存在的一级子目录
func watchAlbumDirs(watcher *fsnotify.Watcher, root string, logger zerolog.Logger) error {
	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if err := watcher.Add(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Failed to watch album directory")
		}
	}
	return nil
}

// handleEvent 只关注下载根目录的一级子目录；新建的子目录也加入监听以感知其中文件的变化
func handleEvent(ts *scheduler.TaskScheduler, watcher *fsnotify.Watcher, root string, event fsnotify.Event, logger zerolog.Logger) {
	logger.Debug().Str("op", event.Op.String()).Str("path", event.Name).Msg("Watcher event")

	albumDir := event.Name
	if !util.IsDirectory(albumDir) {
		albumDir = filepath.Dir(albumDir)
	}
	if albumDir == root || filepath.Dir(albumDir) != root {
		return
	}
	if event.Has(fsnotify.Create) && event.Name == albumDir {
		if err := watcher.Add(albumDir); err != nil {
			logger.Warn().Err(err).Str("dir", albumDir).Msg("Failed to watch album directory")
		}
	}
	ts.TriggerScan(albumDir)
}
