package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/yleoer/splitalbums/pkg/util"
)

type Config struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`  // FFmpeg 可执行文件路径
	FFprobePath string `yaml:"ffprobe_path"` // FFprobe 可执行文件路径
	OutputExt   string `yaml:"output_ext"`   // 输出文件扩展名
	CueEncoding string `yaml:"cue_encoding"` // CUE 文件字符集，auto 为自动检测
	CoverName   string `yaml:"cover_name"`   // CUE 同目录下的封面文件名
	TradToSim   bool   `yaml:"t2s"`          // 是否将标题从繁体转换为简体
	LogFormat   string `yaml:"log_format"`   // console 或 json

	// 以下仅用于 watch 模式
	DownloadDir            string        `yaml:"download_dir"`
	MusicLibDir            string        `yaml:"music_lib_dir"`
	DataDir                string        `yaml:"data_dir"`
	DBFileName             string        `yaml:"db_file_name"`
	DBPath                 string        `yaml:"-"`
	StabilityCheckInterval time.Duration `yaml:"stability_check_interval"` // 每次检查的间隔
	StabilityQuietDuration time.Duration `yaml:"stability_quiet_duration"` // 文件在多长时间内没有变化才算稳定
	StabilityMaxWait       time.Duration `yaml:"stability_max_wait"`       // 最长等待文件稳定的时间
}

const (
	ffmpeg      = "ffmpeg"
	ffprobe     = "ffprobe"
	outputExt   = "flac"
	coverName   = "cover.jpg"
	logConsole  = "console"
	downloadDir = "/app/download"
	musicDir    = "/app/music"
	dataDir     = "/app/data"
	dbFileName  = "splitalbums.db"

	stabilityCheckInterval = 5 * time.Second
	stabilityQuietDuration = 1 * time.Minute
	stabilityMaxWait       = 12 * time.Hour
)

// Default 返回全部使用默认值的配置
func Default() *Config {
	cfg := &Config{
		FFmpegPath:             ffmpeg,
		FFprobePath:            ffprobe,
		OutputExt:              outputExt,
		CueEncoding:            util.CharsetAuto,
		CoverName:              coverName,
		LogFormat:              logConsole,
		DownloadDir:            downloadDir,
		MusicLibDir:            musicDir,
		DataDir:                dataDir,
		DBFileName:             dbFileName,
		StabilityCheckInterval: stabilityCheckInterval,
		StabilityQuietDuration: stabilityQuietDuration,
		StabilityMaxWait:       stabilityMaxWait,
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, cfg.DBFileName)
	return cfg
}

// LoadConfig 依次应用默认值、YAML 配置文件（可选）与环境变量
func LoadConfig(filePath string, logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
		logger.Debug().Msg(".env file was not found")
	}

	cfg := Default()
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file %q: %w", filePath, err)
		}
	}

	cfg.applyEnv(logger)
	cfg.DBPath = filepath.Join(cfg.DataDir, cfg.DBFileName)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyEnv(logger zerolog.Logger) {
	setString(&cfg.FFmpegPath, "FFMPEG_PATH")
	setString(&cfg.FFprobePath, "FFPROBE_PATH")
	setString(&cfg.OutputExt, "OUTPUT_EXT")
	setString(&cfg.CueEncoding, "CUE_ENCODING")
	setString(&cfg.CoverName, "COVER_NAME")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.DownloadDir, "DOWNLOAD_DIR")
	setString(&cfg.MusicLibDir, "MUSIC_LIB_DIR")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.DBFileName, "DB_FILE_NAME")
	cfg.TradToSim = parseBoolOrDefault(os.Getenv("T2S"), cfg.TradToSim, logger)
	cfg.StabilityCheckInterval = parseDurationOrDefault(os.Getenv("STABILITY_CHECK_INTERVAL"), cfg.StabilityCheckInterval, logger)
	cfg.StabilityQuietDuration = parseDurationOrDefault(os.Getenv("STABILITY_QUIET_DURATION"), cfg.StabilityQuietDuration, logger)
	cfg.StabilityMaxWait = parseDurationOrDefault(os.Getenv("STABILITY_MAX_WAIT"), cfg.StabilityMaxWait, logger)
}

func (cfg *Config) validate() error {
	if cfg.FFmpegPath == "" {
		return errors.New("ffmpeg path is empty")
	}
	if cfg.FFprobePath == "" {
		return errors.New("ffprobe path is empty")
	}
	if cfg.OutputExt == "" {
		return errors.New("output extension is empty")
	}
	if _, err := util.LookupCharset(cfg.CueEncoding); err != nil {
		return err
	}
	if cfg.LogFormat != logConsole && cfg.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	if cfg.StabilityCheckInterval <= 0 {
		return errors.New("stability check interval must be positive")
	}
	return nil
}

// EnsureDirs 确认 watch 模式需要的目录存在
func (cfg *Config) EnsureDirs() error {
	for _, dir := range []string{cfg.DownloadDir, cfg.MusicLibDir, cfg.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func parseDurationOrDefault(s string, defaultValue time.Duration, logger zerolog.Logger) time.Duration {
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Warn().Err(err).Str("value", s).Dur("default", defaultValue).Msg("Could not parse duration, using default")
		return defaultValue
	}
	return d
}

func parseBoolOrDefault(s string, defaultValue bool, logger zerolog.Logger) bool {
	if s == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		logger.Warn().Err(err).Str("value", s).Bool("default", defaultValue).Msg("Could not parse bool, using default")
		return defaultValue
	}
	return b
}
