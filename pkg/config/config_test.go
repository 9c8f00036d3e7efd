package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yleoer/splitalbums/pkg/config"
	"github.com/yleoer/splitalbums/pkg/util"
)

var envKeys = []string{
	"FFMPEG_PATH", "FFPROBE_PATH", "OUTPUT_EXT", "CUE_ENCODING", "COVER_NAME", "LOG_FORMAT",
	"DOWNLOAD_DIR", "MUSIC_LIB_DIR", "DATA_DIR", "DB_FILE_NAME", "T2S",
	"STABILITY_CHECK_INTERVAL", "STABILITY_QUIET_DURATION", "STABILITY_MAX_WAIT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadConfig("", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "flac", cfg.OutputExt)
	assert.Equal(t, util.CharsetAuto, cfg.CueEncoding)
	assert.Equal(t, "cover.jpg", cfg.CoverName)
	assert.False(t, cfg.TradToSim)
	assert.Equal(t, filepath.Join("/app/data", "splitalbums.db"), cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.StabilityCheckInterval)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ffmpeg_path: /opt/ffmpeg/bin/ffmpeg
output_ext: wav
cue_encoding: gb2312
t2s: true
data_dir: /var/lib/split
stability_quiet_duration: 30s
`), 0o644))

	t.Setenv("OUTPUT_EXT", "flac")
	t.Setenv("STABILITY_MAX_WAIT", "not-a-duration")

	cfg, err := config.LoadConfig(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "flac", cfg.OutputExt)
	assert.Equal(t, "gb2312", cfg.CueEncoding)
	assert.True(t, cfg.TradToSim)
	assert.Equal(t, filepath.Join("/var/lib/split", "splitalbums.db"), cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.StabilityQuietDuration)
	assert.Equal(t, 12*time.Hour, cfg.StabilityMaxWait)
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)

	t.Setenv("CUE_ENCODING", "klingon")
	_, err := config.LoadConfig("", zerolog.Nop())
	require.ErrorIs(t, err, util.ErrUnknownCharset)

	t.Setenv("CUE_ENCODING", "")
	t.Setenv("LOG_FORMAT", "xml")
	_, err = config.LoadConfig("", zerolog.Nop())
	require.Error(t, err)

	t.Setenv("LOG_FORMAT", "")
	_, err = config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = filepath.Join(root, "download")
	cfg.MusicLibDir = filepath.Join(root, "music")
	cfg.DataDir = filepath.Join(root, "data")

	require.NoError(t, cfg.EnsureDirs())
	for _, dir := range []string{cfg.DownloadDir, cfg.MusicLibDir, cfg.DataDir} {
		assert.DirExists(t, dir)
	}
}
