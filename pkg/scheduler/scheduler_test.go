package scheduler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yleoer/splitalbums/pkg/config"
	"github.com/yleoer/splitalbums/pkg/database"
	"github.com/yleoer/splitalbums/pkg/scheduler"
)

type splitCall struct {
	cue    string
	outDir string
}

type fakeSplitter struct {
	mu    sync.Mutex
	calls []splitCall
	err   error
}

func (f *fakeSplitter) Split(_ context.Context, cuePath, outDir string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, splitCall{cue: cuePath, outDir: outDir})
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func (f *fakeSplitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newScheduler(t *testing.T, splitter scheduler.AlbumSplitter) (*scheduler.TaskScheduler, *config.Config, database.SheetStore) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = filepath.Join(root, "download")
	cfg.MusicLibDir = filepath.Join(root, "music")
	cfg.DataDir = filepath.Join(root, "data")
	cfg.StabilityCheckInterval = 5 * time.Millisecond
	cfg.StabilityQuietDuration = 15 * time.Millisecond
	cfg.StabilityMaxWait = 5 * time.Second
	require.NoError(t, cfg.EnsureDirs())

	store, err := database.NewSQLiteStore(filepath.Join(cfg.DataDir, "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ts := scheduler.NewTaskScheduler(context.Background(), cfg, store, splitter, zerolog.Nop())
	t.Cleanup(ts.Stop)
	return ts, cfg, store
}

func makeAlbumDir(t *testing.T, root, name string, cues ...string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, cue := range cues {
		require.NoError(t, os.WriteFile(filepath.Join(dir, cue), []byte("FILE \"a.wav\" WAVE"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.wav"), []byte("RIFF"), 0o644))
	return dir
}

func TestProcessDirectorySplitsOnce(t *testing.T) {
	t.Parallel()

	splitter := &fakeSplitter{}
	ts, cfg, store := newScheduler(t, splitter)
	dir := makeAlbumDir(t, cfg.DownloadDir, "Artist - Album", "album.cue")

	require.NoError(t, ts.ProcessDirectory(dir))
	require.Equal(t, 1, splitter.count())
	assert.Equal(t, filepath.Join(dir, "album.cue"), splitter.calls[0].cue)
	assert.Equal(t, filepath.Join(cfg.MusicLibDir, "Artist - Album"), splitter.calls[0].outDir)

	done, err := store.IsSheetSplit(filepath.Join(dir, "album.cue"))
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, ts.ProcessDirectory(dir))
	assert.Equal(t, 1, splitter.count())
}

func TestProcessDirectoryMultipleCues(t *testing.T) {
	t.Parallel()

	splitter := &fakeSplitter{}
	ts, cfg, _ := newScheduler(t, splitter)
	dir := makeAlbumDir(t, cfg.DownloadDir, "Box", "CD1.cue", "CD2.cue")

	require.NoError(t, ts.ProcessDirectory(dir))
	require.Equal(t, 2, splitter.count())
	assert.Equal(t, filepath.Join(cfg.MusicLibDir, "Box", "CD1"), splitter.calls[0].outDir)
	assert.Equal(t, filepath.Join(cfg.MusicLibDir, "Box", "CD2"), splitter.calls[1].outDir)
}

func TestProcessDirectoryFailureNotRecorded(t *testing.T) {
	t.Parallel()

	boom := errors.New("ffmpeg exploded")
	splitter := &fakeSplitter{err: boom}
	ts, cfg, store := newScheduler(t, splitter)
	dir := makeAlbumDir(t, cfg.DownloadDir, "Broken", "album.cue")

	err := ts.ProcessDirectory(dir)
	require.ErrorIs(t, err, boom)

	done, err := store.IsSheetSplit(filepath.Join(dir, "album.cue"))
	require.NoError(t, err)
	assert.False(t, done)
}

func TestProcessDirectoryWithoutCue(t *testing.T) {
	t.Parallel()

	splitter := &fakeSplitter{}
	ts, cfg, _ := newScheduler(t, splitter)
	dir := makeAlbumDir(t, cfg.DownloadDir, "NoCue")

	require.NoError(t, ts.ProcessDirectory(dir))
	assert.Zero(t, splitter.count())
}

func TestInitialScanTriggersDebouncedScan(t *testing.T) {
	t.Parallel()

	splitter := &fakeSplitter{}
	ts, cfg, _ := newScheduler(t, splitter)
	makeAlbumDir(t, cfg.DownloadDir, "First", "album.cue")
	makeAlbumDir(t, cfg.DownloadDir, "Second", "album.cue")

	ts.InitialScan(cfg.DownloadDir)
	require.Eventually(t, func() bool { return splitter.count() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestProcessDirectoryCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.Default()
	splitter := &fakeSplitter{}
	ts := scheduler.NewTaskScheduler(ctx, cfg, nil, splitter, zerolog.Nop())
	err := ts.ProcessDirectory(t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, splitter.count())
}

// blockingSplitter 在 release 关闭之前一直阻塞
type blockingSplitter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSplitter) Split(_ context.Context, _, _ string) (int, error) {
	close(b.started)
	<-b.release
	return 3, nil
}

func TestStopWaitsForRunningSplit(t *testing.T) {
	t.Parallel()

	splitter := &blockingSplitter{started: make(chan struct{}), release: make(chan struct{})}
	ts, cfg, store := newScheduler(t, splitter)
	dir := makeAlbumDir(t, cfg.DownloadDir, "Slow", "album.cue")
	cuePath := filepath.Join(dir, "album.cue")

	ts.TriggerScan(dir)
	select {
	case <-splitter.started:
	case <-time.After(5 * time.Second):
		t.Fatal("split did not start")
	}

	stopped := make(chan struct{})
	go func() {
		ts.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a split was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(splitter.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the split finished")
	}

	done, err := store.IsSheetSplit(cuePath)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestTriggerScanAfterStopIsIgnored(t *testing.T) {
	t.Parallel()

	splitter := &fakeSplitter{}
	ts, cfg, _ := newScheduler(t, splitter)
	dir := makeAlbumDir(t, cfg.DownloadDir, "Late", "album.cue")

	ts.Stop()
	ts.TriggerScan(dir)
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, splitter.count())
}
