package splitter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yleoer/splitalbums/pkg/scanner"
	"github.com/yleoer/splitalbums/pkg/split"
	"github.com/yleoer/splitalbums/pkg/splitter"
)

const cue = `PERFORMER "Band"
TITLE "Live"
FILE "live.flac" WAVE
  TRACK 01 AUDIO
    TITLE "Intro"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Outro"
    PERFORMER "Guest"
    INDEX 01 03:00:00
`

type recorder struct {
	plans []split.Plan
	err   error
}

func (r *recorder) ProcessAll(_ context.Context, plans []split.Plan) error {
	r.plans = plans
	return r.err
}

func setup(t *testing.T) (dir, cuePath string) {
	t.Helper()
	dir = t.TempDir()
	cuePath = filepath.Join(dir, "live.cue")
	require.NoError(t, os.WriteFile(cuePath, []byte(cue), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "live.flac"), []byte("fLaC"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte{0xFF}, 0o644))
	return dir, cuePath
}

func TestSplit(t *testing.T) {
	t.Parallel()

	dir, cuePath := setup(t)
	rec := &recorder{}
	s := splitter.New(scanner.NewAlbumScanner(nil, nil, "cover.jpg", zerolog.Nop()), rec, "flac", false, zerolog.Nop())

	out := filepath.Join(dir, "out")
	n, err := s.Split(context.Background(), cuePath, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, rec.plans, 2)
	assert.Equal(t, filepath.Join(dir, "live.flac"), rec.plans[0].Source)
	assert.Equal(t, filepath.Join(out, "01 Intro.flac"), rec.plans[0].Output)
	assert.Equal(t, split.At(180), rec.plans[0].End)
	assert.Equal(t, filepath.Join(dir, "cover.jpg"), rec.plans[1].Cover)
	assert.Equal(t, "Guest", rec.plans[1].Performer)
	assert.True(t, rec.plans[1].End.Open)
}

func TestSplitNoCover(t *testing.T) {
	t.Parallel()

	dir, cuePath := setup(t)
	s := splitter.New(scanner.NewAlbumScanner(nil, nil, "cover.jpg", zerolog.Nop()), &recorder{}, "flac", true, zerolog.Nop())

	plans, err := s.Plan(cuePath, dir)
	require.NoError(t, err)
	for _, plan := range plans {
		assert.Empty(t, plan.Cover)
	}
}

func TestSplitPropagatesExecutorError(t *testing.T) {
	t.Parallel()

	_, cuePath := setup(t)
	boom := errors.New("boom")
	s := splitter.New(scanner.NewAlbumScanner(nil, nil, "", zerolog.Nop()), &recorder{err: boom}, "flac", false, zerolog.Nop())

	n, err := s.Split(context.Background(), cuePath, t.TempDir())
	require.ErrorIs(t, err, boom)
	assert.Zero(t, n)
}

func TestSplitMalformedSheet(t *testing.T) {
	t.Parallel()

	dir, cuePath := setup(t)
	bad := `FILE "live.flac" WAVE
  TRACK 01 AUDIO
    INDEX 01 00:00:00
  TRACK 03 AUDIO
    INDEX 01 01:00:00
`
	require.NoError(t, os.WriteFile(cuePath, []byte(bad), 0o644))
	rec := &recorder{}
	s := splitter.New(scanner.NewAlbumScanner(nil, nil, "", zerolog.Nop()), rec, "flac", false, zerolog.Nop())

	_, err := s.Split(context.Background(), cuePath, dir)
	require.ErrorIs(t, err, split.ErrMalformedSheet)
	assert.Nil(t, rec.plans)
}
