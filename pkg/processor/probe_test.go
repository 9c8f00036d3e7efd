package processor_test

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yleoer/splitalbums/pkg/processor"
)

type scriptedRunner struct {
	res processor.Result
	err error
}

func (r scriptedRunner) Run(context.Context, string, ...string) (processor.Result, error) {
	return r.res, r.err
}

func TestProberDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stdout  string
		want    float64
		wantErr bool
	}{
		{name: "string duration", stdout: `{"format":{"duration":"2700.453333"}}`, want: 2700.453333},
		{name: "numeric duration", stdout: `{"format":{"duration":12.5}}`, want: 12.5},
		{name: "missing duration", stdout: `{"format":{}}`, wantErr: true},
		{name: "not json", stdout: `N/A`, wantErr: true},
		{name: "not a number", stdout: `{"format":{"duration":"N/A"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := processor.NewProber("ffprobe", scriptedRunner{res: processor.Result{Stdout: []byte(tt.stdout)}})
			got, err := p.Duration(context.Background(), "album.flac")
			if tt.wantErr {
				require.ErrorIs(t, err, processor.ErrProbeFailed)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestProberCommandLine(t *testing.T) {
	t.Parallel()

	p := processor.NewProber("/usr/bin/ffprobe", scriptedRunner{res: processor.Result{ExitCode: 2}})
	_, err := p.Duration(context.Background(), "/music/My Album.flac")

	cmdErr := new(processor.CommandError)
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, `/usr/bin/ffprobe -v error -show_entries format=duration -of json "/music/My Album.flac"`, cmdErr.Command)
	assert.Equal(t, 2, cmdErr.ExitCode)
}

func TestExecRunner(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	res, err := processor.ExecRunner{}.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))

	_, err = processor.ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
}
