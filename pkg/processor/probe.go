package processor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Prober 通过 ffprobe 查询媒体文件的真实时长
type Prober struct {
	path   string
	runner Runner
}

func NewProber(ffprobePath string, runner Runner) *Prober {
	return &Prober{path: ffprobePath, runner: runner}
}

// Duration 返回 source 的总时长（秒）
func (p *Prober) Duration(ctx context.Context, source string) (float64, error) {
	args := []string{"-v", "error", "-show_entries", "format=duration", "-of", "json", source}
	cmdErr := &CommandError{Stage: StageProbing, Command: commandLine(p.path, args), Kind: ErrProbeFailed}

	res, err := p.runner.Run(ctx, p.path, args...)
	if err != nil {
		cmdErr.ExitCode = -1
		cmdErr.Cause = err
		return 0, cmdErr
	}
	if res.ExitCode != 0 {
		cmdErr.ExitCode = res.ExitCode
		cmdErr.Output = string(res.Stderr)
		return 0, cmdErr
	}

	if !gjson.ValidBytes(res.Stdout) {
		cmdErr.Cause = fmt.Errorf("invalid ffprobe output: %q", res.Stdout)
		return 0, cmdErr
	}
	duration := gjson.GetBytes(res.Stdout, "format.duration")
	if !duration.Exists() {
		cmdErr.Cause = fmt.Errorf("ffprobe output has no format.duration: %s", res.Stdout)
		return 0, cmdErr
	}
	sec, err := strconv.ParseFloat(strings.TrimSpace(duration.String()), 64)
	if err != nil || sec < 0 {
		cmdErr.Cause = fmt.Errorf("invalid duration %q", duration.String())
		return 0, cmdErr
	}
	return sec, nil
}
