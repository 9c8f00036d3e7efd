package processor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProbeFailed = errors.New("duration probe failed")
	ErrCutFailed   = errors.New("cut failed")
	ErrMuxFailed   = errors.New("cover art mux failed")
)

// Stage 单个轨道的处理阶段
type Stage int

const (
	StagePending Stage = iota
	StageProbing
	StageCutting
	StageMuxingCoverArt
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageProbing:
		return "probing"
	case StageCutting:
		return "cutting"
	case StageMuxingCoverArt:
		return "muxing_cover_art"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// CommandError 外部命令失败，携带命令行与诊断输出
type CommandError struct {
	Stage    Stage
	Track    int
	Command  string
	ExitCode int
	Output   string
	Kind     error // ErrProbeFailed / ErrCutFailed / ErrMuxFailed
	Cause    error // 命令无法启动时的底层错误
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "track %02d: %v: ", e.Track, e.Kind)
	if e.Cause != nil {
		fmt.Fprintf(&b, "%v", e.Cause)
	} else {
		fmt.Fprintf(&b, "exit code %d", e.ExitCode)
	}
	fmt.Fprintf(&b, "\ncommand: %s", e.Command)
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, "\n%s", out)
	}
	return b.String()
}

func (e *CommandError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}
