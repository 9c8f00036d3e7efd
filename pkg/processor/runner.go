package processor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

// Result 外部命令的退出码与输出
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner 执行外部命令。命令以非零状态退出时返回的 error 为 nil，
// 只有命令无法启动时才返回 error。
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner 通过 os/exec 执行命令
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if exitErr := new(exec.ExitError); errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}

// commandLine 拼出便于复制执行的命令行
func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, s := range append([]string{name}, args...) {
		if s == "" || strings.ContainsAny(s, " \t\"'") {
			s = strconv.Quote(s)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
