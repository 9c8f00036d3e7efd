package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yleoer/splitalbums/pkg/cuesheet"
	"github.com/yleoer/splitalbums/pkg/split"
)

// Options FFmpeg 处理器的配置
type Options struct {
	FFmpegPath   string
	FFprobePath  string
	SampleRate   int    // 0 表示保持源采样率
	SampleFormat string // 空表示保持源采样格式
	// Observer 每次阶段切换时调用，可为空
	Observer func(track int, stage Stage)
}

// FFmpegProcessor 负责通过 FFmpeg 执行切割计划
type FFmpegProcessor struct {
	ffmpegPath   string
	prober       *Prober
	runner       Runner
	sampleRate   int
	sampleFormat string
	observer     func(track int, stage Stage)
	logger       zerolog.Logger
}

// NewFFmpegProcessor 创建一个新的 FFmpegProcessor 实例
func NewFFmpegProcessor(runner Runner, opts Options, logger zerolog.Logger) *FFmpegProcessor {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	return &FFmpegProcessor{
		ffmpegPath:   opts.FFmpegPath,
		prober:       NewProber(opts.FFprobePath, runner),
		runner:       runner,
		sampleRate:   opts.SampleRate,
		sampleFormat: opts.SampleFormat,
		observer:     opts.Observer,
		logger:       logger,
	}
}

// ProcessAll 按顺序处理所有计划，遇到第一个错误立即停止
func (p *FFmpegProcessor) ProcessAll(ctx context.Context, plans []split.Plan) error {
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Process(ctx, plan); err != nil {
			return err
		}
	}
	return nil
}

// Process 切割单个轨道：必要时先探测时长，切割后按需嵌入封面。
// 已开始的轨道不会因 ctx 取消而中断；失败时删除该轨道产生的所有文件。
func (p *FFmpegProcessor) Process(ctx context.Context, plan split.Plan) (err error) {
	ctx = context.WithoutCancel(ctx)
	logger := p.logger.With().Int("track", plan.Number).Str("title", plan.Title).Logger()

	tempPath := p.tempPath(plan)
	p.transition(plan.Number, StagePending)
	defer func() {
		if err == nil {
			return
		}
		p.transition(plan.Number, StageFailed)
		removeQuietly(logger, tempPath)
		removeQuietly(logger, plan.Output)
	}()

	removeQuietly(logger, tempPath)
	removeQuietly(logger, plan.Output)
	if err := os.MkdirAll(filepath.Dir(plan.Output), 0o755); err != nil {
		return fmt.Errorf("track %02d: failed to create output directory: %w", plan.Number, err)
	}

	end := plan.End
	if end.Open {
		p.transition(plan.Number, StageProbing)
		duration, err := p.prober.Duration(ctx, plan.Source)
		if err != nil {
			if cmdErr := new(CommandError); errors.As(err, &cmdErr) {
				cmdErr.Track = plan.Number
			}
			return err
		}
		logger.Debug().Str("source", plan.Source).Float64("duration", duration).Msg("Probed source duration")
		end = split.At(duration)
	}

	cutTarget := plan.Output
	if plan.Cover != "" {
		cutTarget = tempPath
	}
	p.transition(plan.Number, StageCutting)
	logger.Info().
		Str("start", cuesheet.FormatSeconds(plan.Start, cuesheet.PrecisionFrame)).
		Str("end", end.String()).
		Msg("Splitting track")
	if err := p.run(ctx, logger, plan.Number, StageCutting, ErrCutFailed, p.cutArgs(plan, end, cutTarget)); err != nil {
		return err
	}

	if plan.Cover != "" {
		p.transition(plan.Number, StageMuxingCoverArt)
		if err := p.run(ctx, logger, plan.Number, StageMuxingCoverArt, ErrMuxFailed, p.coverArgs(tempPath, plan.Cover, plan.Output)); err != nil {
			return err
		}
		removeQuietly(logger, tempPath)
	}

	p.transition(plan.Number, StageDone)
	logger.Info().Str("output", plan.Output).Msg("Successfully created track")
	return nil
}

func (p *FFmpegProcessor) run(ctx context.Context, logger zerolog.Logger, track int, stage Stage, kind error, args []string) error {
	cmdLine := commandLine(p.ffmpegPath, args)
	logger.Debug().Str("cmd", cmdLine).Msg("Executing FFmpeg")

	res, err := p.runner.Run(ctx, p.ffmpegPath, args...)
	if err != nil {
		return &CommandError{Stage: stage, Track: track, Command: cmdLine, ExitCode: -1, Kind: kind, Cause: err}
	}
	if res.ExitCode != 0 {
		return &CommandError{Stage: stage, Track: track, Command: cmdLine, ExitCode: res.ExitCode, Output: string(res.Stderr), Kind: kind}
	}
	return nil
}

// cutArgs 构建切割、转码和元数据写入的参数；-ss/-to 放在输入之后以保证精确切点
func (p *FFmpegProcessor) cutArgs(plan split.Plan, end split.End, output string) []string {
	args := []string{
		"-v", "error", "-nostdin", "-y",
		"-i", plan.Source,
		"-ss", cuesheet.FormatSeconds(plan.Start, cuesheet.PrecisionFrame),
		"-to", cuesheet.FormatSeconds(end.Seconds, cuesheet.PrecisionFrame),
		"-map", "0:a",
	}
	for _, tag := range plan.Metadata() {
		args = append(args, "-metadata", tag.Key+"="+tag.Value)
	}
	if codec := audioCodec(output); codec != "" {
		args = append(args, "-c:a", codec)
	}
	if p.sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(p.sampleRate))
	}
	if p.sampleFormat != "" {
		args = append(args, "-sample_fmt", p.sampleFormat)
	}
	return append(args, output)
}

// coverArgs 将封面作为 attached_pic 嵌入，音频流直接复制
func (p *FFmpegProcessor) coverArgs(input, cover, output string) []string {
	return []string{
		"-v", "error", "-nostdin", "-y",
		"-i", input,
		"-i", cover,
		"-map", "0", "-map", "1",
		"-c:v", "mjpeg",
		"-disposition:v:0", "attached_pic",
		"-c:a", "copy",
		output,
	}
}

// tempPath 嵌入封面前的中间文件，与输出位于同一目录并保留扩展名
func (p *FFmpegProcessor) tempPath(plan split.Plan) string {
	return filepath.Join(filepath.Dir(plan.Output), fmt.Sprintf(".split-%02d%s", plan.Number, filepath.Ext(plan.Output)))
}

func (p *FFmpegProcessor) transition(track int, stage Stage) {
	p.logger.Trace().Int("track", track).Stringer("stage", stage).Msg("Stage changed")
	if p.observer != nil {
		p.observer(track, stage)
	}
}

// audioCodec 根据输出扩展名选择编码器，未知扩展名交给 FFmpeg 自行决定
func audioCodec(output string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(output), ".")) {
	case "flac":
		return "flac"
	case "m4a", "alac":
		return "alac"
	case "mp3":
		return "libmp3lame"
	case "ogg":
		return "libvorbis"
	case "opus":
		return "libopus"
	default:
		return ""
	}
}

func removeQuietly(logger zerolog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to remove file")
	}
}
