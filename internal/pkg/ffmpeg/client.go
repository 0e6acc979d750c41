package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/errs"
)

// Client FFmpeg 客户端
// 用于封装 FFmpeg / FFprobe 命令调用
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
// 配置为空时依次使用环境变量 FFMPEG_PATH / FFPROBE_PATH 和 PATH 中的同名命令
func NewClient(cfg config.ToolsConfig) *Client {
	ffmpegPath := firstNonEmpty(cfg.FFmpeg, os.Getenv("FFMPEG_PATH"), "ffmpeg")
	ffprobePath := firstNonEmpty(cfg.FFprobe, os.Getenv("FFPROBE_PATH"), "ffprobe")

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AudioInfo 音频信息
type AudioInfo struct {
	Duration float64 // 时长（秒）
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetAudioInfo 获取音频信息
// ffprobe -v error -show_entries format=duration -of json audio.mp3
func (c *Client) GetAudioInfo(ctx context.Context, audioPath string) (*AudioInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe %s: %v", errs.ErrEncoding, audioPath, err)
	}
	return parseAudioInfo(output)
}

func parseAudioInfo(output []byte) (*AudioInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", errs.ErrEncoding, err)
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("%w: invalid duration %q", errs.ErrEncoding, probe.Format.Duration)
	}
	return &AudioInfo{Duration: duration}, nil
}

// ConvertToMP3 转码为 MP3
func (c *Client) ConvertToMP3(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("convert to mp3: %w", err)
	}

	log.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Msg("音频转码成功")

	return nil
}

// VideoSpec 输出视频参数
type VideoSpec struct {
	Width  int
	Height int
	FPS    int
	Codec  string
}

func (s VideoSpec) codec() string {
	if s.Codec == "" {
		return "libx264"
	}
	return s.Codec
}

// CreateVideoFromImage 将静态图片转换为带缓慢推近效果的视频
func (c *Client) CreateVideoFromImage(ctx context.Context, imagePath, outputPath string, duration float64, spec VideoSpec) error {
	if err := c.run(ctx, imageClipArgs(imagePath, outputPath, duration, spec)); err != nil {
		return fmt.Errorf("image to video: %w", err)
	}

	log.Info().
		Str("image", imagePath).
		Str("output", outputPath).
		Float64("duration", duration).
		Msg("图片视频创建成功")

	return nil
}

// imageClipArgs
// ffmpeg -y -loop 1 -i image.png -t duration -vf "scale...,crop...,zoompan=..." -c:v libx264 -pix_fmt yuv420p -r fps output.mp4
func imageClipArgs(imagePath, outputPath string, duration float64, spec VideoSpec) []string {
	totalFrames := max(1, int(duration*float64(spec.FPS)))

	zoomEffect := fmt.Sprintf("zoompan=z='min(1.0+on*0.0008,1.3)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		totalFrames, spec.Width, spec.Height, spec.FPS)

	return []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.2f", duration),
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,%s",
			spec.Width, spec.Height, spec.Width, spec.Height, zoomEffect),
		"-c:v", spec.codec(),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(spec.FPS),
		outputPath,
	}
}

// LoopToVideo 将可循环的动图（渐变背景）重复播放到指定时长
func (c *Client) LoopToVideo(ctx context.Context, animPath, outputPath string, duration float64, spec VideoSpec) error {
	if err := c.run(ctx, loopClipArgs(animPath, outputPath, duration, spec)); err != nil {
		return fmt.Errorf("loop to video: %w", err)
	}

	log.Info().
		Str("input", animPath).
		Str("output", outputPath).
		Float64("duration", duration).
		Msg("循环背景视频创建成功")

	return nil
}

// loopClipArgs
// ffmpeg -y -stream_loop -1 -i bg.gif -t duration -vf "scale=w:h,fps=fps" -c:v libx264 -pix_fmt yuv420p out.mp4
func loopClipArgs(animPath, outputPath string, duration float64, spec VideoSpec) []string {
	return []string{
		"-y",
		"-stream_loop", "-1",
		"-i", animPath,
		"-t", fmt.Sprintf("%.2f", duration),
		"-vf", fmt.Sprintf("scale=%d:%d:flags=neighbor,fps=%d,setsar=1", spec.Width, spec.Height, spec.FPS),
		"-c:v", spec.codec(),
		"-pix_fmt", "yuv420p",
		"-an",
		outputPath,
	}
}

// ConcatVideos 合并多个视频文件
// 使用 concat demuxer（需要创建 concat list 文件）
func (c *Client) ConcatVideos(ctx context.Context, videoPaths []string, outputPath string) error {
	if len(videoPaths) == 0 {
		return fmt.Errorf("%w: no videos to concat", errs.ErrInvalidInput)
	}

	list, err := concatList(videoPaths)
	if err != nil {
		return err
	}

	concatListFile := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_concat.txt"
	if err := os.WriteFile(concatListFile, []byte(list), 0644); err != nil {
		return fmt.Errorf("%w: create concat list file: %v", errs.ErrEncoding, err)
	}
	defer os.Remove(concatListFile)

	// ffmpeg -f concat -safe 0 -i concat_list.txt -c copy output.mp4
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatListFile,
		"-c", "copy",
		outputPath,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("concat: %w", err)
	}

	log.Info().
		Int("count", len(videoPaths)).
		Str("output", outputPath).
		Msg("视频合并成功")

	return nil
}

// concatList 生成 concat demuxer 的文件列表，路径中的单引号按 ffmpeg 规则转义
func concatList(videoPaths []string) (string, error) {
	var b strings.Builder
	for _, videoPath := range videoPaths {
		absPath, err := filepath.Abs(videoPath)
		if err != nil {
			return "", fmt.Errorf("%w: get absolute path: %v", errs.ErrEncoding, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(absPath, "'", `'\''`))
	}
	return b.String(), nil
}

// BurnSubtitles 添加字幕到视频（ASS 格式）
func (c *Client) BurnSubtitles(ctx context.Context, videoPath, assPath, outputPath string, spec VideoSpec) error {
	// ffmpeg -i video.mp4 -vf "ass=subtitle.ass" output.mp4
	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", "ass=" + escapeFilterValue(assPath),
		"-c:v", spec.codec(),
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		outputPath,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}

	log.Info().
		Str("video", videoPath).
		Str("subtitle", assPath).
		Str("output", outputPath).
		Msg("字幕添加成功")

	return nil
}

// escapeFilterValue 转义滤镜参数中的特殊字符
func escapeFilterValue(v string) string {
	return strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`, `[`, `\[`, `]`, `\]`).Replace(v)
}

// MuxAudio 把音轨合入视频，以较短的一方为准
func (c *Client) MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outputPath,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("mux audio: %w", err)
	}

	log.Info().
		Str("video", videoPath).
		Str("audio", audioPath).
		Str("output", outputPath).
		Msg("音视频合成成功")

	return nil
}

// run 执行 ffmpeg，失败时附带 stderr 末尾内容
func (c *Client) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug().Strs("args", args).Msg("执行 ffmpeg")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: ffmpeg failed: %v: %s", errs.ErrEncoding, err, tail(stderr.String(), 512))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
