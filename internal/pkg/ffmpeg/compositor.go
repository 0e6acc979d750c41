package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// ClipKind 片段类型
type ClipKind string

const (
	ClipImage ClipKind = "image" // 静态图片（缓慢推近）
	ClipLoop  ClipKind = "loop"  // 可循环动图（渐变背景）
)

// Clip 画面片段
type Clip struct {
	Kind     ClipKind
	Path     string
	Duration float64 // 秒
}

// RenderRequest 合成请求
type RenderRequest struct {
	Clips        []Clip
	AudioPath    string // 音轨
	SubtitlePath string // ASS 字幕（可选）
	OutputPath   string
	TempDir      string // 中间文件目录（默认: 输出文件所在目录）
	Spec         VideoSpec
}

// Render 合成视频：逐个片段编码 → 拼接 → 烧录字幕 → 合入音轨
func (c *Client) Render(ctx context.Context, req RenderRequest) error {
	if len(req.Clips) == 0 {
		return fmt.Errorf("%w: no clips to render", errs.ErrInvalidInput)
	}
	if req.AudioPath == "" || req.OutputPath == "" {
		return fmt.Errorf("%w: audio and output paths are required", errs.ErrInvalidInput)
	}

	tempDir := req.TempDir
	if tempDir == "" {
		tempDir = filepath.Dir(req.OutputPath)
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("%w: create temp dir: %v", errs.ErrEncoding, err)
	}

	segments := make([]string, 0, len(req.Clips))
	for i, clip := range req.Clips {
		segment := filepath.Join(tempDir, fmt.Sprintf("segment_%03d.mp4", i+1))
		var err error
		switch clip.Kind {
		case ClipImage:
			err = c.CreateVideoFromImage(ctx, clip.Path, segment, clip.Duration, req.Spec)
		case ClipLoop:
			err = c.LoopToVideo(ctx, clip.Path, segment, clip.Duration, req.Spec)
		default:
			err = fmt.Errorf("%w: unknown clip kind %q", errs.ErrInvalidInput, clip.Kind)
		}
		if err != nil {
			return fmt.Errorf("clip %d: %w", i+1, err)
		}
		segments = append(segments, segment)
	}

	visual := segments[0]
	if len(segments) > 1 {
		visual = filepath.Join(tempDir, "visual.mp4")
		if err := c.ConcatVideos(ctx, segments, visual); err != nil {
			return err
		}
	}

	if req.SubtitlePath != "" {
		captioned := filepath.Join(tempDir, "captioned.mp4")
		if err := c.BurnSubtitles(ctx, visual, req.SubtitlePath, captioned, req.Spec); err != nil {
			return err
		}
		visual = captioned
	}

	if err := c.MuxAudio(ctx, visual, req.AudioPath, req.OutputPath); err != nil {
		return err
	}

	log.Info().
		Int("clips", len(req.Clips)).
		Bool("subtitles", req.SubtitlePath != "").
		Str("output", req.OutputPath).
		Msg("视频合成完成")

	return nil
}
