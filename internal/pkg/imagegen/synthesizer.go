package imagegen

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/errs"
)

// Params 图片参数
type Params struct {
	Width  int
	Height int
}

// Size 尺寸字符串，如 1280x720
func (p Params) Size() string {
	if p.Width <= 0 || p.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// ParseSize 解析 "WxH" 尺寸
func ParseSize(size string) (Params, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
	if !ok {
		return Params{}, fmt.Errorf("%w: invalid image size %q", errs.ErrInvalidInput, size)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return Params{}, fmt.Errorf("%w: invalid image size %q", errs.ErrInvalidInput, size)
	}
	return Params{Width: width, Height: height}, nil
}

// Synthesizer 文生图服务
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string, p Params) ([]byte, error)
	Name() string
}

// New 根据配置创建文生图服务
func New(ctx context.Context, cfg config.ImageConfig) (Synthesizer, error) {
	switch cfg.Provider {
	case "ark", "":
		return NewArkProvider(cfg)
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	case "comfyui":
		return NewComfyUIProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported image provider: %s", errs.ErrInvalidInput, cfg.Provider)
	}
}
