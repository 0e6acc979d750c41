package pipeline

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/animation"
	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/gradient"
)

// Keyframes 根据配置得到关键帧：优先使用 gradient.keyframes，否则按种子随机生成
func Keyframes(cfg config.GradientConfig) ([]gradient.RGB, error) {
	if len(cfg.Keyframes) > 0 {
		return gradient.ParseColors(cfg.Keyframes)
	}
	if cfg.RandomKeyframes < 2 {
		return nil, fmt.Errorf("%w: need at least 2 keyframes", errs.ErrInvalidInput)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return gradient.RandomKeyframes(rand.New(rand.NewSource(seed)), cfg.RandomKeyframes), nil
}

// GradientParams 配置转换为生成参数
// 同时配置时段时长优先
func GradientParams(cfg config.GradientConfig) gradient.Params {
	segment, total := cfg.Durations()
	return gradient.Params{
		Width:           cfg.Width,
		Height:          cfg.Height,
		FrameRate:       cfg.FrameRate,
		SegmentDuration: segment,
		TotalDuration:   total,
	}
}

// WriteBackground 生成渐变序列并写出循环播放的 GIF
func WriteBackground(path string, cfg config.GradientConfig) (*gradient.Sequence, error) {
	keyframes, err := Keyframes(cfg)
	if err != nil {
		return nil, err
	}

	seq, err := gradient.Generate(keyframes, GradientParams(cfg))
	if err != nil {
		return nil, err
	}

	if err := animation.WriteGIFFile(path, seq, animation.Options{
		FrameRate:   cfg.FrameRate,
		LoopForever: true,
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Int("keyframes", len(keyframes)).
		Int("frames", seq.Len()).
		Dur("frame_delay", seq.FrameDelay()).
		Msg("渐变背景生成完成")

	return seq, nil
}
