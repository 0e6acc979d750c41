package imagegen

import (
	"context"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/ark"
)

// ArkProvider 火山引擎 Ark 文生图
type ArkProvider struct {
	client    *ark.ImageClient
	watermark bool
}

// NewArkProvider 创建 Ark 文生图服务
func NewArkProvider(cfg config.ImageConfig) (*ArkProvider, error) {
	client, err := ark.NewImageClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ArkProvider{client: client, watermark: cfg.Watermark}, nil
}

// Synthesize 生成一张图片
func (p *ArkProvider) Synthesize(ctx context.Context, prompt string, params Params) ([]byte, error) {
	log.Debug().Str("model", p.client.Model()).Str("size", params.Size()).Msg("Ark 生成图片")
	return p.client.GenerateImage(ctx, prompt, params.Size(), p.watermark)
}

// Name 提供者名称
func (p *ArkProvider) Name() string {
	return "ark"
}
