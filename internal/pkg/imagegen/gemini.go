package imagegen

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/errs"
)

const DefaultGeminiImageModel = "imagen-4.0-generate-001"

// Imagen 支持的画面比例
var aspectRatios = []struct {
	name  string
	ratio float64
}{
	{"1:1", 1},
	{"3:4", 3.0 / 4},
	{"4:3", 4.0 / 3},
	{"9:16", 9.0 / 16},
	{"16:9", 16.0 / 9},
}

// GeminiProvider Google Imagen 文生图（Gemini API）
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider 创建 Gemini 文生图服务
// API Key 为空时使用环境变量 GEMINI_API_KEY
func NewGeminiProvider(ctx context.Context, cfg config.ImageConfig) (*GeminiProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required", errs.ErrInvalidInput)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", errs.ErrNetwork, err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiImageModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Synthesize 生成一张图片
func (p *GeminiProvider) Synthesize(ctx context.Context, prompt string, params Params) ([]byte, error) {
	resp, err := p.client.Models.GenerateImages(ctx, p.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    AspectRatio(params.Width, params.Height),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini generate images: %v", errs.ErrNetwork, err)
	}

	if len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("%w: no image data in response", errs.ErrEncoding)
	}
	generated := resp.GeneratedImages[0]
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		if generated.RAIFilteredReason != "" {
			log.Warn().Str("reason", generated.RAIFilteredReason).Msg("图片被安全策略过滤")
		}
		return nil, fmt.Errorf("%w: empty image in response", errs.ErrEncoding)
	}
	return generated.Image.ImageBytes, nil
}

// Name 提供者名称
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// AspectRatio 选择最接近的 Imagen 画面比例
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "16:9"
	}
	target := float64(width) / float64(height)
	best := aspectRatios[0]
	for _, ar := range aspectRatios[1:] {
		if math.Abs(math.Log(ar.ratio/target)) < math.Abs(math.Log(best.ratio/target)) {
			best = ar
		}
	}
	return best.name
}
