package ark

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/errs"
)

const (
	DefaultBaseURL    = "https://ark.cn-beijing.volces.com/api/v3"
	DefaultImageModel = "doubao-seedream-3-0-t2i-250415"
	DefaultImageSize  = "1280x720"
)

// ImageClient Ark 图片生成客户端
// 用于调用火山引擎的 Ark API 生成图片
type ImageClient struct {
	client *arkruntime.Client
	model  string
}

// NewImageClient 创建 Ark 图片生成客户端
// 配置为空的字段依次使用环境变量 ARK_API_KEY / ARK_IMAGE_MODEL / ARK_BASE_URL 和默认值
func NewImageClient(cfg config.ImageConfig) (*ImageClient, error) {
	apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("ARK_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ARK_API_KEY is required", errs.ErrInvalidInput)
	}

	baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv("ARK_BASE_URL"), DefaultBaseURL)
	imageModel := firstNonEmpty(cfg.Model, os.Getenv("ARK_IMAGE_MODEL"), DefaultImageModel)

	arkClient := arkruntime.NewClientWithApiKey(apiKey, arkruntime.WithBaseUrl(baseURL))

	return &ImageClient{
		client: arkClient,
		model:  imageModel,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GenerateImage 生成图片（同步接口），返回图片字节
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string, size string, watermark bool) ([]byte, error) {
	if size == "" {
		size = DefaultImageSize
	}

	responseFormat := "b64_json"

	input := model.GenerateImagesRequest{
		Model:          c.model,
		Prompt:         prompt,
		Size:           &size,
		ResponseFormat: &responseFormat,
		Watermark:      &watermark,
	}

	output, err := c.client.GenerateImages(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("调用 Ark GenerateImages 失败")
		return nil, fmt.Errorf("%w: ark generate images: %v", errs.ErrNetwork, err)
	}

	if len(output.Data) == 0 {
		return nil, fmt.Errorf("%w: no image data in response", errs.ErrEncoding)
	}

	firstImage := output.Data[0]
	if firstImage.B64Json == nil {
		return nil, fmt.Errorf("%w: no b64_json in response data", errs.ErrEncoding)
	}

	imageData, err := base64.StdEncoding.DecodeString(*firstImage.B64Json)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64 image data: %v", errs.ErrEncoding, err)
	}

	return imageData, nil
}

// Model 模型名称
func (c *ImageClient) Model() string {
	return c.model
}
