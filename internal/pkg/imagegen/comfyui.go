package imagegen

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/comfyui"
	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/httpclient"
)

// ComfyUIProvider 本地 ComfyUI 文生图
// 每次生成从模板复制一份工作流，替换正向提示词和画面尺寸
type ComfyUIProvider struct {
	client   *comfyui.Client
	template comfyui.Workflow
}

// NewComfyUIProvider 创建 ComfyUI 文生图服务
// 服务地址依次使用 image.base_url、COMFYUI_API_URL 和默认地址
func NewComfyUIProvider(cfg config.ImageConfig) (*ComfyUIProvider, error) {
	path := cfg.Workflow
	if path == "" {
		path = os.Getenv("COMFYUI_WORKFLOW_JSON")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: image.workflow is required for comfyui", errs.ErrInvalidInput)
	}

	template, err := comfyui.LoadWorkflow(path)
	if err != nil {
		return nil, err
	}

	apiURL := cfg.BaseURL
	if apiURL == "" {
		apiURL = os.Getenv("COMFYUI_API_URL")
	}

	httpClient := httpclient.New(httpclient.Config{RetryMax: 3, Timeout: 30 * time.Second})
	return &ComfyUIProvider{
		client:   comfyui.NewClient(httpClient, comfyui.Options{APIURL: apiURL}),
		template: template,
	}, nil
}

// Synthesize 生成一张图片
func (p *ComfyUIProvider) Synthesize(ctx context.Context, prompt string, params Params) ([]byte, error) {
	wf := p.template.Clone()
	if !wf.SetPositivePrompt(prompt) {
		return nil, fmt.Errorf("%w: workflow has no CLIPTextEncode node for the prompt", errs.ErrInvalidInput)
	}
	if params.Width > 0 && params.Height > 0 && !wf.SetImageSize(params.Width, params.Height) {
		log.Debug().Msg("工作流没有 EmptyLatentImage 节点，使用模板尺寸")
	}
	return p.client.Generate(ctx, wf)
}

// Name 提供者名称
func (p *ComfyUIProvider) Name() string {
	return "comfyui"
}
