package comfyui

import (
	"strings"
	"time"
)

const (
	DefaultAPIURL       = "http://127.0.0.1:8188/api/prompt"
	DefaultPollInterval = time.Second
	DefaultMaxWait      = 5 * time.Minute
)

// Options ComfyUI 客户端选项
type Options struct {
	APIURL       string        // API URL（如 http://127.0.0.1:8188/api/prompt）
	PollInterval time.Duration // 轮询间隔
	MaxWait      time.Duration // 单张图片最大等待时间
}

func (o Options) withDefaults() Options {
	if o.APIURL == "" {
		o.APIURL = DefaultAPIURL
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	return o
}

// normalizePromptURL 规范化工作流提交端点
//   - http://host:port → http://host:port/api/prompt
//   - http://host:port/api → http://host:port/api/prompt
//   - http://host:port/api/prompt、http://host:port/prompt 原样使用
//   - 其他 /api/... 路径回到根并使用 /api/prompt
func normalizePromptURL(raw string) string {
	base := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if base == "" {
		return DefaultAPIURL
	}

	switch {
	case strings.HasSuffix(base, "/api/prompt"), strings.HasSuffix(base, "/prompt"):
		return base
	case strings.HasSuffix(base, "/api"):
		return base + "/prompt"
	case strings.Contains(base, "/api/"):
		root, _, _ := strings.Cut(base, "/api/")
		return root + "/api/prompt"
	}
	return base + "/api/prompt"
}

// serverRoot 去掉提交端点后的服务根地址
func serverRoot(promptURL string) string {
	root := strings.TrimSuffix(promptURL, "/prompt")
	return strings.TrimSuffix(root, "/api")
}

// apiRoot history/view 使用的 /api 前缀
func apiRoot(promptURL string) string {
	return serverRoot(promptURL) + "/api"
}

// fallbackPromptURL 部分部署只暴露不带 /api 的 /prompt
func fallbackPromptURL(promptURL string) string {
	return serverRoot(promptURL) + "/prompt"
}
