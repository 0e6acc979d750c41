// Package httpclient 带重试的 HTTP 客户端
package httpclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config 客户端配置
type Config struct {
	RetryMax     int           // 最大重试次数
	RetryWaitMin time.Duration // 最小重试间隔
	RetryWaitMax time.Duration // 最大重试间隔
	Timeout      time.Duration // 单次请求超时
}

// New 创建带重试的客户端，日志输出到全局 zerolog
func New(cfg Config) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.Logger = leveledLogger{}
	return client
}

// NewStandard 返回包装为 *http.Client 的重试客户端
// 用于只接受标准客户端的 SDK（如 go-musixmatch）
func NewStandard(cfg Config) *http.Client {
	return New(cfg).StandardClient()
}

// leveledLogger 把 retryablehttp 的日志转到 zerolog
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	emit(log.Error(), msg, keysAndValues)
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	emit(log.Debug(), msg, keysAndValues)
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	emit(log.Trace(), msg, keysAndValues)
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	emit(log.Warn(), msg, keysAndValues)
}

func emit(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
