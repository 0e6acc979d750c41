// Package comfyui 本地 ComfyUI 服务客户端：提交工作流、轮询结果并下载图片
package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// Client ComfyUI API 客户端
type Client struct {
	http      *retryablehttp.Client
	opts      Options
	promptURL string
	clientID  string
}

// NewClient 创建 ComfyUI 客户端
func NewClient(httpClient *retryablehttp.Client, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		http:      httpClient,
		opts:      opts,
		promptURL: normalizePromptURL(opts.APIURL),
		clientID:  uuid.NewString(),
	}
}

// OutputFile 工作流输出的文件
type OutputFile struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type submitResponse struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
}

type historyEntry struct {
	Status struct {
		StatusStr string `json:"status_str"`
		Completed bool   `json:"completed"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []OutputFile `json:"images"`
	} `json:"outputs"`
}

// Generate 提交工作流并返回第一张输出图片
func (c *Client) Generate(ctx context.Context, wf Workflow) ([]byte, error) {
	promptID, err := c.Submit(ctx, wf)
	if err != nil {
		return nil, err
	}

	file, err := c.WaitForOutput(ctx, promptID)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, file)
}

// Submit 提交工作流，返回 prompt_id
// 提交端点返回 404/405 时回退到 /prompt
func (c *Client) Submit(ctx context.Context, wf Workflow) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt":    wf,
		"client_id": c.clientID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal workflow: %v", errs.ErrEncoding, err)
	}

	status, body, err := c.post(ctx, c.promptURL, payload)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		fallback := fallbackPromptURL(c.promptURL)
		log.Warn().Str("fallback_url", fallback).Int("status", status).Msg("提交端点不可用，回退到备用端点")
		status, body, err = c.post(ctx, fallback, payload)
		if err != nil {
			return "", err
		}
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: comfyui submit status %d: %s", errs.ErrNetwork, status, truncate(body, 300))
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode submit response: %v", errs.ErrEncoding, err)
	}
	if len(resp.NodeErrors) > 0 {
		return "", fmt.Errorf("%w: comfyui rejected workflow: %v", errs.ErrInvalidInput, resp.NodeErrors)
	}
	if resp.PromptID == "" {
		return "", fmt.Errorf("%w: comfyui returned no prompt_id", errs.ErrEncoding)
	}

	log.Debug().Str("prompt_id", resp.PromptID).Int("queue", resp.Number).Msg("ComfyUI 工作流已提交")
	return resp.PromptID, nil
}

// WaitForOutput 轮询 history 接口直到任务产出图片
func (c *Client) WaitForOutput(ctx context.Context, promptID string) (*OutputFile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.MaxWait)
	defer cancel()

	historyURL := apiRoot(c.promptURL) + "/history/" + url.PathEscape(promptID)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		file, done, err := c.pollHistory(ctx, historyURL, promptID)
		if err != nil {
			return nil, err
		}
		if done {
			return file, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for comfyui prompt %s: %v", errs.ErrNetwork, promptID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) pollHistory(ctx context.Context, historyURL, promptID string) (*OutputFile, bool, error) {
	status, body, err := c.get(ctx, historyURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, err
		}
		log.Warn().Err(err).Str("prompt_id", promptID).Msg("轮询历史接口异常")
		return nil, false, nil
	}
	if status != http.StatusOK {
		return nil, false, nil
	}

	var history map[string]historyEntry
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, false, nil
	}
	entry, ok := history[promptID]
	if !ok {
		return nil, false, nil
	}
	if entry.Status.StatusStr == "error" {
		return nil, false, fmt.Errorf("%w: comfyui prompt %s failed", errs.ErrEncoding, promptID)
	}

	if file := firstImage(entry); file != nil {
		log.Debug().Str("filename", file.Filename).Str("subfolder", file.Subfolder).Msg("获取到输出文件")
		return file, true, nil
	}
	if entry.Status.Completed {
		return nil, false, fmt.Errorf("%w: comfyui prompt %s produced no image", errs.ErrEncoding, promptID)
	}
	return nil, false, nil
}

func firstImage(entry historyEntry) *OutputFile {
	for _, out := range entry.Outputs {
		for _, img := range out.Images {
			if img.Filename == "" {
				continue
			}
			if img.Type == "" {
				img.Type = "output"
			}
			return &img
		}
	}
	return nil
}

// Download 从 /api/view 下载输出文件
func (c *Client) Download(ctx context.Context, file *OutputFile) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", file.Filename)
	q.Set("type", file.Type)
	if file.Subfolder != "" {
		q.Set("subfolder", file.Subfolder)
	}

	status, body, err := c.get(ctx, apiRoot(c.promptURL)+"/view?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: comfyui view status %d", errs.ErrNetwork, status)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: comfyui returned empty image", errs.ErrEncoding)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, u string, payload []byte) (int, []byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request: %v", errs.ErrInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, u string) (int, []byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request: %v", errs.ErrInvalidInput, err)
	}
	return c.do(req)
}

func (c *Client) do(req *retryablehttp.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: comfyui %s: %v", errs.ErrNetwork, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read comfyui response: %v", errs.ErrNetwork, err)
	}
	return resp.StatusCode, body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
