package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// DefaultLRCLibURL LRCLIB 公共接口地址
const DefaultLRCLibURL = "https://lrclib.net/api/get"

// LRCLibClient LRCLIB 歌词客户端（无需 API Key）
type LRCLibClient struct {
	client    *retryablehttp.Client
	apiURL    string
	userAgent string
}

// NewLRCLibClient 创建 LRCLIB 客户端
func NewLRCLibClient(client *retryablehttp.Client, apiURL string) *LRCLibClient {
	if apiURL == "" {
		apiURL = DefaultLRCLibURL
	}
	if client == nil {
		client = retryablehttp.NewClient()
	}
	return &LRCLibClient{
		client:    client,
		apiURL:    apiURL,
		userAgent: "lyricvid/1.0",
	}
}

type lrclibResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// FetchLyrics 获取歌词并切分为行
// 优先使用纯文本歌词，没有时从同步歌词中去掉时间戳
func (c *LRCLibClient) FetchLyrics(ctx context.Context, artist, title string) ([]string, error) {
	q := url.Values{}
	q.Set("artist_name", artist)
	q.Set("track_name", title)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build lrclib request: %v", errs.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: lrclib request: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: lrclib has no lyrics for %s - %s", errs.ErrNotFound, artist, title)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: lrclib returned status %d", errs.ErrNetwork, resp.StatusCode)
	}

	var body lrclibResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode lrclib response: %v", errs.ErrNetwork, err)
	}

	raw := body.PlainLyrics
	if raw == "" {
		raw = body.SyncedLyrics
	}
	lines := SplitLines(raw)
	if body.Instrumental || len(lines) == 0 {
		return nil, fmt.Errorf("%w: lrclib has no lyrics for %s - %s", errs.ErrNotFound, artist, title)
	}

	log.Info().
		Str("artist", artist).
		Str("title", title).
		Int("lines", len(lines)).
		Msg("LRCLIB 歌词获取成功")

	return lines, nil
}

// Name 提供者名称
func (c *LRCLibClient) Name() string {
	return "lrclib"
}
