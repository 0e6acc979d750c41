package lyrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	mxm "github.com/milindmadhukar/go-musixmatch"
	"github.com/milindmadhukar/go-musixmatch/params"
	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// MusixmatchClient Musixmatch 歌词客户端
// 使用 matcher.lyrics.get 接口按歌手+歌名匹配
type MusixmatchClient struct {
	client *mxm.Client
}

// NewMusixmatchClient 创建 Musixmatch 客户端
// httpClient 为 nil 时使用 http.DefaultClient
func NewMusixmatchClient(apiKey string, httpClient *http.Client) (*MusixmatchClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: musixmatch api key is required", errs.ErrInvalidInput)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MusixmatchClient{client: mxm.New(apiKey, httpClient)}, nil
}

// FetchLyrics 获取歌词并切分为行
func (c *MusixmatchClient) FetchLyrics(ctx context.Context, artist, title string) ([]string, error) {
	result, err := c.client.GetMatcherLyrics(ctx,
		params.QueryTrack(title),
		params.QueryArtist(artist),
	)
	if err != nil {
		if isNotFoundMessage(err.Error()) {
			return nil, fmt.Errorf("%w: musixmatch has no lyrics for %s - %s", errs.ErrNotFound, artist, title)
		}
		return nil, fmt.Errorf("%w: musixmatch: %v", errs.ErrNetwork, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: musixmatch returned empty lyrics for %s - %s", errs.ErrNotFound, artist, title)
	}

	lines := SplitLines(result.Body)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: musixmatch returned empty lyrics for %s - %s", errs.ErrNotFound, artist, title)
	}

	log.Info().
		Str("artist", artist).
		Str("title", title).
		Int("lines", len(lines)).
		Msg("Musixmatch 歌词获取成功")

	return lines, nil
}

// Name 提供者名称
func (c *MusixmatchClient) Name() string {
	return "musixmatch"
}

// isNotFoundMessage Musixmatch 在 404 时只返回状态码文本
func isNotFoundMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}
