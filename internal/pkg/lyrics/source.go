package lyrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// Provider 单个歌词来源
type Provider interface {
	FetchLyrics(ctx context.Context, artist, title string) ([]string, error)
	Name() string
}

// Chain 依次尝试多个来源，返回第一个成功的结果
type Chain struct {
	providers []Provider
}

// NewChain 创建来源链
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// FetchLyrics 依次尝试每个来源
// 全部为 ErrNotFound 时返回 ErrNotFound，否则返回合并后的错误
func (c *Chain) FetchLyrics(ctx context.Context, artist, title string) ([]string, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("%w: no lyrics provider configured", errs.ErrInvalidInput)
	}

	var failures []error
	allNotFound := true
	for _, p := range c.providers {
		lines, err := p.FetchLyrics(ctx, artist, title)
		if err == nil {
			return lines, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			allNotFound = false
		}
		log.Warn().Err(err).Str("provider", p.Name()).Msg("歌词来源失败，尝试下一个")
		failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	if allNotFound {
		return nil, fmt.Errorf("%w: no lyrics for %s - %s", errs.ErrNotFound, artist, title)
	}
	return nil, errors.Join(failures...)
}

// Name 提供者名称
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

// Cache 歌词缓存
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// CachedSource 为来源加一层缓存
// 缓存读写失败只记录日志，不影响结果
type CachedSource struct {
	next  Provider
	cache Cache
	ttl   time.Duration
}

// NewCachedSource 创建带缓存的来源
func NewCachedSource(next Provider, cache Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, cache: cache, ttl: ttl}
}

// CacheKey 歌词缓存 key
func CacheKey(artist, title string) string {
	return "lyrics:" + strings.ToLower(strings.TrimSpace(artist)) + ":" + strings.ToLower(strings.TrimSpace(title))
}

// FetchLyrics 先查缓存，未命中再请求并回写
func (s *CachedSource) FetchLyrics(ctx context.Context, artist, title string) ([]string, error) {
	key := CacheKey(artist, title)

	var cached []string
	if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
		log.Debug().Str("key", key).Msg("歌词缓存命中")
		return cached, nil
	}

	lines, err := s.next.FetchLyrics(ctx, artist, title)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, lines, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("写入歌词缓存失败")
	}
	return lines, nil
}

// Name 提供者名称
func (s *CachedSource) Name() string {
	return s.next.Name() + "+cache"
}
