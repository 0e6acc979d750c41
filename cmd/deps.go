package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/config"
	"lyricvid/internal/pipeline"
	"lyricvid/internal/pkg/cache"
	"lyricvid/internal/pkg/ffmpeg"
	"lyricvid/internal/pkg/httpclient"
	"lyricvid/internal/pkg/imagegen"
	"lyricvid/internal/pkg/lyrics"
	"lyricvid/internal/pkg/mongodb"
	"lyricvid/internal/pkg/storagefactory"
	"lyricvid/internal/pkg/youtube"
	renderrepo "lyricvid/internal/repository/render"
)

// cleanups 按创建的逆序释放资源
type cleanups []func()

func (c *cleanups) add(f func()) { *c = append(*c, f) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// buildLyricsSource 按配置顺序组装歌词来源，开启 Redis 时加一层缓存
func buildLyricsSource(ctx context.Context, cfg *config.Config, cl *cleanups) (lyrics.Provider, error) {
	httpCfg := httpclient.Config{
		RetryMax: cfg.Lyrics.RetryMax,
		Timeout:  cfg.Lyrics.Timeout,
	}

	var providers []lyrics.Provider
	for _, name := range cfg.Lyrics.Providers {
		switch name {
		case "musixmatch":
			mxm, err := lyrics.NewMusixmatchClient(cfg.Lyrics.APIKey, httpclient.NewStandard(httpCfg))
			if err != nil {
				return nil, err
			}
			providers = append(providers, mxm)
		case "lrclib":
			providers = append(providers, lyrics.NewLRCLibClient(httpclient.New(httpCfg), cfg.Lyrics.LRCLibURL))
		default:
			return nil, fmt.Errorf("unsupported lyrics provider: %s", name)
		}
	}

	var source lyrics.Provider = lyrics.NewChain(providers...)
	if !cfg.Redis.Enabled {
		return source, nil
	}

	redisCache, err := cache.NewRedisCache(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis 不可用，歌词不做缓存")
		return source, nil
	}
	cl.add(func() { _ = redisCache.Close() })

	ttl := cfg.Lyrics.CacheTTL
	if ttl <= 0 {
		ttl = cache.LyricsCacheTTL
	}
	return lyrics.NewCachedSource(source, redisCache, ttl), nil
}

// connectJobs 连接 MongoDB 并返回任务仓库
func connectJobs(ctx context.Context, cfg *config.Config, cl *cleanups) (*renderrepo.JobRepo, error) {
	client, err := mongodb.New(ctx, &cfg.Mongo)
	if err != nil {
		return nil, err
	}
	cl.add(func() { _ = client.Close(context.Background()) })

	if err := mongodb.EnsureIndexes(ctx, client.Database()); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return renderrepo.NewJobRepo(client.Database()), nil
}

// buildDeps 为已启用的阶段创建依赖
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, func(), error) {
	var cl cleanups
	var deps pipeline.Deps

	fail := func(err error) (pipeline.Deps, func(), error) {
		cl.run()
		return pipeline.Deps{}, func() {}, err
	}

	ff := ffmpeg.NewClient(cfg.Tools)
	deps.Compositor = ff
	deps.Prober = ff

	if cfg.Pipeline.Download {
		deps.Audio = youtube.NewDownloader(cfg.Tools.YtDlp, ff)
	}

	if cfg.Pipeline.Lyrics {
		source, err := buildLyricsSource(ctx, cfg, &cl)
		if err != nil {
			return fail(err)
		}
		deps.Lyrics = source
	}

	if cfg.Pipeline.Images {
		synth, err := imagegen.New(ctx, cfg.Image)
		if err != nil {
			return fail(err)
		}
		deps.Images = synth
	}

	if cfg.Pipeline.Publish {
		store, err := storagefactory.NewStorage(ctx, &cfg.Storage)
		if err != nil {
			return fail(err)
		}
		deps.Storage = store
	}

	if cfg.Mongo.Enabled {
		repo, err := connectJobs(ctx, cfg, &cl)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return fail(err)
			}
			log.Warn().Err(err).Msg("MongoDB 不可用，不记录渲染任务")
		} else {
			deps.Jobs = repo
		}
	}

	return deps, cl.run, nil
}
