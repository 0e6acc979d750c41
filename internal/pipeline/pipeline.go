package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/config"
	"lyricvid/internal/model/render"
	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/ffmpeg"
	"lyricvid/internal/pkg/id"
	"lyricvid/internal/pkg/imagegen"
	"lyricvid/internal/pkg/lyrics"
	"lyricvid/internal/pkg/storage"
	"lyricvid/internal/pkg/subtitle"
)

const (
	LyricsFile     = "lyrics.txt"
	SubtitleFile   = "lyrics.ass"
	BackgroundFile = "background.gif"
)

// VerseImageFile 第 i 段（从 0 开始）歌词的图片文件名
func VerseImageFile(i int) string {
	return fmt.Sprintf("verse_%02d.png", i+1)
}

// Result 一次运行的产物
type Result struct {
	JobID          string
	Dir            string
	AudioPath      string
	Lines          []string
	BackgroundPath string
	ImagePaths     []string
	SubtitlePath   string
	OutputPath     string
	URL            string
	Stages         []render.StageRecord
}

// Pipeline 歌词视频流水线
// 阶段按固定顺序串行执行，每个阶段由配置开关控制
type Pipeline struct {
	cfg  *config.Config
	deps Deps
}

// New 创建流水线，检查已启用阶段所需的依赖
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	var missing []string
	if cfg.Pipeline.Download && deps.Audio == nil {
		missing = append(missing, "audio source")
	}
	if cfg.Pipeline.Lyrics && deps.Lyrics == nil {
		missing = append(missing, "lyrics source")
	}
	if cfg.Pipeline.Images && deps.Images == nil {
		missing = append(missing, "image synthesizer")
	}
	if cfg.Pipeline.Render && (deps.Compositor == nil || deps.Prober == nil) {
		missing = append(missing, "compositor")
	}
	if cfg.Pipeline.Publish && deps.Storage == nil {
		missing = append(missing, "storage")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", errs.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

type stageFunc func(ctx context.Context, song Song, res *Result) (render.StageStatus, error)

func (p *Pipeline) stage(s Stage) (bool, stageFunc) {
	switch s {
	case StageDownload:
		return true, p.download
	case StageLyrics:
		return true, p.fetchLyrics
	case StageBackground:
		return p.cfg.Pipeline.Background, p.background
	case StageImages:
		return p.cfg.Pipeline.Images, p.images
	case StageRender:
		return p.cfg.Pipeline.Render, p.renderVideo
	case StagePublish:
		return p.cfg.Pipeline.Publish, p.publish
	}
	return false, nil
}

// Run 为一首歌执行所有阶段
// 阶段失败时返回 *StageError，已完成阶段的产物保留在工作目录中
func (p *Pipeline) Run(ctx context.Context, song Song) (*Result, error) {
	dir := filepath.Join(p.cfg.Song.WorkDir, song.Slug())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create work dir: %v", errs.ErrEncoding, err)
	}

	res := &Result{Dir: dir}
	p.startJob(ctx, song, res)

	log.Info().Str("song", song.String()).Str("dir", dir).Str("job_id", res.JobID).Msg("开始生成歌词视频")

	for _, s := range Stages {
		enabled, run := p.stage(s)
		rec := render.StageRecord{Name: string(s), StartedAt: time.Now(), Status: render.StageStatusSkipped}

		var err error
		if enabled {
			rec.Status, err = p.runStage(ctx, s, run, song, res)
		}
		rec.DurationMs = time.Since(rec.StartedAt).Milliseconds()

		if err != nil {
			rec.Status = render.StageStatusFailed
			rec.Error = err.Error()
			p.recordStage(ctx, res, rec)

			stageErr := &StageError{Stage: s, Err: err}
			log.Error().Err(err).Str("stage", string(s)).Str("song", song.String()).Msg("阶段失败")
			p.finishJob(ctx, res, render.JobStatusFailed, stageErr.Error())
			return res, stageErr
		}

		p.recordStage(ctx, res, rec)
		log.Info().
			Str("stage", string(s)).
			Str("status", string(rec.Status)).
			Int64("duration_ms", rec.DurationMs).
			Msg("阶段结束")
	}

	p.finishJob(ctx, res, render.JobStatusCompleted, "")
	log.Info().Str("song", song.String()).Str("output", res.OutputPath).Str("url", res.URL).Msg("歌词视频生成完成")
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, s Stage, run stageFunc, song Song, res *Result) (render.StageStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if timeout := p.cfg.Pipeline.StageTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	log.Debug().Str("stage", string(s)).Msg("阶段开始")
	return run(ctx, song, res)
}

func (p *Pipeline) startJob(ctx context.Context, song Song, res *Result) {
	if p.deps.Jobs == nil {
		return
	}
	job := &render.Job{
		ID:     id.New(),
		Artist: song.Artist(),
		Title:  song.Title(),
		Slug:   song.Slug(),
		Status: render.JobStatusRunning,
	}
	if err := p.deps.Jobs.Create(ctx, job); err != nil {
		log.Warn().Err(err).Msg("创建任务记录失败，继续执行")
		return
	}
	res.JobID = job.ID
}

func (p *Pipeline) recordStage(ctx context.Context, res *Result, rec render.StageRecord) {
	res.Stages = append(res.Stages, rec)
	if p.deps.Jobs == nil || res.JobID == "" {
		return
	}
	if err := p.deps.Jobs.AppendStage(context.WithoutCancel(ctx), res.JobID, rec); err != nil {
		log.Warn().Err(err).Str("job_id", res.JobID).Msg("写入阶段记录失败")
	}
}

func (p *Pipeline) finishJob(ctx context.Context, res *Result, status render.JobStatus, errMsg string) {
	if p.deps.Jobs == nil || res.JobID == "" {
		return
	}
	if err := p.deps.Jobs.Finish(context.WithoutCancel(ctx), res.JobID, status, res.OutputPath, res.URL, errMsg); err != nil {
		log.Warn().Err(err).Str("job_id", res.JobID).Msg("结束任务记录失败")
	}
}

// download 下载音频；已存在则复用。关闭下载时使用 song.audio_path
func (p *Pipeline) download(ctx context.Context, song Song, res *Result) (render.StageStatus, error) {
	if !p.cfg.Pipeline.Download {
		path := p.cfg.Song.AudioPath
		if path == "" {
			if p.cfg.Pipeline.Render {
				return "", fmt.Errorf("%w: song.audio_path is required when download is disabled", errs.ErrInvalidInput)
			}
			return render.StageStatusSkipped, nil
		}
		if !fileExists(path) {
			return "", fmt.Errorf("%w: audio file %s does not exist", errs.ErrInvalidInput, path)
		}
		res.AudioPath = path
		return render.StageStatusSkipped, nil
	}

	target := filepath.Join(res.Dir, song.Slug()+".mp3")
	if fileExists(target) {
		log.Info().Str("path", target).Msg("音频已存在，跳过下载")
		res.AudioPath = target
		return render.StageStatusSkipped, nil
	}

	path, err := p.deps.Audio.FetchAudio(ctx, song.Artist(), song.Title(), res.Dir)
	if err != nil {
		return "", err
	}
	res.AudioPath = path
	return render.StageStatusCompleted, nil
}

// fetchLyrics 获取歌词并写入 lyrics.txt；找不到歌词时继续，视频不带字幕
// 关闭歌词阶段时复用工作目录中已有的 lyrics.txt
func (p *Pipeline) fetchLyrics(ctx context.Context, song Song, res *Result) (render.StageStatus, error) {
	path := filepath.Join(res.Dir, LyricsFile)
	if !p.cfg.Pipeline.Lyrics {
		data, err := os.ReadFile(path)
		if err == nil {
			res.Lines = lyrics.SplitLines(string(data))
			log.Info().Str("path", path).Msg("使用已有歌词")
		}
		return render.StageStatusSkipped, nil
	}

	lines, err := p.deps.Lyrics.FetchLyrics(ctx, song.Artist(), song.Title())
	if errors.Is(err, errs.ErrNotFound) {
		log.Warn().Err(err).Str("song", song.String()).Msg("没有找到歌词，视频将不带字幕")
		res.Lines = nil
		return render.StageStatusCompleted, nil
	}
	if err != nil {
		return "", err
	}

	res.Lines = lines
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return "", fmt.Errorf("%w: write lyrics: %v", errs.ErrEncoding, err)
	}
	log.Info().Int("lines", len(lyrics.NonEmpty(lines))).Str("path", path).Msg("歌词已保存")
	return render.StageStatusCompleted, nil
}

// background 生成渐变背景 GIF
func (p *Pipeline) background(ctx context.Context, song Song, res *Result) (render.StageStatus, error) {
	path := filepath.Join(res.Dir, BackgroundFile)
	if _, err := WriteBackground(path, p.cfg.Gradient); err != nil {
		return "", err
	}
	res.BackgroundPath = path
	return render.StageStatusCompleted, nil
}

// images 为每段歌词生成一张图片，已存在的图片不重复生成
func (p *Pipeline) images(ctx context.Context, song Song, res *Result) (render.StageStatus, error) {
	verses := lyrics.Verses(res.Lines)
	if len(verses) == 0 {
		log.Info().Msg("没有歌词，跳过图片生成")
		return render.StageStatusSkipped, nil
	}

	params := imagegen.Params{Width: p.cfg.Video.Width, Height: p.cfg.Video.Height}
	if p.cfg.Image.Size != "" {
		parsed, err := imagegen.ParseSize(p.cfg.Image.Size)
		if err != nil {
			return "", err
		}
		params = parsed
	}
	builder := imagegen.NewPromptBuilder(p.cfg.Image.StylePrompt)

	paths := make([]string, 0, len(verses))
	for i, verse := range verses {
		path := filepath.Join(res.Dir, VerseImageFile(i))
		if fileExists(path) {
			log.Debug().Str("path", path).Msg("图片已存在，跳过")
			paths = append(paths, path)
			continue
		}

		data, err := p.deps.Images.Synthesize(ctx, builder.Build(song.Artist(), song.Title(), verse), params)
		if err != nil {
			return "", fmt.Errorf("verse %d: %w", i+1, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("%w: write image: %v", errs.ErrEncoding, err)
		}
		log.Info().Int("verse", i+1).Int("total", len(verses)).Str("path", path).Msg("图片生成完成")
		paths = append(paths, path)
	}
	res.ImagePaths = paths
	return render.StageStatusCompleted, nil
}

// renderVideo 计算时间轴、写字幕、合成视频
func (p *Pipeline) renderVideo(ctx context.Context, song Song, res *Result) (render.StageStatus, error) {
	if res.AudioPath == "" {
		return "", fmt.Errorf("%w: no audio to render", errs.ErrInvalidInput)
	}

	info, err := p.deps.Prober.GetAudioInfo(ctx, res.AudioPath)
	if err != nil {
		return "", err
	}

	timeline := BuildTimeline(res.Lines, info.Duration)
	video := p.cfg.Video

	if len(timeline.Cues) > 0 {
		res.SubtitlePath = filepath.Join(res.Dir, SubtitleFile)
		gen := subtitle.NewGenerator(subtitle.Style{
			PlayResX: video.Width,
			PlayResY: video.Height,
			Font:     video.Font,
			FontSize: video.FontSize,
		})
		if err := gen.WriteFile(res.SubtitlePath, timeline.Cues, song.String()); err != nil {
			return "", err
		}
	}

	clips, err := p.clips(res, timeline, info.Duration)
	if err != nil {
		return "", err
	}

	output := p.cfg.Song.Output
	if output == "" {
		output = filepath.Join(res.Dir, song.Slug()+".mp4")
	}

	req := ffmpeg.RenderRequest{
		Clips:        clips,
		AudioPath:    res.AudioPath,
		SubtitlePath: res.SubtitlePath,
		OutputPath:   output,
		TempDir:      filepath.Join(res.Dir, "tmp"),
		Spec: ffmpeg.VideoSpec{
			Width:  video.Width,
			Height: video.Height,
			FPS:    video.FPS,
			Codec:  video.Codec,
		},
	}
	if err := p.deps.Compositor.Render(ctx, req); err != nil {
		return "", err
	}
	res.OutputPath = output
	return render.StageStatusCompleted, nil
}

// clips 每段歌词都有图片时按段落切换图片，否则循环渐变背景
func (p *Pipeline) clips(res *Result, timeline Timeline, duration float64) ([]ffmpeg.Clip, error) {
	if len(timeline.Scenes) > 0 {
		images := make([]ffmpeg.Clip, 0, len(timeline.Scenes))
		for _, scene := range timeline.Scenes {
			path := filepath.Join(res.Dir, VerseImageFile(scene.Verse))
			if !fileExists(path) {
				images = nil
				break
			}
			images = append(images, ffmpeg.Clip{Kind: ffmpeg.ClipImage, Path: path, Duration: scene.Duration})
		}
		if len(images) > 0 {
			return images, nil
		}
	}

	background := res.BackgroundPath
	if background == "" {
		background = filepath.Join(res.Dir, BackgroundFile)
	}
	if !fileExists(background) {
		return nil, fmt.Errorf("%w: no verse images or background to render", errs.ErrInvalidInput)
	}
	return []ffmpeg.Clip{{Kind: ffmpeg.ClipLoop, Path: background, Duration: duration}}, nil
}

// publish 上传成品视频
func (p *Pipeline) publish(ctx context.Context, song Song, res *Result) (render.StageStatus, error) {
	if res.OutputPath == "" {
		return "", fmt.Errorf("%w: nothing to publish", errs.ErrInvalidInput)
	}

	file, err := os.Open(res.OutputPath)
	if err != nil {
		return "", fmt.Errorf("%w: open output: %v", errs.ErrEncoding, err)
	}
	defer file.Close()

	key := storage.VideoKey(song.Slug(), res.OutputPath)
	url, err := p.deps.Storage.Upload(ctx, key, file, storage.ContentType(res.OutputPath))
	if err != nil {
		return "", err
	}
	res.URL = url
	log.Info().Str("key", key).Str("url", url).Msg("视频已发布")
	return render.StageStatusCompleted, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
