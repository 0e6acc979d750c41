package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"lyricvid/internal/config"
	"lyricvid/internal/model/render"
	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/ffmpeg"
	"lyricvid/internal/pkg/imagegen"
	"lyricvid/internal/pkg/youtube"
)

type fakeAudio struct {
	calls int
	err   error
}

func (f *fakeAudio) FetchAudio(ctx context.Context, artist, title, dir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, youtube.Slug(artist, title)+".mp3")
	return path, os.WriteFile(path, []byte("mp3"), 0644)
}

type fakeLyrics struct {
	lines []string
	err   error
	block bool
}

func (f *fakeLyrics) FetchLyrics(ctx context.Context, artist, title string) ([]string, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.lines, f.err
}

type fakeImages struct {
	prompts []string
	params  imagegen.Params
}

func (f *fakeImages) Synthesize(ctx context.Context, prompt string, p imagegen.Params) ([]byte, error) {
	f.prompts = append(f.prompts, prompt)
	f.params = p
	return []byte("png"), nil
}

type fakeCompositor struct {
	duration float64
	requests []ffmpeg.RenderRequest
}

func (f *fakeCompositor) GetAudioInfo(ctx context.Context, audioPath string) (*ffmpeg.AudioInfo, error) {
	return &ffmpeg.AudioInfo{Duration: f.duration}, nil
}

func (f *fakeCompositor) Render(ctx context.Context, req ffmpeg.RenderRequest) error {
	f.requests = append(f.requests, req)
	return os.WriteFile(req.OutputPath, []byte("mp4"), 0644)
}

type fakeStorage struct {
	keys []string
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	if _, err := io.ReadAll(data); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type fakeJobs struct {
	created  *render.Job
	stages   []render.StageRecord
	status   render.JobStatus
	errMsg   string
	finished bool
}

func (f *fakeJobs) Create(ctx context.Context, job *render.Job) error {
	f.created = job
	return nil
}

func (f *fakeJobs) AppendStage(ctx context.Context, id string, rec render.StageRecord) error {
	f.stages = append(f.stages, rec)
	return nil
}

func (f *fakeJobs) Finish(ctx context.Context, id string, status render.JobStatus, outputPath, url, errMsg string) error {
	f.finished = true
	f.status = status
	f.errMsg = errMsg
	return nil
}

func testConfig(workDir string) *config.Config {
	return &config.Config{
		Song: config.SongConfig{Artist: "Lucy Rose", Title: "Middle of the Bed", WorkDir: workDir},
		Pipeline: config.PipelineConfig{
			Download: true, Lyrics: true, Background: true, Images: true, Render: true, Publish: true,
			StageTimeout: time.Minute,
		},
		Gradient: config.GradientConfig{
			Width: 8, Height: 8, FrameRate: 4,
			Keyframes:       []string{"#000000", "#ffffff", "#ff0000"},
			SegmentDuration: 0.5,
		},
		Image: config.ImageConfig{Size: "640x360", StylePrompt: "oil"},
		Video: config.VideoConfig{Width: 1280, Height: 720, FPS: 25, Codec: "libx264"},
	}
}

func stageNames(recs []render.StageRecord) []string {
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = fmt.Sprintf("%s:%s", r.Name, r.Status)
	}
	return names
}

func TestNewSong(t *testing.T) {
	Convey("歌曲", t, func() {
		s, err := NewSong(" Lucy Rose ", "Middle of the Bed")
		So(err, ShouldBeNil)
		So(s.Artist(), ShouldEqual, "Lucy Rose")
		So(s.Slug(), ShouldEqual, "lucy-rose-middle-of-the-bed")
		So(s.String(), ShouldEqual, "Lucy Rose - Middle of the Bed")

		_, err = NewSong("", "x")
		So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
	})
}

func TestPipelineRun(t *testing.T) {
	Convey("完整流水线", t, func() {
		ctx := context.Background()
		cfg := testConfig(t.TempDir())
		song, _ := NewSong(cfg.Song.Artist, cfg.Song.Title)

		audio := &fakeAudio{}
		lyricsSrc := &fakeLyrics{lines: []string{"one", "two", "", "three", "", "four", "five", "six"}}
		images := &fakeImages{}
		comp := &fakeCompositor{duration: 60}
		store := &fakeStorage{}
		jobs := &fakeJobs{}

		p, err := New(cfg, Deps{
			Audio: audio, Lyrics: lyricsSrc, Images: images,
			Compositor: comp, Prober: comp, Storage: store, Jobs: jobs,
		})
		So(err, ShouldBeNil)

		res, err := p.Run(ctx, song)
		So(err, ShouldBeNil)

		Convey("阶段按顺序执行", func() {
			So(stageNames(res.Stages), ShouldResemble, []string{
				"download:completed", "lyrics:completed", "background:completed",
				"images:completed", "render:completed", "publish:completed",
			})
		})

		Convey("产物写入工作目录", func() {
			So(res.Dir, ShouldEqual, filepath.Join(cfg.Song.WorkDir, "lucy-rose-middle-of-the-bed"))
			So(fileExists(filepath.Join(res.Dir, LyricsFile)), ShouldBeTrue)
			So(fileExists(filepath.Join(res.Dir, BackgroundFile)), ShouldBeTrue)
			So(fileExists(filepath.Join(res.Dir, SubtitleFile)), ShouldBeTrue)
			So(res.ImagePaths, ShouldHaveLength, 3)
			So(filepath.Base(res.ImagePaths[2]), ShouldEqual, "verse_03.png")
			So(images.params, ShouldResemble, imagegen.Params{Width: 640, Height: 360})
			So(images.prompts[0], ShouldContainSubstring, "one / two")
		})

		Convey("按段落切换图片", func() {
			So(comp.requests, ShouldHaveLength, 1)
			req := comp.requests[0]
			So(req.Clips, ShouldHaveLength, 3)
			So(req.Clips[0].Kind, ShouldEqual, ffmpeg.ClipImage)
			So(req.Clips[0].Duration, ShouldAlmostEqual, 20, 1e-9)
			So(req.Clips[1].Duration, ShouldAlmostEqual, 10, 1e-9)
			So(req.Clips[2].Duration, ShouldAlmostEqual, 30, 1e-9)
			So(req.AudioPath, ShouldEqual, filepath.Join(res.Dir, song.Slug()+".mp3"))
			So(req.SubtitlePath, ShouldEqual, res.SubtitlePath)
			So(req.Spec, ShouldResemble, ffmpeg.VideoSpec{Width: 1280, Height: 720, FPS: 25, Codec: "libx264"})
		})

		Convey("发布并记录任务", func() {
			So(store.keys, ShouldResemble, []string{"videos/lucy-rose-middle-of-the-bed/lucy-rose-middle-of-the-bed.mp4"})
			So(res.URL, ShouldStartWith, "https://cdn.example.com/videos/")
			So(jobs.created.Slug, ShouldEqual, song.Slug())
			So(res.JobID, ShouldEqual, jobs.created.ID)
			So(jobs.stages, ShouldHaveLength, 6)
			So(jobs.status, ShouldEqual, render.JobStatusCompleted)
		})

		Convey("再次运行复用已有产物", func() {
			_, err := p.Run(ctx, song)
			So(err, ShouldBeNil)
			So(audio.calls, ShouldEqual, 1)
			So(images.prompts, ShouldHaveLength, 3)
		})
	})
}

func TestPipelineLyricsNotFound(t *testing.T) {
	Convey("没有歌词时使用渐变背景且不带字幕", t, func() {
		cfg := testConfig(t.TempDir())
		song, _ := NewSong(cfg.Song.Artist, cfg.Song.Title)
		comp := &fakeCompositor{duration: 42}
		images := &fakeImages{}

		p, err := New(cfg, Deps{
			Audio:      &fakeAudio{},
			Lyrics:     &fakeLyrics{err: fmt.Errorf("%w: none", errs.ErrNotFound)},
			Images:     images,
			Compositor: comp, Prober: comp, Storage: &fakeStorage{},
		})
		So(err, ShouldBeNil)

		res, err := p.Run(context.Background(), song)
		So(err, ShouldBeNil)
		So(stageNames(res.Stages)[3], ShouldEqual, "images:skipped")
		So(images.prompts, ShouldBeEmpty)
		So(res.SubtitlePath, ShouldBeEmpty)

		req := comp.requests[0]
		So(req.Clips, ShouldResemble, []ffmpeg.Clip{{Kind: ffmpeg.ClipLoop, Path: filepath.Join(res.Dir, BackgroundFile), Duration: 42}})
		So(req.SubtitlePath, ShouldBeEmpty)
	})
}

func TestPipelineFailures(t *testing.T) {
	Convey("阶段失败", t, func() {
		ctx := context.Background()
		cfg := testConfig(t.TempDir())
		song, _ := NewSong(cfg.Song.Artist, cfg.Song.Title)
		comp := &fakeCompositor{duration: 10}
		jobs := &fakeJobs{}

		Convey("歌词网络错误中止流水线", func() {
			p, err := New(cfg, Deps{
				Audio:      &fakeAudio{},
				Lyrics:     &fakeLyrics{err: fmt.Errorf("%w: timeout", errs.ErrNetwork)},
				Images:     &fakeImages{},
				Compositor: comp, Prober: comp, Storage: &fakeStorage{}, Jobs: jobs,
			})
			So(err, ShouldBeNil)

			res, err := p.Run(ctx, song)
			var stageErr *StageError
			So(errors.As(err, &stageErr), ShouldBeTrue)
			So(stageErr.Stage, ShouldEqual, StageLyrics)
			So(errors.Is(err, errs.ErrNetwork), ShouldBeTrue)
			So(comp.requests, ShouldBeEmpty)
			So(stageNames(res.Stages), ShouldResemble, []string{"download:completed", "lyrics:failed"})
			So(jobs.status, ShouldEqual, render.JobStatusFailed)
			So(jobs.errMsg, ShouldContainSubstring, "stage lyrics")
		})

		Convey("下载失败", func() {
			p, _ := New(cfg, Deps{
				Audio:      &fakeAudio{err: fmt.Errorf("%w: no video", errs.ErrNotFound)},
				Lyrics:     &fakeLyrics{},
				Images:     &fakeImages{},
				Compositor: comp, Prober: comp, Storage: &fakeStorage{},
			})
			_, err := p.Run(ctx, song)
			var stageErr *StageError
			So(errors.As(err, &stageErr), ShouldBeTrue)
			So(stageErr.Stage, ShouldEqual, StageDownload)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("阶段超时", func() {
			cfg.Pipeline.StageTimeout = 20 * time.Millisecond
			p, _ := New(cfg, Deps{
				Audio:      &fakeAudio{},
				Lyrics:     &fakeLyrics{block: true},
				Images:     &fakeImages{},
				Compositor: comp, Prober: comp, Storage: &fakeStorage{},
			})
			_, err := p.Run(ctx, song)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})

		Convey("关闭下载但没有音频路径", func() {
			cfg.Pipeline.Download = false
			p, err := New(cfg, Deps{
				Lyrics: &fakeLyrics{}, Images: &fakeImages{},
				Compositor: comp, Prober: comp, Storage: &fakeStorage{},
			})
			So(err, ShouldBeNil)
			_, err = p.Run(ctx, song)
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("图片尺寸非法时不改用视频尺寸", func() {
			cfg.Image.Size = "large"
			images := &fakeImages{}
			p, _ := New(cfg, Deps{
				Audio:      &fakeAudio{},
				Lyrics:     &fakeLyrics{lines: []string{"one", "two"}},
				Images:     images,
				Compositor: comp, Prober: comp, Storage: &fakeStorage{},
			})
			_, err := p.Run(ctx, song)
			var stageErr *StageError
			So(errors.As(err, &stageErr), ShouldBeTrue)
			So(stageErr.Stage, ShouldEqual, StageImages)
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
			So(images.prompts, ShouldBeEmpty)
		})

		Convey("缺少依赖", func() {
			_, err := New(cfg, Deps{})
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestPipelineStageToggles(t *testing.T) {
	Convey("只生成背景", t, func() {
		cfg := testConfig(t.TempDir())
		cfg.Pipeline = config.PipelineConfig{Background: true}
		song, _ := NewSong(cfg.Song.Artist, cfg.Song.Title)

		p, err := New(cfg, Deps{})
		So(err, ShouldBeNil)
		res, err := p.Run(context.Background(), song)
		So(err, ShouldBeNil)
		So(stageNames(res.Stages), ShouldResemble, []string{
			"download:skipped", "lyrics:skipped", "background:completed",
			"images:skipped", "render:skipped", "publish:skipped",
		})
		So(fileExists(res.BackgroundPath), ShouldBeTrue)
	})

	Convey("关闭歌词阶段时复用 lyrics.txt", t, func() {
		cfg := testConfig(t.TempDir())
		cfg.Pipeline = config.PipelineConfig{Render: true}
		song, _ := NewSong(cfg.Song.Artist, cfg.Song.Title)

		dir := filepath.Join(cfg.Song.WorkDir, song.Slug())
		So(os.MkdirAll(dir, 0755), ShouldBeNil)
		audioPath := filepath.Join(dir, "song.mp3")
		So(os.WriteFile(audioPath, []byte("mp3"), 0644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, LyricsFile), []byte("a\nb\n"), 0644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, VerseImageFile(0)), []byte("png"), 0644), ShouldBeNil)
		cfg.Song.AudioPath = audioPath

		comp := &fakeCompositor{duration: 8}
		p, err := New(cfg, Deps{Compositor: comp, Prober: comp})
		So(err, ShouldBeNil)
		res, err := p.Run(context.Background(), song)
		So(err, ShouldBeNil)
		So(res.Lines, ShouldResemble, []string{"a", "b"})
		So(comp.requests[0].Clips, ShouldResemble, []ffmpeg.Clip{{Kind: ffmpeg.ClipImage, Path: filepath.Join(dir, "verse_01.png"), Duration: 8}})
		So(comp.requests[0].AudioPath, ShouldEqual, audioPath)
	})
}
