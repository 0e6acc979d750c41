package pipeline

import (
	"context"
	"io"

	"lyricvid/internal/model/render"
	"lyricvid/internal/pkg/ffmpeg"
	"lyricvid/internal/pkg/imagegen"
)

// AudioSource 按歌手和歌名获取音频，返回本地文件路径
type AudioSource interface {
	FetchAudio(ctx context.Context, artist, title, dir string) (string, error)
}

// LyricsSource 获取歌词，按行返回，空行分隔段落
type LyricsSource interface {
	FetchLyrics(ctx context.Context, artist, title string) ([]string, error)
}

// ImageSynthesizer 文生图
type ImageSynthesizer interface {
	Synthesize(ctx context.Context, prompt string, p imagegen.Params) ([]byte, error)
}

// Compositor 视频合成
type Compositor interface {
	Render(ctx context.Context, req ffmpeg.RenderRequest) error
}

// AudioProber 读取音频时长
type AudioProber interface {
	GetAudioInfo(ctx context.Context, audioPath string) (*ffmpeg.AudioInfo, error)
}

// Uploader 成品上传
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
}

// JobStore 任务记录
type JobStore interface {
	Create(ctx context.Context, job *render.Job) error
	AppendStage(ctx context.Context, id string, rec render.StageRecord) error
	Finish(ctx context.Context, id string, status render.JobStatus, outputPath, url, errMsg string) error
}

// Deps 流水线依赖，未启用阶段对应的依赖可以为空
type Deps struct {
	Audio      AudioSource
	Lyrics     LyricsSource
	Images     ImageSynthesizer
	Compositor Compositor
	Prober     AudioProber
	Storage    Uploader
	Jobs       JobStore
}
