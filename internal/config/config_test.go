package config

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func validConfig() *Config {
	return &Config{
		Song: SongConfig{Artist: "Lucy Rose", Title: "Middle of the Bed", WorkDir: "out"},
		Pipeline: PipelineConfig{
			Download: true, Lyrics: true, Background: true, Render: true,
			StageTimeout: time.Minute,
		},
		Gradient: GradientConfig{
			Width: 320, Height: 180, FrameRate: 10,
			Keyframes: []string{"#000000", "#ffffff"}, SegmentDuration: 2,
		},
		Lyrics: LyricsConfig{Providers: []string{"lrclib"}},
		Video:  VideoConfig{Width: 1280, Height: 720, FPS: 24, Codec: "libx264"},
	}
}

func TestConfig_Validate(t *testing.T) {
	Convey("Config.Validate", t, func() {
		cfg := validConfig()

		Convey("合法配置", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("缺少歌曲信息", func() {
			cfg.Song.Artist = " "
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("关闭下载时需要 audio_path", func() {
			cfg.Pipeline.Download = false
			So(cfg.Validate().Error(), ShouldContainSubstring, "song.audio_path")
			cfg.Song.AudioPath = "song.mp3"
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("musixmatch 需要 api_key", func() {
			cfg.Lyrics.Providers = []string{"musixmatch", "lrclib"}
			So(cfg.Validate().Error(), ShouldContainSubstring, "lyrics.api_key")
		})

		Convey("未知歌词来源", func() {
			cfg.Lyrics.Providers = []string{"genius"}
			So(cfg.Validate().Error(), ShouldContainSubstring, "genius")
		})

		Convey("开启图片生成需要 provider 和 api_key", func() {
			cfg.Pipeline.Images = true
			cfg.Image.Provider = "dalle"
			So(cfg.Validate().Error(), ShouldContainSubstring, "unsupported image provider")

			cfg.Image.Provider = "gemini"
			So(cfg.Validate().Error(), ShouldContainSubstring, "image.api_key")
		})

		Convey("图片尺寸格式", func() {
			cfg.Pipeline.Images = true
			cfg.Image.Provider = "ark"
			cfg.Image.APIKey = "k"
			cfg.Image.Size = "1280*720"
			So(cfg.Validate().Error(), ShouldContainSubstring, "image.size")

			cfg.Image.Size = "1024X1024"
			So(cfg.Validate(), ShouldBeNil)

			cfg.Image.Size = ""
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("comfyui 需要工作流模板，不需要 api_key", func() {
			cfg.Pipeline.Images = true
			cfg.Image.Provider = "comfyui"
			So(cfg.Validate().Error(), ShouldContainSubstring, "image.workflow")

			cfg.Image.Workflow = "workflows/lyric.json"
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("渐变配置错误只在开启背景时报告", func() {
			cfg.Gradient.Keyframes = []string{"#000000"}
			So(cfg.Validate(), ShouldNotBeNil)
			cfg.Pipeline.Background = false
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("发布需要存储类型", func() {
			cfg.Pipeline.Publish = true
			So(cfg.Validate().Error(), ShouldContainSubstring, "storage.type")
		})
	})
}

func TestGradientConfig_Validate(t *testing.T) {
	Convey("GradientConfig.Validate", t, func() {
		g := GradientConfig{Width: 1, Height: 1, FrameRate: 1, TotalDuration: 3, RandomKeyframes: 3}
		So(g.Validate(), ShouldBeNil)

		g.RandomKeyframes = 1
		So(g.Validate(), ShouldNotBeNil)

		g.Keyframes = []string{"#000000", "#111111"}
		So(g.Validate(), ShouldBeNil)

		g.TotalDuration = -1
		So(g.Validate(), ShouldNotBeNil)

		Convey("未配置时长时使用默认段时长", func() {
			g.TotalDuration = 0
			So(g.Validate(), ShouldBeNil)
			seg, total := g.Durations()
			So(seg, ShouldEqual, DefaultSegmentDuration)
			So(total, ShouldEqual, 0)
		})

		Convey("只配置总时长", func() {
			g.TotalDuration = 20
			seg, total := g.Durations()
			So(seg, ShouldEqual, 0)
			So(total, ShouldEqual, 20)
		})
	})
}
