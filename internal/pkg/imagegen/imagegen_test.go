package imagegen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/errs"
)

func TestParseSize(t *testing.T) {
	Convey("解析图片尺寸", t, func() {
		p, err := ParseSize("1280x720")
		So(err, ShouldBeNil)
		So(p, ShouldResemble, Params{Width: 1280, Height: 720})
		So(p.Size(), ShouldEqual, "1280x720")

		p, err = ParseSize(" 720X1280 ")
		So(err, ShouldBeNil)
		So(p.Height, ShouldEqual, 1280)

		for _, bad := range []string{"", "1280", "ax720", "0x720", "-1x5"} {
			_, err := ParseSize(bad)
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
		}

		So(Params{}.Size(), ShouldEqual, "")
	})
}

func TestAspectRatio(t *testing.T) {
	Convey("最接近的画面比例", t, func() {
		So(AspectRatio(1920, 1080), ShouldEqual, "16:9")
		So(AspectRatio(720, 1280), ShouldEqual, "9:16")
		So(AspectRatio(512, 512), ShouldEqual, "1:1")
		So(AspectRatio(1024, 768), ShouldEqual, "4:3")
		So(AspectRatio(600, 800), ShouldEqual, "3:4")
		So(AspectRatio(0, 0), ShouldEqual, "16:9")
	})
}

func TestPromptBuilder(t *testing.T) {
	Convey("构建歌词图片 prompt", t, func() {
		b := NewPromptBuilder("watercolor")
		prompt := b.Build("Lucy Rose", "Middle of the Bed", []string{"  first line ", "", "second line"})
		So(prompt, ShouldEqual, `watercolor. An illustration for the song "Middle of the Bed" by Lucy Rose, depicting these lyrics: first line / second line`)

		Convey("没有歌词", func() {
			So(b.Build("A", "T", nil), ShouldEqual, `watercolor. An illustration for the song "T" by A.`)
		})

		Convey("默认风格", func() {
			So(NewPromptBuilder(" ").Build("A", "T", nil), ShouldStartWith, DefaultStylePrompt)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("按配置选择提供者", t, func() {
		t.Setenv("ARK_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		ctx := context.Background()

		s, err := New(ctx, config.ImageConfig{Provider: "ark", APIKey: "k"})
		So(err, ShouldBeNil)
		So(s.Name(), ShouldEqual, "ark")

		_, err = New(ctx, config.ImageConfig{Provider: "gemini"})
		So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)

		_, err = New(ctx, config.ImageConfig{Provider: "dalle", APIKey: "k"})
		So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)

		Convey("comfyui 加载工作流模板", func() {
			t.Setenv("COMFYUI_WORKFLOW_JSON", "")
			_, err := New(ctx, config.ImageConfig{Provider: "comfyui"})
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)

			path := filepath.Join(t.TempDir(), "wf.json")
			So(os.WriteFile(path, []byte(`{"6":{"class_type":"CLIPTextEncode","inputs":{"text":""}}}`), 0644), ShouldBeNil)
			s, err := New(ctx, config.ImageConfig{Provider: "comfyui", Workflow: path, BaseURL: "http://127.0.0.1:8188"})
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, "comfyui")
		})
	})
}
