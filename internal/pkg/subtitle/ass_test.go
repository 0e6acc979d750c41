package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"lyricvid/internal/pkg/errs"
)

func TestFormatTime(t *testing.T) {
	Convey("ASS 时间格式", t, func() {
		So(formatTime(0), ShouldEqual, "0:00:00.00")
		So(formatTime(1.5), ShouldEqual, "0:00:01.50")
		So(formatTime(59.999), ShouldEqual, "0:01:00.00")
		So(formatTime(3725.25), ShouldEqual, "1:02:05.25")
		So(formatTime(-3), ShouldEqual, "0:00:00.00")
	})
}

func TestGenerator(t *testing.T) {
	Convey("生成 ASS 内容", t, func() {
		g := NewGenerator(Style{PlayResX: 1280, PlayResY: 720, Font: "Noto Sans", FontSize: 48})
		content, err := g.Content([]Cue{
			{Start: 0, End: 2.5, Text: "First {line}"},
			{Start: 2.5, End: 5, Text: "Second\nline"},
		}, "Artist - Title")
		So(err, ShouldBeNil)

		So(content, ShouldStartWith, "[Script Info]\nTitle: Artist - Title\n")
		So(content, ShouldContainSubstring, "PlayResX: 1280\nPlayResY: 720")
		So(content, ShouldContainSubstring, "Style: Default,Noto Sans,48,")
		So(content, ShouldContainSubstring, ",72,1\n")
		So(content, ShouldContainSubstring, `Dialogue: 0,0:00:00.00,0:00:02.50,Default,,0,0,0,,First \{line\}`)
		So(content, ShouldContainSubstring, `Dialogue: 0,0:00:02.50,0:00:05.00,Default,,0,0,0,,Second\Nline`)
		So(strings.Count(content, "Dialogue:"), ShouldEqual, 2)

		Convey("没有字幕时只有头部", func() {
			content, err := g.Content(nil, "")
			So(err, ShouldBeNil)
			So(content, ShouldContainSubstring, "Title: Lyrics")
			So(content, ShouldNotContainSubstring, "Dialogue:")
		})

		Convey("结束早于开始", func() {
			_, err := g.Content([]Cue{{Start: 3, End: 3, Text: "x"}}, "")
			So(errors.Is(err, errs.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("写文件", func() {
			path := filepath.Join(t.TempDir(), "lyrics.ass")
			So(g.WriteFile(path, []Cue{{Start: 0, End: 1, Text: "hi"}}, ""), ShouldBeNil)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, ",,hi\n")
		})
	})

	Convey("默认样式", t, func() {
		s := DefaultStyle(1280, 720).withDefaults()
		So(s.FontSize, ShouldEqual, 45)
		So(s.MarginV, ShouldEqual, 72)

		s = Style{}.withDefaults()
		So(s.PlayResX, ShouldEqual, 1920)
		So(s.PlayResY, ShouldEqual, 1080)
		So(s.Font, ShouldEqual, "Arial")
	})
}
