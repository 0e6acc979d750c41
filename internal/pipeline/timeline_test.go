package pipeline

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildTimeline(t *testing.T) {
	Convey("歌词铺满整首歌", t, func() {
		lines := []string{"a", "b", "", "c", "", "d", "e", "f"}
		tl := BuildTimeline(lines, 60)

		So(len(tl.Cues), ShouldEqual, 6)
		So(tl.Cues[0].Start, ShouldEqual, 0)
		So(tl.Cues[0].End, ShouldEqual, 10)
		So(tl.Cues[2].Text, ShouldEqual, "c")
		So(tl.Cues[5].End, ShouldEqual, 60)

		So(len(tl.Scenes), ShouldEqual, 3)
		So(tl.Scenes[0].Duration, ShouldAlmostEqual, 20, 1e-9)
		So(tl.Scenes[1].Start, ShouldAlmostEqual, 20, 1e-9)
		So(tl.Scenes[1].Duration, ShouldAlmostEqual, 10, 1e-9)
		So(tl.Scenes[2].Lines, ShouldResemble, []string{"d", "e", "f"})

		var sum float64
		for _, s := range tl.Scenes {
			sum += s.Duration
		}
		So(sum, ShouldAlmostEqual, 60, 1e-9)

		Convey("字幕首尾相接", func() {
			for i := 1; i < len(tl.Cues); i++ {
				So(tl.Cues[i].Start, ShouldAlmostEqual, tl.Cues[i-1].End, 1e-9)
			}
		})
	})

	Convey("没有歌词或时长", t, func() {
		So(BuildTimeline(nil, 60).Cues, ShouldBeEmpty)
		So(BuildTimeline([]string{"", ""}, 60).Scenes, ShouldBeEmpty)
		So(BuildTimeline([]string{"a"}, 0).Cues, ShouldBeEmpty)
	})

	Convey("不能整除的时长", t, func() {
		tl := BuildTimeline([]string{"a", "b", "c"}, 10)
		So(tl.Cues[2].End, ShouldEqual, 10)
		So(tl.Scenes[0].Duration, ShouldEqual, 10)
	})
}
