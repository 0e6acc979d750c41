package pipeline

import (
	"lyricvid/internal/pkg/lyrics"
	"lyricvid/internal/pkg/subtitle"
)

// Scene 一段歌词对应的画面
type Scene struct {
	Verse    int // 段落序号，从 0 开始
	Start    float64
	Duration float64
	Lines    []string
}

// Timeline 字幕与画面时间轴
type Timeline struct {
	Cues   []subtitle.Cue
	Scenes []Scene
}

// BuildTimeline 把歌词均匀铺满整首歌：每行字幕时长相同，每段画面时长与行数成正比
func BuildTimeline(lines []string, duration float64) Timeline {
	verses := lyrics.Verses(lines)
	total := 0
	for _, v := range verses {
		total += len(v)
	}
	if total == 0 || duration <= 0 {
		return Timeline{}
	}

	perLine := duration / float64(total)
	tl := Timeline{
		Cues:   make([]subtitle.Cue, 0, total),
		Scenes: make([]Scene, 0, len(verses)),
	}

	n := 0
	for i, verse := range verses {
		start := float64(n) * perLine
		for _, line := range verse {
			tl.Cues = append(tl.Cues, subtitle.Cue{
				Start: float64(n) * perLine,
				End:   float64(n+1) * perLine,
				Text:  line,
			})
			n++
		}
		tl.Scenes = append(tl.Scenes, Scene{
			Verse:    i,
			Start:    start,
			Duration: float64(n)*perLine - start,
			Lines:    verse,
		})
	}
	// 消除浮点累计误差
	tl.Cues[len(tl.Cues)-1].End = duration
	last := &tl.Scenes[len(tl.Scenes)-1]
	last.Duration = duration - last.Start

	return tl
}
