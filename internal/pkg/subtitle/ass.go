package subtitle

import (
	"fmt"
	"io"
	"os"
	"strings"

	"lyricvid/internal/pkg/errs"
)

// Cue 一条字幕
type Cue struct {
	Start float64 // 秒
	End   float64 // 秒
	Text  string
}

// Style ASS 样式
type Style struct {
	PlayResX int
	PlayResY int
	Font     string
	FontSize int
	MarginV  int // 底部边距（默认: 画面高度的 1/10）
}

// DefaultStyle 默认样式
func DefaultStyle(width, height int) Style {
	return Style{
		PlayResX: width,
		PlayResY: height,
		Font:     "Arial",
		FontSize: max(16, height/16),
	}
}

func (s Style) withDefaults() Style {
	if s.PlayResX <= 0 {
		s.PlayResX = 1920
	}
	if s.PlayResY <= 0 {
		s.PlayResY = 1080
	}
	if s.Font == "" {
		s.Font = "Arial"
	}
	if s.FontSize <= 0 {
		s.FontSize = max(16, s.PlayResY/16)
	}
	if s.MarginV <= 0 {
		s.MarginV = s.PlayResY / 10
	}
	return s
}

// Generator ASS字幕生成器
type Generator struct {
	style Style
}

// NewGenerator 创建ASS字幕生成器实例
func NewGenerator(style Style) *Generator {
	return &Generator{style: style.withDefaults()}
}

// Write 写出ASS格式内容
func (g *Generator) Write(w io.Writer, cues []Cue, title string) error {
	if title == "" {
		title = "Lyrics"
	}

	s := g.style
	_, err := fmt.Fprintf(w, `[Script Info]
Title: %s
ScriptType: v4.00+
WrapStyle: 0
ScaledBorderAndShadow: yes
YCbCr Matrix: TV.601
PlayResX: %d
PlayResY: %d

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,2,2,2,40,40,%d,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, escapeText(title), s.PlayResX, s.PlayResY, s.Font, s.FontSize, s.MarginV)
	if err != nil {
		return fmt.Errorf("%w: write ass header: %v", errs.ErrEncoding, err)
	}

	for i, cue := range cues {
		if cue.End <= cue.Start {
			return fmt.Errorf("%w: cue %d ends before it starts", errs.ErrInvalidInput, i)
		}
		if _, err := fmt.Fprintf(w, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatTime(cue.Start), formatTime(cue.End), escapeText(cue.Text)); err != nil {
			return fmt.Errorf("%w: write ass event: %v", errs.ErrEncoding, err)
		}
	}
	return nil
}

// Content 生成ASS格式内容
func (g *Generator) Content(cues []Cue, title string) (string, error) {
	var b strings.Builder
	if err := g.Write(&b, cues, title); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteFile 写出ASS文件
func (g *Generator) WriteFile(path string, cues []Cue, title string) error {
	content, err := g.Content(cues, title)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", errs.ErrEncoding, path, err)
	}
	return nil
}

// escapeText 转义ASS中的覆盖标签和换行
func escapeText(text string) string {
	text = strings.NewReplacer(
		"\r\n", `\N`,
		"\n", `\N`,
		"\r", "",
		"{", `\{`,
		"}", `\}`,
	).Replace(text)
	return strings.TrimSpace(text)
}

// formatTime 将秒数转换为ASS时间格式 (H:MM:SS.CC)
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int(seconds*100 + 0.5)
	hours := cs / 360000
	minutes := (cs % 360000) / 6000
	secs := (cs % 6000) / 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, cs%100)
}
