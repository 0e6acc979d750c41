package imagegen

import (
	"fmt"
	"strings"
)

const DefaultStylePrompt = "cinematic digital painting, soft light, rich colors, no text, no letters"

// PromptBuilder 歌词图片 prompt 构建器
type PromptBuilder struct {
	stylePrompt string
}

// NewPromptBuilder 创建 prompt 构建器，style 为空时使用默认风格
func NewPromptBuilder(style string) *PromptBuilder {
	if strings.TrimSpace(style) == "" {
		style = DefaultStylePrompt
	}
	return &PromptBuilder{stylePrompt: strings.TrimSpace(style)}
}

// Build 构建完整的图片 prompt
// 格式：风格描述. 歌曲描述. 歌词
func (b *PromptBuilder) Build(artist, title string, verse []string) string {
	songPart := fmt.Sprintf("An illustration for the song %q by %s", title, artist)

	var lines []string
	for _, line := range verse {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("%s. %s.", b.stylePrompt, songPart)
	}
	return fmt.Sprintf("%s. %s, depicting these lyrics: %s", b.stylePrompt, songPart, strings.Join(lines, " / "))
}
