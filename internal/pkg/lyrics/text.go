// Package lyrics 歌词获取与整理
package lyrics

import (
	"regexp"
	"strings"
)

var (
	// Musixmatch 免费接口在歌词末尾追加的版权声明
	commercialNotice = regexp.MustCompile(`(?i)^\*+\s*this lyrics is not for commercial use\s*\*+$`)
	// LRC 时间戳，如 [01:23.45]
	lrcTimestamp = regexp.MustCompile(`\[\d{1,2}:\d{2}(?:[.:]\d{1,3})?\]`)
	// Musixmatch 免费接口返回的数字追踪 id，如 (1409624012345)
	trackingID = regexp.MustCompile(`^\(\d+\)$`)
)

// SplitLines 把原始歌词文本切分为行
// 统一换行符，去掉首尾空白、版权声明和截断标记；保留单个空行作为段落分隔
func SplitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []string
	blank := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(lrcTimestamp.ReplaceAllString(line, ""))
		switch {
		case commercialNotice.MatchString(line), trackingID.MatchString(line), line == "...":
			continue
		case line == "":
			blank = len(lines) > 0
			continue
		}
		if blank {
			lines = append(lines, "")
			blank = false
		}
		lines = append(lines, line)
	}
	return lines
}

// Verses 按空行把歌词行分组为段落
func Verses(lines []string) [][]string {
	var verses [][]string
	var current []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				verses = append(verses, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		verses = append(verses, current)
	}
	return verses
}

// NonEmpty 过滤掉空行（字幕只需要有内容的行）
func NonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
