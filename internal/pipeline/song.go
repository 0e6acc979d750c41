package pipeline

import (
	"fmt"
	"strings"

	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/youtube"
)

// Song 歌曲，创建后不可修改
type Song struct {
	artist string
	title  string
}

// NewSong 创建歌曲
func NewSong(artist, title string) (Song, error) {
	artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
	if artist == "" || title == "" {
		return Song{}, fmt.Errorf("%w: artist and title are required", errs.ErrInvalidInput)
	}
	return Song{artist: artist, title: title}, nil
}

func (s Song) Artist() string { return s.artist }
func (s Song) Title() string  { return s.title }

// Slug 文件名前缀
func (s Song) Slug() string {
	return youtube.Slug(s.artist, s.title)
}

func (s Song) String() string {
	return youtube.Query(s.artist, s.title)
}
