package youtube

import (
	"fmt"

	"github.com/bogem/id3v2/v2"

	"lyricvid/internal/pkg/errs"
)

// TagMP3 写入歌手和歌名
func TagMP3(path, artist, title string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: open id3 tag: %v", errs.ErrEncoding, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetArtist(artist)
	tag.SetTitle(title)

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: save id3 tag: %v", errs.ErrEncoding, err)
	}
	return nil
}
