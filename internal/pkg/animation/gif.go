// Package animation 把帧序列编码为可循环播放的动图
package animation

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// FrameSource 帧来源
// gradient.Sequence 实现了该接口
type FrameSource interface {
	Len() int
	Frame(i int) *image.RGBA
}

// Options 编码选项
type Options struct {
	FrameRate   float64 // 帧率，每帧显示 1/FrameRate 秒
	LoopForever bool    // 是否无限循环
}

// DelayCentiseconds GIF 每帧延迟（1/100 秒），最小为 1
func (o Options) DelayCentiseconds() int {
	if o.FrameRate <= 0 {
		return 1
	}
	return max(1, int(math.Round(100/o.FrameRate)))
}

// loopCount GIF 的 LoopCount：0 无限循环，-1 只播放一次
func (o Options) loopCount() int {
	if o.LoopForever {
		return 0
	}
	return -1
}

// WriteGIF 将帧序列编码为 GIF 写入 w
func WriteGIF(w io.Writer, src FrameSource, opts Options) error {
	if src.Len() == 0 {
		return fmt.Errorf("%w: no frames to encode", errs.ErrInvalidInput)
	}

	delay := opts.DelayCentiseconds()
	anim := &gif.GIF{
		Image:     make([]*image.Paletted, 0, src.Len()),
		Delay:     make([]int, 0, src.Len()),
		Disposal:  make([]byte, 0, src.Len()),
		LoopCount: opts.loopCount(),
	}

	for i := 0; i < src.Len(); i++ {
		anim.Image = append(anim.Image, toPaletted(src.Frame(i)))
		anim.Delay = append(anim.Delay, delay)
		anim.Disposal = append(anim.Disposal, gif.DisposalNone)
	}

	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("%w: encode gif: %v", errs.ErrEncoding, err)
	}
	return nil
}

// WriteGIFFile 编码 GIF 并写入文件（先写临时文件再重命名）
func WriteGIFFile(path string, src FrameSource, opts Options) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create directory: %v", errs.ErrEncoding, err)
	}

	tmp, err := os.CreateTemp(dir, "*.gif.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", errs.ErrEncoding, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteGIF(tmp, src, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", errs.ErrEncoding, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename gif: %v", errs.ErrEncoding, err)
	}

	log.Debug().
		Str("path", path).
		Int("frames", src.Len()).
		Int("delay_cs", opts.DelayCentiseconds()).
		Msg("GIF 写入完成")

	return nil
}

// toPaletted 转换为调色板图像
// 颜色数不超过 256 时精确保留，否则用 Plan9 调色板抖动
func toPaletted(img *image.RGBA) *image.Paletted {
	bounds := img.Bounds()

	var pal color.Palette
	index := make(map[color.RGBA]uint8)
	exact := true
	for i := 0; i+3 < len(img.Pix); i += 4 {
		c := color.RGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
		if _, ok := index[c]; ok {
			continue
		}
		if len(pal) == 256 {
			exact = false
			break
		}
		index[c] = uint8(len(pal))
		pal = append(pal, c)
	}

	if !exact || len(pal) == 0 {
		out := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(out, bounds, img, bounds.Min)
		return out
	}

	out := image.NewPaletted(bounds, pal)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetColorIndex(x, y, index[img.RGBAAt(x, y)])
		}
	}
	return out
}
