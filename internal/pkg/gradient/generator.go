// Package gradient 生成在多个关键帧颜色之间线性过渡的纯色帧序列
//
// 生成器是纯函数：不做任何 I/O，也不持有随机源。编码为动图由 animation 包负责。
package gradient

import (
	"fmt"
	"image"
	"iter"
	"math"
	"time"

	"lyricvid/internal/pkg/errs"
)

// Params 生成参数
type Params struct {
	Width     int     // 帧宽度（像素）
	Height    int     // 帧高度（像素）
	FrameRate float64 // 帧率（fps）

	// SegmentDuration 相邻两个关键帧之间的过渡时长（秒）
	// 为 0 时使用 TotalDuration / (关键帧数-1)
	SegmentDuration float64
	TotalDuration   float64 // 整个过渡的总时长（秒）
}

// segmentDuration 返回单段时长
func (p Params) segmentDuration(keyframes int) float64 {
	if p.SegmentDuration > 0 {
		return p.SegmentDuration
	}
	return p.TotalDuration / float64(keyframes-1)
}

// Validate 校验参数
func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d must be positive", errs.ErrInvalidInput, p.Width, p.Height)
	}
	if !positive(p.FrameRate) {
		return fmt.Errorf("%w: frame rate %v must be positive", errs.ErrInvalidInput, p.FrameRate)
	}
	if !positive(p.SegmentDuration) && !positive(p.TotalDuration) {
		return fmt.Errorf("%w: segment duration or total duration must be positive", errs.ErrInvalidInput)
	}
	return nil
}

// FramesPerSegment 计算每段帧数：max(1, round(segmentDuration*frameRate))
func (p Params) FramesPerSegment(keyframes int) (int, error) {
	if keyframes < 2 {
		return 0, fmt.Errorf("%w: need at least 2 keyframes, got %d", errs.ErrInvalidInput, keyframes)
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	n := math.Round(p.segmentDuration(keyframes) * p.FrameRate)
	if math.IsInf(n, 0) || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: too many frames per segment", errs.ErrInvalidInput)
	}
	return max(1, int(n)), nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Sequence 惰性帧序列
// 帧在访问时才生成，每次访问返回新分配的图像，可重复遍历，结果完全确定
type Sequence struct {
	keyframes        []RGB
	width            int
	height           int
	frameRate        float64
	framesPerSegment int
}

// Generate 根据关键帧和参数创建帧序列
// 参数不合法时在生成任何帧之前返回 ErrInvalidInput
func Generate(keyframes []RGB, p Params) (*Sequence, error) {
	perSegment, err := p.FramesPerSegment(len(keyframes))
	if err != nil {
		return nil, err
	}

	kf := make([]RGB, len(keyframes))
	copy(kf, keyframes)

	return &Sequence{
		keyframes:        kf,
		width:            p.Width,
		height:           p.Height,
		frameRate:        p.FrameRate,
		framesPerSegment: perSegment,
	}, nil
}

// Len 帧总数：framesPerSegment*(关键帧数-1)+1
func (s *Sequence) Len() int {
	return s.framesPerSegment*(len(s.keyframes)-1) + 1
}

// FramesPerSegment 每段帧数
func (s *Sequence) FramesPerSegment() int {
	return s.framesPerSegment
}

// Bounds 帧尺寸
func (s *Sequence) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// FrameDelay 每帧显示时长（1/frameRate）
func (s *Sequence) FrameDelay() time.Duration {
	return time.Duration(float64(time.Second) / s.frameRate)
}

// FrameRate 帧率
func (s *Sequence) FrameRate() float64 {
	return s.frameRate
}

// ColorAt 第 i 帧的颜色，i 超出范围时 panic
func (s *Sequence) ColorAt(i int) RGB {
	if i < 0 || i >= s.Len() {
		panic(fmt.Sprintf("gradient: frame index %d out of range [0,%d)", i, s.Len()))
	}
	if i == s.Len()-1 {
		return s.keyframes[len(s.keyframes)-1]
	}

	seg, step := i/s.framesPerSegment, i%s.framesPerSegment
	start, end := s.keyframes[seg], s.keyframes[seg+1]
	t := float64(step) / float64(s.framesPerSegment)

	return RGB{
		R: lerp(start.R, end.R, t),
		G: lerp(start.G, end.G, t),
		B: lerp(start.B, end.B, t),
	}
}

// lerp start + floor((end-start)*t)，结果截断到 [0,255]
func lerp(start, end uint8, t float64) uint8 {
	v := float64(start) + math.Floor(float64(int(end)-int(start))*t)
	return uint8(min(255, max(0, v)))
}

// Colors 返回所有帧的颜色
func (s *Sequence) Colors() []RGB {
	colors := make([]RGB, s.Len())
	for i := range colors {
		colors[i] = s.ColorAt(i)
	}
	return colors
}

// Frame 生成第 i 帧
func (s *Sequence) Frame(i int) *image.RGBA {
	return fill(s.Bounds(), s.ColorAt(i))
}

// Frames 按顺序遍历所有帧
func (s *Sequence) Frames() iter.Seq2[int, *image.RGBA] {
	return func(yield func(int, *image.RGBA) bool) {
		for i := 0; i < s.Len(); i++ {
			if !yield(i, s.Frame(i)) {
				return
			}
		}
	}
}

func fill(rect image.Rectangle, c RGB) *image.RGBA {
	img := image.NewRGBA(rect)
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = 0xff
	}
	return img
}
