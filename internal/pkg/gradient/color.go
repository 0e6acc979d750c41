package gradient

import (
	"fmt"
	"image/color"
	"math/rand"
	"strconv"
	"strings"

	"lyricvid/internal/pkg/errs"
)

// RGB 关键帧颜色
type RGB struct {
	R, G, B uint8
}

// NewRGB 从整数通道值创建颜色，任一通道超出 [0,255] 返回 ErrInvalidInput
func NewRGB(r, g, b int) (RGB, error) {
	for _, v := range []int{r, g, b} {
		if v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("%w: channel value %d out of range [0,255]", errs.ErrInvalidInput, v)
		}
	}
	return RGB{R: uint8(r), G: uint8(g), B: uint8(b)}, nil
}

// RGBA 转换为不透明的 color.RGBA
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Hex 返回 #rrggbb 格式
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.R, c.G, c.B)
}

// ParseColor 解析颜色字符串
// 支持格式：
//   - "#ff8800" / "ff8800"
//   - "255,136,0"
func ParseColor(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RGB{}, fmt.Errorf("%w: empty color", errs.ErrInvalidInput)
	}

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return RGB{}, fmt.Errorf("%w: color %q needs 3 channels", errs.ErrInvalidInput, s)
		}
		var ch [3]int
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return RGB{}, fmt.Errorf("%w: color %q: %v", errs.ErrInvalidInput, s, err)
			}
			ch[i] = v
		}
		return NewRGB(ch[0], ch[1], ch[2])
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("%w: color %q is not #rrggbb", errs.ErrInvalidInput, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: color %q: %v", errs.ErrInvalidInput, s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// ParseColors 依次解析多个颜色字符串
func ParseColors(values []string) ([]RGB, error) {
	colors := make([]RGB, 0, len(values))
	for _, v := range values {
		c, err := ParseColor(v)
		if err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return colors, nil
}

// RandomRGB 生成均匀分布的随机颜色
// 随机源由调用方持有，生成器本身不引入随机性
func RandomRGB(r *rand.Rand) RGB {
	return RGB{
		R: uint8(r.Intn(256)),
		G: uint8(r.Intn(256)),
		B: uint8(r.Intn(256)),
	}
}

// RandomKeyframes 生成 n 个随机关键帧
func RandomKeyframes(r *rand.Rand, n int) []RGB {
	keyframes := make([]RGB, n)
	for i := range keyframes {
		keyframes[i] = RandomRGB(r)
	}
	return keyframes
}
