package youtube

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"

	"lyricvid/internal/pkg/errs"
)

// Converter 音频转码
type Converter interface {
	ConvertToMP3(ctx context.Context, inputPath, outputPath string) error
}

// Downloader 按 "歌手 - 歌名" 搜索 YouTube 并下载音轨为 MP3
type Downloader struct {
	client    youtube.Client
	ytDlpPath string
	converter Converter
}

// NewDownloader 创建下载器，ytDlpPath 为空时使用 PATH 中的 yt-dlp
func NewDownloader(ytDlpPath string, converter Converter) *Downloader {
	if ytDlpPath == "" {
		ytDlpPath = "yt-dlp"
	}
	return &Downloader{
		client:    youtube.Client{},
		ytDlpPath: ytDlpPath,
		converter: converter,
	}
}

// FetchAudio 下载歌曲音频到 dir，返回 MP3 路径
func (d *Downloader) FetchAudio(ctx context.Context, artist, title, dir string) (string, error) {
	query := Query(artist, title)
	outputPath := filepath.Join(dir, Slug(artist, title)+".mp3")

	videoID, err := d.search(ctx, query)
	if err != nil {
		return "", err
	}
	log.Info().Str("query", query).Str("video_id", videoID).Msg("找到视频")

	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("%w: get video %s: %v", errs.ErrNetwork, videoID, err)
	}

	format := PickAudioFormat(video.Formats)
	if format == nil {
		return "", fmt.Errorf("%w: no audio stream for %s", errs.ErrNotFound, videoID)
	}

	rawPath := outputPath + ".download"
	if err := d.saveStream(ctx, video, format, rawPath); err != nil {
		return "", err
	}
	defer os.Remove(rawPath)

	if err := convertMP3(ctx, d.converter, rawPath, outputPath); err != nil {
		return "", err
	}

	if err := TagMP3(outputPath, artist, title); err != nil {
		log.Warn().Err(err).Str("path", outputPath).Msg("写入 ID3 标签失败")
	}

	log.Info().
		Str("video_id", videoID).
		Str("mime", format.MimeType).
		Int("bitrate", format.Bitrate).
		Str("output", outputPath).
		Msg("音频下载完成")

	return outputPath, nil
}

func (d *Downloader) saveStream(ctx context.Context, video *youtube.Video, format *youtube.Format, path string) error {
	stream, _, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("%w: open stream: %v", errs.ErrNetwork, err)
	}
	defer stream.Close()

	return writeStream(path, stream)
}

// writeStream 写入文件，读取或关闭失败时删除残留文件
func writeStream(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errs.ErrEncoding, path, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("%w: download stream: %v", errs.ErrNetwork, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: close %s: %v", errs.ErrEncoding, path, err)
	}
	return nil
}

// partPath 转码中间文件，保留 .mp3 后缀供 ffmpeg 识别格式
func partPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, ".mp3") + ".part.mp3"
}

// convertMP3 先转码到中间文件，成功后再重命名为目标文件
// 中断或失败时不会在目标路径留下不完整的 MP3
func convertMP3(ctx context.Context, converter Converter, rawPath, outputPath string) error {
	tmp := partPath(outputPath)
	_ = os.Remove(tmp)

	if err := converter.ConvertToMP3(ctx, rawPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", errs.ErrEncoding, tmp, err)
	}
	return nil
}

// search 用 yt-dlp 取第一个搜索结果的视频 ID
func (d *Downloader) search(ctx context.Context, query string) (string, error) {
	cmd := exec.CommandContext(ctx, d.ytDlpPath, searchArgs(query)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: yt-dlp search %q: %v", errs.ErrNetwork, query, err)
	}
	id := firstLine(string(out))
	if id == "" {
		return "", fmt.Errorf("%w: no video for %q", errs.ErrNotFound, query)
	}
	return id, nil
}

func searchArgs(query string) []string {
	return []string{
		"--get-id",
		"--no-warnings",
		"--no-playlist",
		"ytsearch1:" + query,
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// PickAudioFormat 选择码率最高的纯音频格式，没有时退回任意带音轨的格式
func PickAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best, fallback *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels <= 0 {
			continue
		}
		if strings.HasPrefix(f.MimeType, "audio/") {
			if best == nil || f.Bitrate > best.Bitrate {
				best = f
			}
		} else if fallback == nil || f.Bitrate > fallback.Bitrate {
			fallback = f
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

// Query 搜索关键词
func Query(artist, title string) string {
	return strings.TrimSpace(artist) + " - " + strings.TrimSpace(title)
}

// Slug 生成文件名：小写字母数字，其余字符折叠为 "-"
func Slug(artist, title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(Query(artist, title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "song"
	}
	return slug
}
