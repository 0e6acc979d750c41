package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Song     SongConfig     `mapstructure:"song"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Gradient GradientConfig `mapstructure:"gradient"`
	Lyrics   LyricsConfig   `mapstructure:"lyrics"`
	Image    ImageConfig    `mapstructure:"image"`
	Video    VideoConfig    `mapstructure:"video"`
	Tools    ToolsConfig    `mapstructure:"tools"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// SongConfig 歌曲配置
type SongConfig struct {
	Artist    string `mapstructure:"artist"`     // 歌手
	Title     string `mapstructure:"title"`      // 歌名
	AudioPath string `mapstructure:"audio_path"` // 已有音频文件（关闭下载阶段时必需）
	WorkDir   string `mapstructure:"work_dir"`   // 工作目录，每首歌一个子目录
	Output    string `mapstructure:"output"`     // 输出视频路径（默认: <work_dir>/<slug>/<slug>.mp4）
}

// PipelineConfig 流水线阶段开关
type PipelineConfig struct {
	Download     bool          `mapstructure:"download"`      // 下载音频
	Lyrics       bool          `mapstructure:"lyrics"`        // 获取歌词
	Background   bool          `mapstructure:"background"`    // 生成渐变背景
	Images       bool          `mapstructure:"images"`        // 为每段歌词生成图片
	Render       bool          `mapstructure:"render"`        // 合成视频
	Publish      bool          `mapstructure:"publish"`       // 上传到存储
	StageTimeout time.Duration `mapstructure:"stage_timeout"` // 单个阶段超时
}

// GradientConfig 渐变背景配置
type GradientConfig struct {
	Width           int      `mapstructure:"width"`            // 宽度（像素）
	Height          int      `mapstructure:"height"`           // 高度（像素）
	FrameRate       float64  `mapstructure:"frame_rate"`       // 帧率
	Keyframes       []string `mapstructure:"keyframes"`        // 关键帧颜色：#rrggbb 或 r,g,b
	RandomKeyframes int      `mapstructure:"random_keyframes"` // Keyframes 为空时随机生成的关键帧数
	Seed            int64    `mapstructure:"seed"`             // 随机种子（0 表示使用当前时间）
	SegmentDuration float64  `mapstructure:"segment_duration"` // 相邻关键帧过渡时长（秒）
	TotalDuration   float64  `mapstructure:"total_duration"`   // 总过渡时长（秒）
}

// LyricsConfig 歌词服务配置
type LyricsConfig struct {
	Providers []string      `mapstructure:"providers"` // 按顺序尝试：musixmatch, lrclib
	APIKey    string        `mapstructure:"api_key"`   // Musixmatch API Key
	LRCLibURL string        `mapstructure:"lrclib_url"`
	RetryMax  int           `mapstructure:"retry_max"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"` // Redis 缓存时间（redis.enabled 时生效）
}

// ImageConfig 图片生成配置
type ImageConfig struct {
	Provider    string `mapstructure:"provider"` // ark, gemini, comfyui
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"` // comfyui 时为服务地址
	Model       string `mapstructure:"model"`
	Size        string `mapstructure:"size"`         // 如 1280x720
	StylePrompt string `mapstructure:"style_prompt"` // 追加到每段歌词前的风格描述
	Watermark   bool   `mapstructure:"watermark"`
	Workflow    string `mapstructure:"workflow"` // comfyui 工作流 JSON 模板路径
}

// VideoConfig 视频合成配置
type VideoConfig struct {
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	FPS      int    `mapstructure:"fps"`
	Codec    string `mapstructure:"codec"` // libx264 等
	Font     string `mapstructure:"font"`
	FontSize int    `mapstructure:"font_size"`
}

// ToolsConfig 外部可执行文件路径
type ToolsConfig struct {
	FFmpeg  string `mapstructure:"ffmpeg"`
	FFprobe string `mapstructure:"ffprobe"`
	YtDlp   string `mapstructure:"yt_dlp"`
}

// MongoConfig MongoDB 配置（用于记录渲染任务）
type MongoConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置（用于缓存歌词）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"` // 基础路径
	BaseURL  string `mapstructure:"base_url"`  // 基础URL（用于生成访问URL）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Song.Artist) == "" || strings.TrimSpace(c.Song.Title) == "" {
		errs = append(errs, errors.New("song.artist and song.title are required"))
	}
	if c.Song.WorkDir == "" {
		errs = append(errs, errors.New("song.work_dir is required"))
	}
	if !c.Pipeline.Download && c.Pipeline.Render && c.Song.AudioPath == "" {
		errs = append(errs, errors.New("song.audio_path is required when pipeline.download is disabled"))
	}

	if err := c.Gradient.Validate(); err != nil && c.Pipeline.Background {
		errs = append(errs, err)
	}

	if c.Pipeline.Lyrics {
		for _, p := range c.Lyrics.Providers {
			switch p {
			case "musixmatch":
				if c.Lyrics.APIKey == "" {
					errs = append(errs, errors.New("lyrics.api_key is required for musixmatch"))
				}
			case "lrclib":
			default:
				errs = append(errs, fmt.Errorf("unsupported lyrics provider: %s", p))
			}
		}
		if len(c.Lyrics.Providers) == 0 {
			errs = append(errs, errors.New("lyrics.providers must not be empty"))
		}
	}

	if c.Pipeline.Images {
		switch c.Image.Provider {
		case "ark", "gemini":
			if c.Image.APIKey == "" {
				errs = append(errs, errors.New("image.api_key is required when pipeline.images is enabled"))
			}
		case "comfyui":
			if c.Image.Workflow == "" {
				errs = append(errs, errors.New("image.workflow is required for comfyui"))
			}
		default:
			errs = append(errs, fmt.Errorf("unsupported image provider: %s", c.Image.Provider))
		}
		if c.Image.Size != "" && !validSize(c.Image.Size) {
			errs = append(errs, fmt.Errorf("image.size must be WIDTHxHEIGHT, got %q", c.Image.Size))
		}
	}

	if c.Pipeline.Render {
		if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.FPS <= 0 {
			errs = append(errs, errors.New("video.width, video.height and video.fps must be positive"))
		}
		if c.Video.Codec == "" {
			errs = append(errs, errors.New("video.codec is required"))
		}
	}

	if c.Pipeline.Publish && c.Storage.Type == "" {
		errs = append(errs, errors.New("storage.type is required when pipeline.publish is enabled"))
	}

	return errors.Join(errs...)
}

// validSize 检查 "WxH" 格式的尺寸
func validSize(size string) bool {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
	if !ok {
		return false
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	return err1 == nil && err2 == nil && width > 0 && height > 0
}

// DefaultSegmentDuration 段时长和总时长都未配置时的段时长（秒）
const DefaultSegmentDuration = 4.0

// Durations 返回段时长和总时长，两者都未配置时使用 DefaultSegmentDuration
func (g *GradientConfig) Durations() (segment, total float64) {
	if g.SegmentDuration <= 0 && g.TotalDuration <= 0 {
		return DefaultSegmentDuration, 0
	}
	return g.SegmentDuration, g.TotalDuration
}

// Validate 验证渐变配置
func (g *GradientConfig) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return errors.New("gradient.width and gradient.height must be positive")
	}
	if g.FrameRate <= 0 {
		return errors.New("gradient.frame_rate must be positive")
	}
	if g.SegmentDuration < 0 || g.TotalDuration < 0 {
		return errors.New("gradient.segment_duration and gradient.total_duration must not be negative")
	}
	if len(g.Keyframes) == 1 || (len(g.Keyframes) == 0 && g.RandomKeyframes < 2) {
		return errors.New("gradient needs at least 2 keyframes (gradient.keyframes or gradient.random_keyframes)")
	}
	return nil
}
