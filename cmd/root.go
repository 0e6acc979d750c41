package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/logger"
	"lyricvid/internal/pkg/lyrics"
)

var (
	cfgFile  string
	cfg      *config.Config
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "lyricvid",
	Short: "Lyricvid - lyric video generator",
	Long: `Lyricvid turns a song (artist + title) into a lyric video:
it downloads the audio, fetches the lyrics, renders an animated color
gradient or per-verse illustrations, and composes everything with ffmpeg.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = closeLog() }()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ./configs/config.yaml)")
	flags.StringP("artist", "a", "", "song artist")
	flags.StringP("title", "t", "", "song title")
	flags.String("work-dir", "", "working directory for downloaded and generated files")
	flags.String("log-level", "", "log level (trace/debug/info/warn/error/fatal)")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("song.artist", flags.Lookup("artist"))
	_ = viper.BindPFlag("song.title", flags.Lookup("title"))
	_ = viper.BindPFlag("song.work_dir", flags.Lookup("work-dir"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
}

func initConfig() {
	// .env 中的 API Key 等（不存在时忽略）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.lyricvid")
	}

	// 环境变量设置
	viper.SetEnvPrefix("LYRICVID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Image.APIKey == "" {
		cfg.Image.APIKey = os.Getenv(imageKeyEnv[cfg.Image.Provider])
	}

	// 初始化日志
	closer, err := logger.Init(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	closeLog = closer

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stderr")
	viper.SetDefault("log.time_format", "RFC3339")

	// Song
	viper.SetDefault("song.work_dir", "./output")

	// Pipeline
	viper.SetDefault("pipeline.download", true)
	viper.SetDefault("pipeline.lyrics", true)
	viper.SetDefault("pipeline.background", true)
	viper.SetDefault("pipeline.images", false)
	viper.SetDefault("pipeline.render", true)
	viper.SetDefault("pipeline.publish", false)
	viper.SetDefault("pipeline.stage_timeout", "30m")

	// Gradient
	viper.SetDefault("gradient.width", 480)
	viper.SetDefault("gradient.height", 270)
	viper.SetDefault("gradient.frame_rate", 10)
	viper.SetDefault("gradient.random_keyframes", 5)

	// Lyrics
	// 原脚本的环境变量名作为兜底
	viper.SetDefault("lyrics.api_key", os.Getenv("MUSIXMATCH_API_KEY"))
	if os.Getenv("MUSIXMATCH_API_KEY") != "" {
		viper.SetDefault("lyrics.providers", []string{"musixmatch", "lrclib"})
	} else {
		viper.SetDefault("lyrics.providers", []string{"lrclib"})
	}
	viper.SetDefault("lyrics.lrclib_url", lyrics.DefaultLRCLibURL)
	viper.SetDefault("lyrics.retry_max", 3)
	viper.SetDefault("lyrics.timeout", "15s")
	viper.SetDefault("lyrics.cache_ttl", "168h")

	// Image
	viper.SetDefault("image.provider", "ark")
	viper.SetDefault("image.size", "1280x720")

	// Video
	viper.SetDefault("video.width", 1280)
	viper.SetDefault("video.height", 720)
	viper.SetDefault("video.fps", 25)
	viper.SetDefault("video.codec", "libx264")
	viper.SetDefault("video.font", "Arial")
	viper.SetDefault("video.font_size", 48)

	// MongoDB
	viper.SetDefault("mongo.enabled", false)
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "lyricvid")
	viper.SetDefault("mongo.max_pool_size", 10)
	viper.SetDefault("mongo.min_pool_size", 1)

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./published")
	viper.SetDefault("storage.oss.presign_expiry", 604800)
}

// imageKeyEnv 各文生图服务的 API Key 环境变量
var imageKeyEnv = map[string]string{
	"ark":    "ARK_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
