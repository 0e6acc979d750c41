package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lyricvid/internal/pipeline"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Generate a lyric video for a song",
	Long: `Run the full pipeline for one song: download the audio, fetch the lyrics,
generate the gradient background and verse images, render the video with
burned-in lyrics and optionally publish it to storage.`,
	Example: `  lyricvid render --artist "Lucy Rose" --title "Middle of the Bed"
  lyricvid render -a "Lucy Rose" -t "Middle of the Bed" --images --audio ./song.mp3 --download=false`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	flags := renderCmd.Flags()
	flags.String("audio", "", "use an existing audio file (with --download=false)")
	flags.StringP("output", "o", "", "output video path (default: <work-dir>/<slug>/<slug>.mp4)")
	flags.Bool("download", true, "download audio from YouTube")
	flags.Bool("lyrics", true, "fetch lyrics")
	flags.Bool("background", true, "generate the gradient background")
	flags.Bool("images", false, "generate one image per verse")
	flags.Bool("publish", false, "upload the video to storage")
	flags.Duration("stage-timeout", 0, "timeout for each stage (e.g. 10m)")

	_ = viper.BindPFlag("song.audio_path", flags.Lookup("audio"))
	_ = viper.BindPFlag("song.output", flags.Lookup("output"))
	_ = viper.BindPFlag("pipeline.download", flags.Lookup("download"))
	_ = viper.BindPFlag("pipeline.lyrics", flags.Lookup("lyrics"))
	_ = viper.BindPFlag("pipeline.background", flags.Lookup("background"))
	_ = viper.BindPFlag("pipeline.images", flags.Lookup("images"))
	_ = viper.BindPFlag("pipeline.publish", flags.Lookup("publish"))
	_ = viper.BindPFlag("pipeline.stage_timeout", flags.Lookup("stage-timeout"))
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	song, err := pipeline.NewSong(cfg.Song.Artist, cfg.Song.Title)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer cleanup()

	p, err := pipeline.New(cfg, deps)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, song)
	if err != nil {
		return err
	}

	log.Info().Str("job_id", res.JobID).Msg("done")
	if res.URL != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.URL)
	} else if res.OutputPath != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
	}
	return nil
}
