package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lyricvid/internal/pipeline"
)

var gradientCmd = &cobra.Command{
	Use:   "gradient",
	Short: "Render an animated color gradient to a GIF",
	Example: `  lyricvid gradient -o bg.gif --keyframes "#000000,#ff8800,255,255,255" --segment-duration 2
  lyricvid gradient -o bg.gif --random 6 --seed 42 --total-duration 20`,
	RunE: runGradient,
}

func init() {
	rootCmd.AddCommand(gradientCmd)

	flags := gradientCmd.Flags()
	flags.StringP("output", "o", "background.gif", "output GIF path")
	flags.StringSlice("keyframes", nil, "keyframe colors: #rrggbb, rrggbb or r,g,b (quote r,g,b values)")
	flags.Int("random", 0, "number of random keyframes when --keyframes is empty")
	flags.Int64("seed", 0, "random seed (0: time based)")
	flags.Int("width", 0, "frame width in pixels")
	flags.Int("height", 0, "frame height in pixels")
	flags.Float64("fps", 0, "frame rate")
	flags.Float64("segment-duration", 0, "seconds between two keyframes (default 4 when no duration is set)")
	flags.Float64("total-duration", 0, "seconds for the whole gradient (split over all segments)")

	_ = viper.BindPFlag("gradient.random_keyframes", flags.Lookup("random"))
	_ = viper.BindPFlag("gradient.seed", flags.Lookup("seed"))
	_ = viper.BindPFlag("gradient.width", flags.Lookup("width"))
	_ = viper.BindPFlag("gradient.height", flags.Lookup("height"))
	_ = viper.BindPFlag("gradient.frame_rate", flags.Lookup("fps"))
	_ = viper.BindPFlag("gradient.segment_duration", flags.Lookup("segment-duration"))
	_ = viper.BindPFlag("gradient.total_duration", flags.Lookup("total-duration"))
}

func runGradient(cmd *cobra.Command, args []string) error {
	gcfg := GetConfig().Gradient

	// r,g,b 形式的颜色含逗号，不能直接交给 StringSlice 拆分
	if cmd.Flags().Changed("keyframes") {
		raw, _ := cmd.Flags().GetStringSlice("keyframes")
		gcfg.Keyframes = joinRGBTriples(raw)
	}

	if err := gcfg.Validate(); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}

	seq, err := pipeline.WriteBackground(output, gcfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames, %dx%d, %s per frame\n",
		output, seq.Len(), seq.Bounds().Dx(), seq.Bounds().Dy(), seq.FrameDelay())
	return nil
}

// joinRGBTriples 把被逗号拆开的 r,g,b 重新拼回去
// 例如 ["#000000", "255", "0", "0"] -> ["#000000", "255,0,0"]
func joinRGBTriples(parts []string) []string {
	var out []string
	for i := 0; i < len(parts); i++ {
		if isDecimal(parts[i]) && i+2 < len(parts) && isDecimal(parts[i+1]) && isDecimal(parts[i+2]) {
			out = append(out, parts[i]+","+parts[i+1]+","+parts[i+2])
			i += 2
			continue
		}
		out = append(out, parts[i])
	}
	return out
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
