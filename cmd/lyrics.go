package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/lyrics"
)

var lyricsCmd = &cobra.Command{
	Use:     "lyrics",
	Short:   "Fetch the lyrics of a song and print them",
	Example: `  lyricvid lyrics -a "Lucy Rose" -t "Middle of the Bed"`,
	RunE:    runLyrics,
}

func init() {
	rootCmd.AddCommand(lyricsCmd)
	lyricsCmd.Flags().Bool("verses", false, "print verse numbers")
}

func runLyrics(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if strings.TrimSpace(cfg.Song.Artist) == "" || strings.TrimSpace(cfg.Song.Title) == "" {
		return fmt.Errorf("%w: --artist and --title are required", errs.ErrInvalidInput)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cl cleanups
	defer cl.run()

	source, err := buildLyricsSource(ctx, cfg, &cl)
	if err != nil {
		return err
	}

	lines, err := source.FetchLyrics(ctx, cfg.Song.Artist, cfg.Song.Title)
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("no lyrics found for %s - %s", cfg.Song.Artist, cfg.Song.Title)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	withVerses, _ := cmd.Flags().GetBool("verses")
	if !withVerses {
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		return nil
	}
	for i, verse := range lyrics.Verses(lines) {
		fmt.Fprintf(out, "[%d]\n%s\n\n", i+1, strings.Join(verse, "\n"))
	}
	return nil
}
