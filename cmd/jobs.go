package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lyricvid/internal/model/render"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List recent render jobs recorded in MongoDB",
	Example: `  lyricvid jobs --limit 5
  lyricvid jobs 4f1c2a9e-0c1d-4c55-9a44-0e0c7bb0a1d2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.Flags().Int64("limit", 20, "number of jobs to show")
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if !cfg.Mongo.Enabled {
		return errors.New("mongo.enabled is false, no jobs are recorded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var cl cleanups
	defer cl.run()

	repo, err := connectJobs(ctx, cfg, &cl)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		job, err := repo.FindByID(ctx, args[0])
		if err != nil {
			return err
		}
		printJob(cmd, job)
		return nil
	}

	limit, _ := cmd.Flags().GetInt64("limit")
	jobs, err := repo.FindRecent(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSONG\tSTATUS\tCREATED\tDURATION\tOUTPUT")
	for _, j := range jobs {
		output := j.URL
		if output == "" {
			output = j.OutputPath
		}
		fmt.Fprintf(w, "%s\t%s - %s\t%s\t%s\t%s\t%s\n",
			j.ID, j.Artist, j.Title, j.Status,
			j.CreatedAt.Local().Format(time.DateTime), j.Duration().Round(time.Second), output)
	}
	return w.Flush()
}

func printJob(cmd *cobra.Command, job *render.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:      %s\nSong:    %s - %s\nStatus:  %s\nCreated: %s\n",
		job.ID, job.Artist, job.Title, job.Status, job.CreatedAt.Local().Format(time.DateTime))
	if job.OutputPath != "" {
		fmt.Fprintf(out, "Output:  %s\n", job.OutputPath)
	}
	if job.URL != "" {
		fmt.Fprintf(out, "URL:     %s\n", job.URL)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error:   %s\n", job.Error)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTAGE\tSTATUS\tDURATION\tERROR")
	for _, s := range job.Stages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Status, time.Duration(s.DurationMs)*time.Millisecond, s.Error)
	}
	_ = w.Flush()
}
