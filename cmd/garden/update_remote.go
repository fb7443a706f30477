package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/SmritiSatyan/garden/internal/remote"
)

var updateRemoteCmd = &cobra.Command{
	Use:   "update-remote",
	Short: "Update remote sources",
}

var updateRemoteAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Update all remote sources of the project",
	Example: `  garden update-remote all             # update all remote sources in the project
  garden update-remote all --parallel  # update all remote sources in parallel`,
	Args: cobra.NoArgs,
	RunE: runUpdateRemoteAll,
}

var (
	updateParallel bool
	updateJSON     bool
)

type updateResult struct {
	Source string `json:"source"`
	URL    string `json:"repositoryUrl"`
	Path   string `json:"path"`
	Op     string `json:"op"`
	Error  string `json:"error,omitempty"`
}

func init() {
	updateRemoteAllCmd.Flags().BoolVar(&updateParallel, "parallel", false, "update sources in parallel")
	updateRemoteAllCmd.Flags().BoolVar(&updateJSON, "json", false, "print results as JSON")
	updateRemoteCmd.AddCommand(updateRemoteAllCmd)
	rootCmd.AddCommand(updateRemoteCmd)
}

func runUpdateRemoteAll(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := loadProject()
	if err != nil {
		return err
	}

	results, err := remote.UpdateAll(ctx, p, remote.Options{
		Parallel: updateParallel,
		Limit:    globalCfg.Parallelism,
		Rate:     globalCfg.LaunchRate,
		Events:   newBus(),
	})

	if updateJSON {
		out := make([]updateResult, 0, len(results))
		for _, r := range results {
			ur := updateResult{Source: r.Source.Name, URL: r.Source.RepositoryURL, Path: r.Path, Op: string(r.Op)}
			if r.Err != nil {
				ur.Error = r.Err.Error()
			}
			out = append(out, ur)
		}
		if jerr := printJSON(out); jerr != nil {
			return jerr
		}
		return err
	}

	for _, r := range results {
		status := "OK  "
		if r.Err != nil {
			status = "FAIL"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s %s (%s)\n", status, r.Op, r.Source.Name, r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nUpdated %s\n", english.Plural(len(results), "remote source", ""))
	return err
}
