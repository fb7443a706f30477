package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/SmritiSatyan/garden/internal/config"
)

type checkResult struct {
	Path    string   `json:"path"`
	Name    string   `json:"name,omitempty"`
	Actions []string `json:"actions,omitempty"`
	Sources int      `json:"sources"`
	Valid   bool     `json:"valid"`
	Error   string   `json:"error,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check [project-file]",
	Short: "Validate the project file",
	Long:  "Parse and validate garden.yml. Checks the given file, or the project found from --project.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

var checkJSON bool

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := projectPath
	if len(args) > 0 {
		path = args[0]
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		if path, err = config.FindProject(path); err != nil {
			return err
		}
	}

	result := checkResult{Path: path}
	p, err := config.LoadProject(path)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Valid = true
		result.Name = p.Name
		result.Sources = len(p.Sources)
		for _, a := range p.Actions {
			result.Actions = append(result.Actions, a.Name)
		}
	}

	if checkJSON {
		if jerr := printJSON(result); jerr != nil {
			return jerr
		}
	} else if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "OK    %s (%s, %s, %s)\n", path, result.Name,
			english.Plural(len(result.Actions), "action", ""),
			english.Plural(result.Sources, "source", ""))
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "FAIL  %s\n      %v\n", path, result.Error)
	}

	if !result.Valid {
		return fmt.Errorf("project file failed validation")
	}
	return nil
}
