package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/database"
	"github.com/nao1215/bizscout/internal/model"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is how many runs are listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command reads the runs and matches recorded by previous scans.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous runs and their matches",
		Long: `History lists the runs recorded by 'bizscout scan'.

Matches are recorded as soon as they are found, so a run that was killed
halfway still shows everything it found before it stopped.

Examples:
  # List the 20 most recent runs
  bizscout history

  # Show the matches of one run
  bizscout history 1b4e28ba-2fa1-11d2-883f-0016d3cca427

  # Export the matches of a run as a spreadsheet
  bizscout history 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --export run.xlsx

  # Output in JSON format
  bizscout history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().StringP("export", "x", "",
		"Write the run's matches to this artifact path (format from extension)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	export, err := cmd.Flags().GetString("export")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	if export != "" && len(args) == 0 {
		return errors.New("--export requires a run ID (use 'bizscout history' to list runs)")
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no history found (run 'bizscout scan' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, runs)
		}
		return printRuns(out, runs)
	}

	run, err := db.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	matches, err := db.GetRunMatches(ctx, run.ID)
	if err != nil {
		return err
	}

	if export != "" {
		format := (&config.Config{OutputFile: export}).ArtifactFormat()
		if err := writeReports([]*model.CrawlResult{runResult(run, matches)}, reportTarget{path: export, format: format}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d matches to %s\n", len(matches), export)
		return nil
	}

	if asJSON {
		return writeJSON(out, struct {
			Run     *database.Run       `json:"run"`
			Matches []model.MatchRecord `json:"matches"`
		}{run, matches})
	}
	return printRun(out, run, matches)
}

// runResult rebuilds a crawl result from a stored run.
func runResult(run *database.Run, matches []model.MatchRecord) *model.CrawlResult {
	res := model.NewCrawlResult(run.SearchURL, run.MaxPages)
	res.StartedAt = run.StartedAt
	res.FinishedAt = run.FinishedAt
	res.Termination = run.Termination
	res.Stats = run.Stats
	res.Append(matches...)
	return res
}

// printRuns writes the run list as an aligned table.
func printRuns(w io.Writer, runs []*database.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tPAGES\tMATCHES\tSEARCH")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			runStatus(r),
			r.Pages, r.MaxPages,
			r.MatchCount,
			r.SearchURL,
		)
	}
	return tw.Flush()
}

// printRun writes one run with its matches.
func printRun(w io.Writer, run *database.Run, matches []model.MatchRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Search:\t%s\n", run.SearchURL)
	fmt.Fprintf(tw, "Started:\t%s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(tw, "Status:\t%s\n", runStatus(run))
	fmt.Fprintf(tw, "Pages:\t%d of %d\n", run.Pages, run.MaxPages)
	fmt.Fprintf(tw, "Matches:\t%d\n", len(matches))
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, m := range matches {
		fmt.Fprintf(w, "\n  [+] %s\n", m.Title)
		if m.Address != "" {
			fmt.Fprintf(w, "      Address: %s\n", m.Address)
		}
		fmt.Fprintf(w, "      Reason:  %s\n", m.Reason)
		fmt.Fprintf(w, "      URL:     %s\n", m.URL)
	}
	return nil
}

// runStatus describes a run for display.
func runStatus(r *database.Run) string {
	if !r.Finished() {
		return "incomplete"
	}
	return string(r.Termination)
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
