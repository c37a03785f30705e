package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/timeutil"
)

// checkReport is the --json output of check.
type checkReport struct {
	Check     schedule.Result   `json:"check"`
	Reordered []domain.TourStop `json:"reordered,omitempty"`
	// After is the check of the reordered list.
	After *schedule.Result `json:"after,omitempty"`
}

// NewCheckCmd validates a stop list offline: no database, no network.
func NewCheckCmd() *cobra.Command {
	var (
		file    string
		reorder bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a JSON stop list for ordering and overlap conflicts",
		Long: `Reads a JSON array of stops (id, order, start_time, duration in hours)
and reports whether they are chronological and free of overlaps.
With --reorder the stops are also re-sequenced by start time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stops, err := readStops(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			report := checkReport{Check: schedule.CheckStopTimes(stops, nil)}
			if reorder {
				report.Reordered = schedule.ReorderChronologically(stops)
				after := schedule.CheckStopTimes(report.Reordered, nil)
				report.After = &after
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out, stops, report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `stop list to check ("-" reads stdin)`)
	cmd.Flags().BoolVar(&reorder, "reorder", false, "also re-sequence the stops by start time")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readStops(stdin io.Reader, file string) ([]domain.TourStop, error) {
	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open stop list: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var stops []domain.TourStop
	if err := json.NewDecoder(r).Decode(&stops); err != nil {
		return nil, fmt.Errorf("decode stop list: %w", err)
	}
	if len(stops) == 0 {
		return nil, errors.New("stop list is empty")
	}
	return stops, nil
}

func printReport(w io.Writer, stops []domain.TourStop, r checkReport) {
	printResult(w, r.Check)
	printStops(w, schedule.SortByOrder(stops))
	if r.After == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "reordered by start time:")
	printResult(w, *r.After)
	printStops(w, r.Reordered)
}

func printResult(w io.Writer, res schedule.Result) {
	fmt.Fprintf(w, "chronological: %s\n", yesNo(res.IsChronological))
	fmt.Fprintf(w, "overlap:       %s\n", yesNo(res.HasOverlap))
	for _, id := range res.OutOfOrder {
		fmt.Fprintf(w, "  out of order: %s\n", id)
	}
	for _, pair := range res.Overlapping {
		fmt.Fprintf(w, "  overlapping:  %s %s\n", pair[0], pair[1])
	}
}

func printStops(w io.Writer, stops []domain.TourStop) {
	for _, s := range stops {
		start := "unscheduled"
		if s.StartTime != nil {
			start = s.StartTime.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%3d  %s  %-25s %s\n", s.Order, s.ID, start, timeutil.FormatHours(s.Duration))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
