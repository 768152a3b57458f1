package cmd

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/unicache/datarecording"
	"github.com/sarchlab/unicache/tracing"
)

var reportCmd = &cobra.Command{
	Use:   "report [trace.sqlite3]",
	Short: "Summarize the transaction latencies of a recorded trace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true

		if err := report(cmd, args[0]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

type latencySummary struct {
	count    int
	total    int64
	max      int64
	stepSeen map[string]int
}

func report(cmd *cobra.Command, filename string) error {
	reader, err := datarecording.NewReader(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(tracing.TaskTableName, tracing.TaskTableEntry{})

	results, _, err := reader.Query(
		context.Background(),
		tracing.TaskTableName,
		datarecording.QueryParams{OrderBy: "StartTime"},
	)
	if err != nil {
		return fmt.Errorf("query %s: %w", tracing.TaskTableName, err)
	}

	summaries := make(map[string]*latencySummary)
	for _, r := range results {
		entry := r.(*tracing.TaskTableEntry)

		s, ok := summaries[entry.What]
		if !ok {
			s = &latencySummary{stepSeen: make(map[string]int)}
			summaries[entry.What] = s
		}

		latency := entry.EndTime - entry.StartTime
		s.count++
		s.total += latency
		s.max = max(s.max, latency)
		s.stepSeen[lookupOutcome(entry.Steps)]++
	}

	whats := make([]string, 0, len(summaries))
	for what := range summaries {
		whats = append(whats, what)
	}
	sort.Strings(whats)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "type\tcount\tavg\tmax\thit\tmiss\tmerge")

	for _, what := range whats {
		s := summaries[what]
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%d\t%d\t%d\t%d\n",
			what, s.count, float64(s.total)/float64(s.count), s.max,
			s.stepSeen[tracing.StepHit],
			s.stepSeen[tracing.StepMiss],
			s.stepSeen[tracing.StepMerge])
	}

	return w.Flush()
}

// lookupOutcome returns the tag lookup outcome recorded for a task.
func lookupOutcome(steps string) string {
	recorded := strings.Split(steps, ",")
	for _, step := range []string{
		tracing.StepHit, tracing.StepMiss, tracing.StepMerge,
	} {
		if slices.Contains(recorded, step) {
			return step
		}
	}

	return ""
}
