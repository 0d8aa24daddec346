package training

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"trackrec/db"
)

// ListRuns prints the newest limit runs recorded in the ledger at path.
func ListRuns(ctx context.Context, path string, w io.Writer, limit int) error {
	store, err := db.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no training runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTRAINED AT\tDATASET\tROWS\tTREES\tDEPTH\tACCURACY\tVALID LOSS\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.4f\t%.4f\t%.1fs\n",
			run.ID, run.TrainedAt.Format("2006-01-02 15:04:05"), run.Dataset, run.Rows,
			run.Trees, run.MaxDepth, run.Accuracy, run.ValidLoss, run.Duration)
	}
	return tw.Flush()
}
