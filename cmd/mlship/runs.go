package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/mlship/mlship/internal/history"
)

func cmdRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default is $HOME/.config/mlship/config.yml)")
	limit := fs.Int("limit", defaultListLimit, "maximum number of runs to list")
	runID := fs.String("id", "", "show the stage breakdown of one run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	store, err := history.NewStore(cfg.HistoryPath, cfg.QueryTimeout)
	if err != nil {
		return errors.Wrap(err, "open run history")
	}
	defer store.Close()

	if *runID != "" {
		return printStages(store, *runID)
	}
	return printRuns(store, *limit)
}

func printRuns(store *history.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tOUTCOME\tIMAGE\tSTARTED\tDURATION\tID")
	for _, r := range runs {
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Number,
			r.Outcome,
			r.Image,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.ID,
		)
	}
	return w.Flush()
}

func printStages(store *history.Store, runID string) error {
	recs, err := store.Stages(runID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return errors.Errorf("no stages recorded for run %s", runID)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tSTAGE\tSTATUS\tDURATION\tERROR")
	for _, st := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			st.Position,
			st.Name,
			st.Status,
			st.FinishedAt.Sub(st.StartedAt).Round(time.Millisecond),
			st.Error,
		)
	}
	return w.Flush()
}
