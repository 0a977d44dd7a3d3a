package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/stubforge/internal/config"
	"git.home.luguber.info/inful/stubforge/internal/journal"
)

// HistoryCmd implements the 'history' command: print recent per-module build
// outcomes from the journal, newest first.
type HistoryCmd struct {
	Module string `arg:"" optional:"" help:"Limit output to one module"`
	Limit  int    `short:"n" default:"20" help:"Maximum number of entries"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	if _, err := os.Stat(journalPath(cfg)); os.IsNotExist(err) {
		fmt.Println("No build history recorded")
		return nil
	}

	j, err := journal.Open(journalPath(cfg))
	if err != nil {
		return fmt.Errorf("open build history: %w", err)
	}
	defer func() { _ = j.Close() }()

	entries, err := j.Recent(context.Background(), h.Module, h.Limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No build history recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMODULE\tOUTCOME\tVERSION\tDURATION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.Module, e.Outcome, e.Version, e.Duration)
	}
	return w.Flush()
}
