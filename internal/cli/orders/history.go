package orders

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/models"
)

type HistoryCmd struct {
	ID    string `arg:"" help:"Order id."`
	Limit int    `help:"Show only the most recent entries (0 for all)." default:"20"`
	JSON  bool   `help:"Print as JSON."`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	transitions, err := ctx.Store.GetTransitions(c.ID, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := ctx.Stdout()
	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(transitions)
	}

	if len(transitions) == 0 {
		fmt.Fprintf(out, "No history recorded for order %s.\n", c.ID)
		return nil
	}
	for _, t := range transitions {
		from, to := t.From, t.To
		if t.Kind == models.TransitionStage {
			from = models.DeliveryStage(from).Label()
			to = models.DeliveryStage(to).Label()
		}
		if from == "" {
			from = "-"
		}
		line := fmt.Sprintf("%s  %-6s %s -> %s", t.At.Local().Format("2006-01-02 15:04:05"), t.Kind, from, to)
		if t.Reason != "" {
			line += fmt.Sprintf("  (%s)", t.Reason)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
