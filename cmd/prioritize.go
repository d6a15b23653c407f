package cmd

import (
	"context"
	"fmt"
	"time"
)

// PrioritizeCmd scores and ranks an idea batch.
type PrioritizeCmd struct {
	Items   string `arg:"" type:"existingfile" help:"Idea batch (JSON array or CSV)"`
	Out     string `short:"o" help:"Output JSON path (default stdout)" placeholder:"PATH"`
	Limit   int    `short:"n" help:"Keep only the top N items (0 keeps all)"`
	NoStore bool   `help:"Do not record the run in the history"`
}

// Run executes the prioritize command.
func (c *PrioritizeCmd) Run(env *Env) error {
	ctx := context.Background()

	res, err := env.runner(time.Time{}).RunPriority(ctx, c.Items)
	if err != nil {
		return err
	}

	if err := env.writeJSON(c.Out, res.Top(c.Limit)); err != nil {
		return err
	}
	if c.Out != "" {
		env.success("✓ Ranked %d items to %s", len(res.Items), c.Out)
		if res.Skipped > 0 {
			env.printf("  Skipped:        %d\n", res.Skipped)
		}
	}

	run, err := res.Run(absPath(c.Items))
	if err != nil {
		return fmt.Errorf("packaging run: %w", err)
	}
	return env.saveRun(ctx, run, !c.NoStore)
}
