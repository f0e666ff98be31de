package ccmemory

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	engine "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <decision-log.md>",
	Short: "Import a markdown decision log into the graph",
	Long: `Parse a hand-kept decision log, one entry per "## YYYY-MM-DD: title"
heading, and store each entry as a decision with its logged date. Entries
that duplicate an existing decision are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		markdown, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read decision log: %w", err)
		}
		return runScoped(func(ctx context.Context, mem *engine.Client, scope types.Scope) error {
			results, err := mem.BackfillDecisionLog(ctx, scope, string(markdown))
			if err != nil {
				return err
			}
			stored, skipped := 0, 0
			for _, r := range results {
				if r.Action == types.ActionSkipped {
					skipped++
				} else {
					stored++
				}
			}
			fmt.Printf("Imported %d decisions (%d duplicates skipped)\n", stored, skipped)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
