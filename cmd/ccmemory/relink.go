package ccmemory

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	engine "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

var relinkContinues bool

var relinkCmd = &cobra.Command{
	Use:   "relink",
	Short: "Rebuild all inferred provenance edges for a project",
	Long: `Delete every auto-inferred edge and rebuild the decision
provenance graph over all decisions in timestamp order. Explicitly
asserted edges are untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScoped(func(ctx context.Context, mem *engine.Client, scope types.Scope) error {
			stats, err := mem.Relink(ctx, scope, engine.RelinkOptions{Continues: relinkContinues})
			if err != nil {
				return err
			}
			fmt.Printf("Relinked %d decisions in %s: deleted %d edges, created %d (%d supersedes, %d cites, %d continues)\n",
				stats.DecisionCount, stats.Elapsed.Round(0),
				stats.EdgesDeleted, stats.EdgesCreated,
				stats.Supersedes, stats.Cites, stats.Continues)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(relinkCmd)
	relinkCmd.Flags().BoolVar(&relinkContinues, "continues", false, "also link same-topic decision threads")
}
