package ccmemory

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	engine "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

var purgeConfirm bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every fact and edge in a project",
	Long: `Delete all facts and edges for one project, including similarity
index entries. This is not reversible; --yes is required.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeConfirm {
			return fmt.Errorf("purge is not reversible; pass --yes to confirm")
		}
		return runScoped(func(ctx context.Context, mem *engine.Client, scope types.Scope) error {
			facts, edges, err := mem.PurgeProject(ctx, scope)
			if err != nil {
				return err
			}
			fmt.Printf("Purged project %s: %d facts, %d edges\n", scope.Project, facts, edges)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().BoolVar(&purgeConfirm, "yes", false, "confirm the purge")
}
