package ccmemory

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	engine "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

var (
	promoteIDs   []string
	promoteTopic string
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote developmental decisions to curated",
	Long: `Mark decisions as curated, making them visible to the whole team.
Promotion is one-way and idempotent. Without --id, every developmental
decision owned by the caller is promoted, optionally narrowed to a topic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScoped(func(ctx context.Context, mem *engine.Client, scope types.Scope) error {
			res, err := mem.Promote(ctx, scope, engine.PromoteOptions{
				IDs:   promoteIDs,
				Topic: promoteTopic,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Promoted %d decisions (%d already curated, %d not owned)\n",
				len(res.Promoted), res.AlreadyCurated, res.NotOwned)
			for _, id := range res.Promoted {
				fmt.Printf("  %s\n", id)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
	promoteCmd.Flags().StringSliceVar(&promoteIDs, "id", nil, "specific decision IDs to promote")
	promoteCmd.Flags().StringVar(&promoteTopic, "topic", "", "only promote decisions tagged with this topic")
}
