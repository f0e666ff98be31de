package ccmemory

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	engine "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

var contextIncludeTeam bool

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the session context block for a project",
	Long: `Assemble and print the markdown context block a coding agent
receives at session start: project rules, recent decisions, failed
approaches, and decisions needing review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScoped(func(ctx context.Context, mem *engine.Client, scope types.Scope) error {
			sc, err := mem.SessionContext(ctx, scope, engine.SessionContextOptions{
				IncludeTeam: contextIncludeTeam,
			})
			if err != nil {
				return err
			}
			fmt.Print(sc.Markdown())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().BoolVar(&contextIncludeTeam, "team", false, "include curated team facts")
}
