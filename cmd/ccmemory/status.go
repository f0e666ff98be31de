package ccmemory

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	engine "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph metrics for a project",
	Long: `Show fact counts, edge density, decision reuse rate, and the
cognitive coefficient for one project.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScoped(func(ctx context.Context, mem *engine.Client, scope types.Scope) error {
			m, err := mem.Metrics(ctx, scope)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(m)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, string(out))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
