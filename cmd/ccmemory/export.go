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

var exportOut string

// exportDump is the YAML document written by the export command.
type exportDump struct {
	Project string        `yaml:"project"`
	Facts   []*types.Fact `yaml:"facts"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a project's facts as YAML",
	Long: `Dump every fact visible to the caller as a YAML document, newest
first. Pass --owner to apply visibility filtering, omit it to export
everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScoped(func(ctx context.Context, mem *engine.Client, scope types.Scope) error {
			facts, err := mem.Recent(ctx, scope, engine.RecentOptions{IncludeTeam: true})
			if err != nil {
				return err
			}

			dump := exportDump{Project: scope.Project, Facts: facts}
			out, err := yaml.Marshal(dump)
			if err != nil {
				return err
			}

			if exportOut == "" || exportOut == "-" {
				fmt.Fprint(os.Stdout, string(out))
				return nil
			}
			if err := os.WriteFile(exportOut, out, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Printf("Exported %d facts to %s\n", len(facts), exportOut)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
}
