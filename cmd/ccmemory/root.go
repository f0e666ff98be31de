package ccmemory

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	flagProject string
	flagOwner   string

	rootCmd = &cobra.Command{
		Use:   "ccmemory",
		Short: "ccmemory: project-scoped context graph for coding agents",
		Long: `ccmemory maintains a per-project graph of typed facts - decisions,
corrections, insights, failed approaches - linked by provenance edges
inferred from embedding similarity. It serves session context to coding
agents and tracks how decisions build on each other over time.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ccmemory.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project the operation is scoped to")
	rootCmd.PersistentFlags().StringVar(&flagOwner, "owner", "", "caller identity for visibility and promotion")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ccmemory")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
