// Package cmd provides the command-line interface for unicache.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/unicache/config"
)

var envFiles []string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "unicache",
	Short: "unicache builds and exercises the unified cache model.",
	Long: `unicache builds the unified cache from UNICACHE_* settings, prints ` +
		`the packet layout, drives the cache with randomized traffic and ` +
		`summarizes recorded traces.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil,
		"dotenv files holding UNICACHE_* settings")
	rootCmd.PersistentFlags().String("mode", "",
		"build mode, production or simulation (overrides UNICACHE_MODE)")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	params, err := config.LoadEnv(
		config.DefaultParams(config.Production), envFiles...)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("mode") {
		modeName, _ := cmd.Flags().GetString("mode")

		mode, err := config.ParseBuildMode(modeName)
		if err != nil {
			return config.Config{}, err
		}

		params.Mode = mode
	}

	return config.New(params)
}
