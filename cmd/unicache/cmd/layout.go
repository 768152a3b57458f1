package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the derived cache geometry and the packet bit layout",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mode: %s\n", cfg.Mode())
		fmt.Fprintf(out, "cache: %d bytes, %d-way, %d sets, %d banks, %d-byte blocks\n",
			cfg.CacheSize(), cfg.Associativity(), cfg.NumSets(),
			cfg.NumBanks(), cfg.BlockSize())
		fmt.Fprintf(out, "address: tag %d, index %d, offset %d bits\n",
			cfg.TagBits(), cfg.IndexBits(), cfg.OffsetBits())

		if err := cfg.WriteLayout(out); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)
}
