package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "retsign",
	Short: "retsign - next-return sign classifier with hyperparameter search",
	Long: `retsign fits a small 1-D convolutional classifier that predicts the sign
of the next period's return from a window of past returns. The network
architecture and training hyperparameters are chosen by a seeded random
search that maximises held-out ROC-AUC.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
