package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"duelarena/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "duelarena",
	Short: "Top-down duel arena: peer relay and headless client",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.InitConfig(configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.AddCommand(relayCmd, playCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
