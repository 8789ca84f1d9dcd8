package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taskhive",
	Short: "Project collaboration server with tasks, phases and team chat",
	Long: `TaskHive is a project collaboration backend. It tracks projects,
their phases and tasks, and gives every project team a real-time chat
room. A single binary serves the JSON API, the websocket chat and the
browser pages.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".taskhive.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
