package cmd

import (
	"github.com/spf13/cobra"

	"taskhive/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskhive configuration with an interactive wizard",
	Long:  `Runs an interactive wizard and writes a .taskhive.yml config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
