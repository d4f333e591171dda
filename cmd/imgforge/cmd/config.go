package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/imgforge/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(st *cliState) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and generate configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write the default configuration to imgforge.yaml or the given file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			path, err := config.GenerateDefaultConfigFile(name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if info, _ := cmd.Flags().GetBool("sources"); info {
				st.loader.PrintConfigInfo(cmd.OutOrStdout())
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return config.WriteYAML(cmd.OutOrStdout(), st.cfg)
		},
	}
	showCmd.Flags().Bool("sources", false, "also print the config file used and the search paths")

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
