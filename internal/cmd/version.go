package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "show detailed version information")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := version.GetInfo()
	out := cmd.OutOrStdout()

	format, _ := cmd.Flags().GetString("output")
	if format == "json" || format == "yaml" {
		return (&CommandContext{Format: format, Out: out}).Print(info)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		fmt.Fprintln(out, info.String())
		return nil
	}

	fmt.Fprintf(out, "amsab %s\n", info.Short())
	return nil
}
