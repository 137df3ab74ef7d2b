package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "probe version %s\n", valueOr(info.Version, "dev"))
			fmt.Fprintf(out, "Commit: %s\n", valueOr(info.Commit, "unknown"))
			fmt.Fprintf(out, "Built: %s\n", valueOr(info.BuildTime, "unknown"))
		},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
