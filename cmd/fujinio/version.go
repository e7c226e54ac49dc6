package main

import (
	"fmt"

	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fujinio %s\n", version.GetVersion())
		if version.GitCommit != "" {
			fmt.Printf("git commit: %s\n", version.GitCommit)
		}
		if version.BuildTime != "" {
			fmt.Printf("build time: %s\n", version.BuildTime)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
