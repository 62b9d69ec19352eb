package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags
var Version = "dev"

// BuildInfo contains information about the build
var BuildInfo struct {
	GitCommit string
	BuildTime string
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Args:  cobra.NoArgs,
	// Version needs no configuration
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Procurement Console")
		cmd.Println("===================")
		cmd.Printf("Version:    %s\n", Version)
		cmd.Printf("Git Commit: %s\n", BuildInfo.GitCommit)
		cmd.Printf("Built:      %s\n", BuildInfo.BuildTime)
		cmd.Printf("Go Version: %s\n", runtime.Version())
		cmd.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
