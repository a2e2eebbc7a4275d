package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autobrr/contentdir/cmd"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "contentdir",
		Short: "A content directory over your torrent clients",
		Long: `A CLI application that mirrors a torrent client into a per-file content directory
and reports category and tag changes as they happen.
`,
		SilenceUsage: true,
	}

	// Parse persistent flags
	rootCmd.PersistentFlags().StringVar(&cmd.FlagConfigFolder, "config-dir", cmd.FlagConfigFolder, "Config folder")
	rootCmd.PersistentFlags().StringVarP(&cmd.FlagConfigFile, "config", "c", cmd.FlagConfigFile, "Config file")
	rootCmd.PersistentFlags().StringVarP(&cmd.FlagLogFile, "log", "l", cmd.FlagLogFile, "Log file")
	rootCmd.PersistentFlags().CountVarP(&cmd.FlagLogLevel, "verbose", "v", "Verbose level")

	rootCmd.AddCommand(cmd.WatchCommand())
	rootCmd.AddCommand(cmd.ShowCommand())
	rootCmd.AddCommand(cmd.VersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
