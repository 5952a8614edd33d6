package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config.toml"

func main() {
	root := &cobra.Command{
		Use:           "cadenza",
		Short:         "Local music player with playlists and a play-next queue",
		Version:       appVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to the configuration file")

	root.AddCommand(
		serveCmd(),
		scanCmd(),
		playlistsCmd(),
		configCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cadenza: %v\n", err)
		os.Exit(1)
	}
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-(no build info)"
	}

	version := bi.Main.Version
	if version == "" {
		version = "unknown-(no version)"
	}
	return version
}
