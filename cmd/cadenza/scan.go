package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <folder>...",
		Short: "Add the audio files under one or more folders to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.session.ScanFolders(args...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range added {
				fmt.Fprintf(out, "+ %s - %s\n", t.Artist, t.Title)
			}
			fmt.Fprintf(out, "Added %d tracks, library now holds %d\n", len(added), a.session.Library().Len())
			return nil
		},
	}
}
