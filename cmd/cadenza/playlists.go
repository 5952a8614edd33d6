package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func playlistsCmd() *cobra.Command {
	var showTracks bool

	cmd := &cobra.Command{
		Use:   "playlists",
		Short: "List stored playlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			infos := a.session.Player().Playlists()
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No playlists")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTRACKS")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\n", info.Name, info.TrackCount)
				if !showTracks {
					continue
				}
				tracks, err := a.session.Player().PlaylistTracks(info.Name)
				if err != nil {
					return err
				}
				for i, t := range tracks {
					fmt.Fprintf(tw, "  %d. %s - %s\t+%d\n", i+1, t.Artist, t.Title, t.Upvotes)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&showTracks, "tracks", "t", false, "Also list the tracks of each playlist")
	return cmd
}
