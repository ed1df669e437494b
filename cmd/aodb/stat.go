package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func statCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat",
		Short: "Print file and tree statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.open(true)
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := versionFlag(cmd, db)
			if err != nil {
				return err
			}
			st, err := db.Stats(v)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Path:\t%s\n", db.Path())
			fmt.Fprintf(w, "File size:\t%s\n", humanize.IBytes(uint64(db.FileSize())))
			fmt.Fprintf(w, "Versions:\t%s\n", humanize.Comma(int64(db.Versions())))
			fmt.Fprintf(w, "Current:\t%d\n", db.Current())
			fmt.Fprintf(w, "Version:\t%d\n", st.Version)
			fmt.Fprintf(w, "Parent:\t%d\n", st.Parent)
			fmt.Fprintf(w, "Depth:\t%d\n", st.Depth)
			fmt.Fprintf(w, "Keys:\t%s\n", humanize.Comma(int64(st.Keys)))
			fmt.Fprintf(w, "Tree height:\t%d\n", st.Height)
			fmt.Fprintf(w, "Leaf nodes:\t%s\n", humanize.Comma(int64(st.LeafNodes)))
			fmt.Fprintf(w, "Internal nodes:\t%s\n", humanize.Comma(int64(st.InternalNodes)))
			return w.Flush()
		},
	}
	cmd.Flags().String("version", "", "describe this version instead of the current one")
	return cmd
}

func checkCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the trees of a version and its ancestors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.open(true)
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := versionFlag(cmd, db)
			if err != nil {
				return err
			}
			chain, err := db.Log(v, limit)
			if err != nil {
				return err
			}
			for _, ver := range chain {
				if err := db.Check(ver); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d versions checked\n", len(chain))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "check at most this many versions")
	cmd.Flags().String("version", "", "start from this version instead of the current one")
	return cmd
}
