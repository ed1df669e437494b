package main

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/aodb/internal/storage/engine"
)

// ErrNotFound is returned by get for an absent key.
var ErrNotFound = errors.New("key not found")

// versionFlag resolves --version, defaulting to the current version.
func versionFlag(cmd *cobra.Command, db *engine.DB) (engine.Version, error) {
	if !cmd.Flags().Changed("version") {
		return db.Current(), nil
	}
	raw, _ := cmd.Flags().GetString("version")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse version %q", raw)
	}
	return engine.Version(n), nil
}

func getCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open(true)
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := versionFlag(cmd, db)
			if err != nil {
				return err
			}
			val, ok, err := db.Get(v, []byte(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(ErrNotFound, "%q in version %d", args[0], v)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(val))
			return nil
		},
	}
	cmd.Flags().String("version", "", "read from this version instead of the current one")
	return cmd
}

func setCommand(a *app) *cobra.Command {
	var noCommit bool
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Bind KEY to VALUE in a new version and commit it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.write(cmd, noCommit, func(txn *engine.Txn) error {
				return txn.Set([]byte(args[0]), []byte(args[1]))
			})
		},
	}
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "create the version without committing it")
	return cmd
}

func delCommand(a *app) *cobra.Command {
	var noCommit bool
	cmd := &cobra.Command{
		Use:   "del KEY",
		Short: "Remove KEY in a new version and commit it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.write(cmd, noCommit, func(txn *engine.Txn) error {
				return txn.Del([]byte(args[0]))
			})
		},
	}
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "create the version without committing it")
	return cmd
}

// write applies fn on top of the current version and prints the resulting
// version.
func (a *app) write(cmd *cobra.Command, noCommit bool, fn func(*engine.Txn) error) error {
	db, err := a.open(false)
	if err != nil {
		return err
	}
	defer db.Close()

	txn := db.Begin()
	if err := fn(txn); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if txn.Version() == txn.Base() {
		fmt.Fprintf(out, "%d unchanged\n", txn.Version())
		return nil
	}
	if noCommit {
		fmt.Fprintf(out, "%d\n", txn.Version())
		return nil
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d committed\n", txn.Version())
	return nil
}

func scanCommand(a *app) *cobra.Command {
	var (
		from  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print records in key order",
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
			out := cmd.OutOrStdout()
			n := 0
			return db.Scan(v, []byte(from), func(r engine.Record) bool {
				fmt.Fprintf(out, "%s\t%s\n", r.Key, r.Value)
				n++
				return limit <= 0 || n < limit
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first key to print")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many records")
	cmd.Flags().String("version", "", "scan this version instead of the current one")
	return cmd
}

func currentCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the current version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.open(true)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), db.Current())
			return nil
		},
	}
}

func logCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print a version and its ancestors, newest first",
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
			out := cmd.OutOrStdout()
			for _, ver := range chain {
				parent, err := db.PreviousVersion(ver)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d\tparent %d\n", ver, parent)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many versions")
	cmd.Flags().String("version", "", "start from this version instead of the current one")
	return cmd
}
