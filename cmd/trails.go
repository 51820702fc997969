package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/o0olele/breadcrumbs-go/store"
)

var trailsCmd = &cobra.Command{
	Use:   "trails",
	Short: "Inspect and remove stored trails",
}

var trailsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored trail keys",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return listTrails(st, cmd.OutOrStdout())
		})
	},
}

var trailsRemoveCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove stored trails",
	Long: `Removes the trails stored under the given keys. Keys are server
identities as shown by "breadcrumbs trails ls".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return removeTrails(st, cmd.OutOrStdout(), args)
		})
	},
}

func init() {
	trailsCmd.AddCommand(trailsListCmd, trailsRemoveCmd)
}

// withStore opens the configured trail store for the duration of fn.
func withStore(fn func(*store.Store) error) error {
	storeCfg := store.DefaultConfig(cfg.Persistence.Path)
	storeCfg.InMemory = cfg.Persistence.InMemory
	storeCfg.Logger = logger
	st, err := store.Open(storeCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close trail store", zap.Error(err))
		}
	}()
	return fn(st)
}

func listTrails(st *store.Store, w io.Writer) error {
	keys, err := st.Keys()
	if err != nil {
		return err
	}
	slices.Sort(keys)
	for _, key := range keys {
		blob, err := st.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d bytes\n", key, len(blob))
	}
	return nil
}

func removeTrails(st *store.Store, w io.Writer, keys []string) error {
	for _, key := range keys {
		if _, err := st.Get(key); err != nil {
			return err
		}
		if err := st.Delete(key); err != nil {
			return err
		}
		fmt.Fprintf(w, "removed %s\n", key)
	}
	return nil
}
