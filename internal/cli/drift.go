package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/routeclient/drift"
)

func newDriftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Inspect undeclared response fields recorded by clients",
		Long: "Inspect the drift database written by clients configured with a drift store. " +
			"Each row is a response field a server returned that the route schema does not declare.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().String("db", "routeclient-drift.db", "Path to the drift database")
	cmd.PersistentFlags().String("route", "", "Restrict to one route template")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded undeclared fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, route, err := openDriftStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.List(cmd.Context(), route)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No drift recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tROUTE\tSTATUS\tKEY\tCOUNT\tLAST SEEN")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n", e.Method, e.Route, e.Status, e.Key, e.Count, e.LastSeen.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded undeclared fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, route, err := openDriftStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Clear(cmd.Context(), route)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", n)
			return nil
		},
	}

	for _, sub := range []*cobra.Command{listCmd, clearCmd} {
		sub.SetFlagErrorFunc(flagUsageError)
		cmd.AddCommand(sub)
	}
	return cmd
}

func openDriftStore(cmd *cobra.Command) (*drift.Store, string, error) {
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, "", err
	}
	route, err := cmd.Flags().GetString("route")
	if err != nil {
		return nil, "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "", newUsageError("drift: --db is required")
	}
	// Opening a missing path would create an empty database.
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", newUsageError(fmt.Sprintf("drift: database %q does not exist", path))
		}
		return nil, "", fmt.Errorf("drift: %w", err)
	}
	store, err := drift.Open(path)
	if err != nil {
		return nil, "", err
	}
	return store, strings.TrimSpace(route), nil
}
