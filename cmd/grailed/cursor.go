package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"grailed/internal/validate"
)

func newCursorCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or move a crawl cursor",
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfg.Entity, "entity", a.cfg.Entity, "crawl the cursor belongs to (listings or users)")
	flags.StringVar(&a.cfg.CursorBackend, "cursor-backend", a.cfg.CursorBackend, "where the cursor lives (file or db)")
	flags.StringVar(&a.cfg.CursorFile, "cursor-file", a.cfg.CursorFile, "cursor file for the file backend")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the next id the crawl will fetch",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			entity, ok := validate.Entity(a.cfg.Entity)
			if !ok {
				return fmt.Errorf("unknown entity %q", a.cfg.Entity)
			}
			cur, err := a.cursor(entity)
			if err != nil {
				return err
			}
			next, err := cur.Load(c.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), next)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Reposition the crawl so it fetches id next",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			entity, ok := validate.Entity(a.cfg.Entity)
			if !ok {
				return fmt.Errorf("unknown entity %q", a.cfg.Entity)
			}
			next, ok := validate.ID(args[0])
			if !ok {
				return fmt.Errorf("invalid id %q", args[0])
			}
			cur, err := a.cursor(entity)
			if err != nil {
				return err
			}
			if err := cur.Store(c.Context(), next); err != nil {
				return err
			}
			a.log.Info("cursor.set", map[string]any{"entity": entity, "next_id": next})
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
