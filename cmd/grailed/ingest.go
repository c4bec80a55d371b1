package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"grailed/internal/services"
	"grailed/internal/validate"
)

func newIngestCommand(a *app) *cobra.Command {
	var policy string
	cmd := &cobra.Command{
		Use:   "ingest <listings|users> [corpus]",
		Short: "Load a line-delimited JSON corpus into the database",
		Long: `
Reads one raw API response per line and upserts each into the database in its
own transaction. The corpus defaults to LISTING_CORPUS or USER_CORPUS.
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			entity, ok := validate.Entity(args[0])
			if !ok {
				return fmt.Errorf("unknown entity %q (want listings or users)", args[0])
			}
			p, err := services.ParsePolicy(policy)
			if err != nil {
				return err
			}
			path := a.cfg.ListingCorpus
			if entity == services.EntityUsers {
				path = a.cfg.UserCorpus
			}
			if len(args) == 2 {
				path = args[1]
			}

			db, err := a.store()
			if err != nil {
				return err
			}
			svc := services.NewIngestService(db, a.log, a.metrics)
			stats, err := svc.IngestFile(c.Context(), entity, path, p)
			if err != nil {
				a.log.Error("ingest.corpus", err, map[string]any{"entity": entity, "path": path})
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%s: %d documents, %d ingested, %d no data, %d failed\n",
				entity, stats.Documents, stats.Ingested, stats.NoData, stats.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", a.cfg.ErrorPolicy, "what to do after a failed document (continue or abort)")
	return cmd
}
