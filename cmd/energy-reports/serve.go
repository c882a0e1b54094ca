package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rcourtman/energy-reports/internal/api"
	"github.com/rcourtman/energy-reports/internal/mock"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const serveShutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr      string
		seedYears int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development prediction API",
		Long: `serve runs a local prediction API backed by SQLite in the data directory.
Point --backend-url (or ENERGY_BACKEND_URL) at it to work offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			st, err := store.Open(a.cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer st.Close()

			if seedYears > 0 {
				if err := seedStore(cmd.Context(), a, st, seedYears); err != nil {
					return err
				}
			}

			srv := api.New(api.Config{Addr: addr, Store: st, Registry: a.registry})
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default ENERGY_LISTEN_ADDR)")
	cmd.Flags().IntVar(&seedYears, "seed", 0, "fill empty years with this many years of sample data per type")
	return cmd
}

// seedStore inserts sample rows for years that have none, ending next year.
// Seeded rows are stored as ordinary predictions.
func seedStore(ctx context.Context, a *app, st *store.Store, years int) error {
	end := nowFn().Year() + 1
	yr := models.NewYearRange(end-years+1, end).Clamp()
	gen := mock.NewGenerator()

	total := 0
	for _, key := range a.registry.Keys() {
		cfg, err := a.registry.Get(key)
		if err != nil {
			return err
		}
		records := gen.Generate(cfg, yr)
		for i := range records {
			records[i].IsSynthetic = false
		}
		n, err := st.Seed(ctx, records)
		if err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
		total += n
	}
	log.Info().Int("rows", total).Str("range", yr.String()).Msg("Seeded development records")
	return nil
}
