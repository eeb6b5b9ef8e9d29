package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/careerpilot/agentcore"
	"github.com/careerpilot/agentcore/bus"
	"github.com/careerpilot/agentcore/store"
)

func newDrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Run one drain pass over pending events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := buildLogger(cfg)

			db, err := store.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			events := store.NewEventStore(db)

			c := agentcore.New(func(o *agentcore.Options) {
				o.EventStore = events
				o.MemoryStore = store.NewMemoryStore(db)
				o.Logger = logger
			})

			mdl, err := buildModel(cfg)
			if err != nil {
				return err
			}

			drainer, err := c.Drainer(func(o *bus.DrainerOptions) {
				o.PoolSize = cfg.Bus.PoolSize
				o.BatchSize = cfg.Bus.BatchSize
				o.MaxRetries = cfg.Bus.MaxRetries
			})
			if err != nil {
				return err
			}
			defer drainer.Close()

			if _, err := c.BuildInterviewAnalyzer(mdl, drainer); err != nil {
				return err
			}

			before, err := events.Pending(0)
			if err != nil {
				return err
			}
			if err := drainer.Drain(cmd.Context()); err != nil {
				return err
			}
			after, err := events.Pending(0)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "drained %d of %d pending events\n",
				len(before)-len(after), len(before))
			return nil
		},
	}
	return cmd
}
