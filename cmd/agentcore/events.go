package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/careerpilot/agentcore/core"
	"github.com/careerpilot/agentcore/store"
)

func newEventsCmd() *cobra.Command {
	var (
		userID  string
		pending bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect stored agent events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			events := store.NewEventStore(db)

			var rows []core.AgentEvent
			switch {
			case pending:
				rows, err = events.Pending(limit)
			case userID != "":
				rows, err = events.ByUser(userID, limit)
			default:
				return fmt.Errorf("pass --user or --pending")
			}
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "list events for this user")
	cmd.Flags().BoolVar(&pending, "pending", false, "list pending events in drain order")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events to list")
	return cmd
}
