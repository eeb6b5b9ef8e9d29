package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/careerpilot/agentcore"
	"github.com/careerpilot/agentcore/agents"
	"github.com/careerpilot/agentcore/loop"
	"github.com/careerpilot/agentcore/store"
)

// fileSource serves postings from a JSON file, standing in for the job
// board integration which lives outside this module.
type fileSource struct {
	postings []agents.JobPosting
}

func newFileSource(path string) (*fileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read postings file: %w", err)
	}
	var postings []agents.JobPosting
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("decode postings file: %w", err)
	}
	return &fileSource{postings: postings}, nil
}

func (s *fileSource) Search(context.Context, string, int) ([]agents.JobPosting, error) {
	return s.postings, nil
}

func newRunCmd() *cobra.Command {
	var (
		userID       string
		query        string
		postingsFile string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a market scan for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := buildLogger(cfg)

			source, err := newFileSource(postingsFile)
			if err != nil {
				return err
			}
			mdl, err := buildModel(cfg)
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}

			c := agentcore.New(func(o *agentcore.Options) {
				o.EventStore = store.NewEventStore(db)
				o.MemoryStore = store.NewMemoryStore(db)
				o.CheckpointStore = store.NewCheckpointStore(db)
				o.Logger = logger
				o.Loop = func(lo *loop.Options) {
					lo.ConfidenceThreshold = cfg.Loop.ConfidenceThreshold
					lo.MaxIterations = cfg.Loop.MaxIterations
					lo.MaxDuration = cfg.Loop.MaxDuration
					lo.MaxDegradations = cfg.Loop.MaxDegradations
				}
			})

			scanner, err := c.BuildMarketScanner(mdl, source)
			if err != nil {
				return err
			}

			result := scanner.ScanMarket(cmd.Context(), userID, query)
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !result.Success {
				return fmt.Errorf("scan did not succeed: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id the scan belongs to")
	cmd.Flags().StringVar(&query, "query", "", "job market search query")
	cmd.Flags().StringVar(&postingsFile, "postings", "", "path to a JSON file of postings")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("postings")
	return cmd
}
