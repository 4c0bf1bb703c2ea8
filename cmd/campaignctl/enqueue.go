package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclebandit/dialer-backend/internal/config"
	"github.com/unclebandit/dialer-backend/internal/queue"
	"github.com/unclebandit/dialer-backend/internal/service"
)

var enqueueOrg string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <campaign-id> <start|pause|resume|stop>",
	Short: "Queue a lifecycle action for the worker",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		command, err := buildCommand(args[0], args[1], enqueueOrg)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		q, err := queue.NewCommandQueue(cfg.AMQPURL, cfg.ExecuteQueue)
		if err != nil {
			return err
		}
		defer q.Close()

		if err := q.Enqueue(command); err != nil {
			return fmt.Errorf("failed to publish command: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued %s for campaign %s on %s\n", command.Action, command.CampaignID, cfg.ExecuteQueue)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueOrg, "org", "", "organization that owns the campaign")
	enqueueCmd.MarkFlagRequired("org")
}

// buildCommand validates the arguments the same way the worker will.
func buildCommand(campaignID, action, organizationID string) (queue.ExecuteCommand, error) {
	req, err := service.ParseExecuteRequest(campaignID, action, organizationID)
	if err != nil {
		return queue.ExecuteCommand{}, err
	}
	return queue.ExecuteCommand{
		CampaignID:     req.CampaignID.String(),
		Action:         string(req.Action),
		OrganizationID: req.OrganizationID.String(),
	}, nil
}
