package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/unclebandit/dialer-backend/internal/config"
	"github.com/unclebandit/dialer-backend/internal/db"
	"github.com/unclebandit/dialer-backend/internal/repository"
	"github.com/unclebandit/dialer-backend/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status <campaign-id>",
	Short: "Print a campaign with its call record counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid campaign id %q", args[0])
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		conn, err := db.Open(cmd.Context(), cfg.DSN())
		if err != nil {
			return err
		}
		defer conn.Close()

		svc := &service.CampaignService{
			Campaigns: &repository.CampaignRepository{DB: conn},
			Records:   &repository.CallRecordRepository{DB: conn},
		}
		details, err := svc.GetCampaignDetailsWithStats(cmd.Context(), id)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	},
}
