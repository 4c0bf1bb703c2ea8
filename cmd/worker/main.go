package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-backend/internal/app"
	"github.com/unclebandit/dialer-backend/internal/config"
	"github.com/unclebandit/dialer-backend/internal/logging"
	"github.com/unclebandit/dialer-backend/internal/model"
	"github.com/unclebandit/dialer-backend/internal/queue"
	"github.com/unclebandit/dialer-backend/internal/service"
)

type executor interface {
	Execute(ctx context.Context, req service.ExecuteRequest) (*model.ExecutionResult, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start engine", zap.Error(err))
	}
	defer engine.Close(context.Background())

	commands, err := queue.NewCommandQueue(cfg.AMQPURL, cfg.ExecuteQueue)
	if err != nil {
		logger.Fatal("failed to open command queue", zap.Error(err))
	}
	defer commands.Close()

	msgs, err := commands.Consume()
	if err != nil {
		logger.Fatal("failed to consume commands", zap.Error(err))
	}

	logger.Info("Worker running, waiting for messages...", zap.String("queue", cfg.ExecuteQueue))
	consume(ctx, msgs, engine.Lifecycle, logger)
	logger.Info("worker stopped")
}

// consume handles deliveries until ctx is done or the channel closes.
// Every delivery is acked: a failed command is logged and not retried.
func consume(ctx context.Context, msgs <-chan amqp.Delivery, exec executor, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			if err := processCommand(ctx, exec, d.Body, logger); err != nil {
				logger.Warn("❌ campaign command failed", zap.Error(err))
			}
			if err := d.Ack(false); err != nil {
				logger.Error("failed to ack delivery", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
			}
		}
	}
}

func processCommand(ctx context.Context, exec executor, body []byte, logger *zap.Logger) error {
	var cmd queue.ExecuteCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	req, err := service.ParseExecuteRequest(cmd.CampaignID, cmd.Action, cmd.OrganizationID)
	if err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	// The batch finishes even when shutdown starts mid-way.
	res, err := exec.Execute(context.WithoutCancel(ctx), req)
	if err != nil {
		return err
	}
	logger.Info("✅ campaign command applied",
		zap.String("campaign_id", req.CampaignID.String()),
		zap.String("action", string(req.Action)),
		zap.String("status", string(res.Status)),
		zap.String("message", res.Message))
	return nil
}
