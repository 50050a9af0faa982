package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-tracker/internal/balance"
	"github.com/frahmantamala/expense-tracker/internal/messaging/amqp"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start workers that consume balance events published by the HTTP server.`,
}

var alertWorkerCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Consume balance events and report categories over their limit",
	Run: func(cmd *cobra.Command, args []string) {
		startAlertWorker()
	},
}

func startAlertWorker() {
	cfg := mustLoadConfig()
	log := logger.LoggerWrapper()

	if cfg.Messaging.AMQPURL == "" {
		fmt.Fprintln(os.Stderr, "messaging.amqp_url is not configured")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	alert := balance.LimitAlertHandler(log)
	handle := func(ctx context.Context, msg *amqp.BalanceMessage) error {
		return alert(ctx, msg.ToEvent())
	}
	dial := func() (*amqp.Client, error) {
		return amqp.NewClient(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange, cfg.Messaging.Queue, log)
	}

	log.Info("alert worker started", "exchange", cfg.Messaging.Exchange, "queue", cfg.Messaging.Queue)
	err := amqp.RunConsumer(ctx, dial, handle, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("alert worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("alert worker shutdown complete")
}

func init() {
	workerCmd.AddCommand(alertWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
