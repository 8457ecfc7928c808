package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dishpatch/dishpatch/pkg/api"
	"github.com/dishpatch/dishpatch/pkg/broker"
	"github.com/dishpatch/dishpatch/pkg/config"
	"github.com/dishpatch/dishpatch/pkg/dispatcher"
	"github.com/dishpatch/dishpatch/pkg/eventlog"
	"github.com/dishpatch/dishpatch/pkg/events"
	"github.com/dishpatch/dishpatch/pkg/log"
	"github.com/dishpatch/dishpatch/pkg/publisher"
	"github.com/dishpatch/dishpatch/pkg/pubsub"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dishpatch",
	Short: "Dishpatch - Multi-tenant restaurant event distribution",
	Long: `Dishpatch distributes restaurant state-change events (orders,
order items, payments, tables, kitchen notifications) from a single
writer to many tenant-scoped subscribers.

Every event is appended to a durable event log before transient
delivery over Postgres LISTEN/NOTIFY is attempted, so a dropped
connection never loses an event.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Dishpatch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "dishpatch.yaml", "Path to configuration file")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(replayCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the event distribution hub",
	Long: `Run the Dishpatch hub: connect the listen and notify sides,
subscribe to the full channel registry, and serve health and metrics
endpoints until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.LogLevel),
			JSONOutput: cfg.LogJSON,
		})
		logger := log.WithComponent("serve")

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer store.Close()

		b := broker.New()
		d := dispatcher.New(b)

		hub := pubsub.NewHub(&pubsub.PGDialer{URL: cfg.DatabaseURL}, pubsub.Options{
			Handler:              d.Dispatch,
			ReconnectDelay:       cfg.ReconnectDelay,
			ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
		})

		if cfg.DatabaseURL != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := hub.Initialize(ctx); err != nil {
				cancel()
				return fmt.Errorf("failed to initialize hub: %w", err)
			}
			if err := hub.Subscribe(ctx, events.AllChannels()...); err != nil {
				cancel()
				hub.Cleanup()
				return fmt.Errorf("failed to subscribe channel registry: %w", err)
			}
			cancel()
			logger.Info().Int("channels", len(events.AllChannels())).Msg("hub connected and subscribed")
		} else {
			logger.Warn().Msg("no database_url configured, transient delivery disabled")
		}

		// Trace hand-off to fan-out consumers
		b.Subscribe(func(msg broker.Message) {
			logger.Debug().
				Str("channel", string(msg.Channel)).
				Str("restaurant_id", msg.Event.Restaurant()).
				Msg("event dispatched")
		})

		janitor := eventlog.NewJanitor(store, cfg.RetentionDays, 0)
		janitor.Start()
		defer janitor.Stop()

		healthServer := api.NewHealthServer(hub, store)
		errCh := make(chan error, 1)
		go func() {
			if err := healthServer.Start(cfg.ListenAddr); err != nil {
				errCh <- fmt.Errorf("health server error: %w", err)
			}
		}()
		logger.Info().Str("addr", cfg.ListenAddr).Msg("health and metrics endpoints up")

		// Cleanup runs exactly once on process termination
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case err := <-errCh:
			logger.Error().Err(err).Msg("shutting down")
		}

		hub.Cleanup()
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <channel> <restaurant-id>",
	Short: "Publish one event through the dual-write path",
	Long: `Publish appends an event to the durable log and then attempts
transient delivery, exactly as an embedding application would. Useful
for smoke-testing a deployment end to end: run serve in one terminal,
publish in another, and watch the event arrive.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer store.Close()

		hub := pubsub.NewHub(&pubsub.PGDialer{URL: cfg.DatabaseURL}, pubsub.Options{
			ReconnectDelay:       cfg.ReconnectDelay,
			ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
		})
		defer hub.Cleanup()

		p := publisher.New(store, hub, publisher.Options{
			MaxAttempts:     cfg.PublishMaxAttempts,
			BaseDelay:       cfg.RetryBaseDelay,
			MaxDelay:        cfg.RetryMaxDelay,
			MaxPayloadBytes: cfg.MaxPayloadBytes,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		f := eventFlags{}
		f.orderID, _ = cmd.Flags().GetString("order")
		f.orderNumber, _ = cmd.Flags().GetString("number")
		f.itemID, _ = cmd.Flags().GetString("item")
		f.tableID, _ = cmd.Flags().GetString("table")
		f.oldStatus, _ = cmd.Flags().GetString("old-status")
		f.newStatus, _ = cmd.Flags().GetString("new-status")
		f.message, _ = cmd.Flags().GetString("message")
		f.method, _ = cmd.Flags().GetString("method")
		f.receipt, _ = cmd.Flags().GetString("receipt")
		f.amount, _ = cmd.Flags().GetFloat64("amount")
		f.total, _ = cmd.Flags().GetFloat64("total")

		return publishEvent(ctx, p, events.Channel(args[0]), args[1], f)
	},
}

// eventFlags carries the kind-specific fields collected from the
// publish command line
type eventFlags struct {
	orderID, orderNumber string
	itemID, tableID      string
	oldStatus, newStatus string
	message              string
	method, receipt      string
	amount, total        float64
}

// publishEvent maps a channel name onto its typed publish entry point.
// Publishing never fails from the caller's point of view; only an
// unknown channel is an error.
func publishEvent(ctx context.Context, p *publisher.Publisher, ch events.Channel, restaurantID string, f eventFlags) error {
	switch ch {
	case events.ChannelOrderCreated:
		p.OrderCreated(ctx, events.OrderCreated{
			RestaurantID: restaurantID,
			OrderID:      f.orderID,
			OrderNumber:  f.orderNumber,
			TableID:      f.tableID,
			Total:        f.total,
		})
	case events.ChannelOrderStatusChanged:
		p.OrderStatusChanged(ctx, events.OrderStatusChanged{
			RestaurantID: restaurantID,
			OrderID:      f.orderID,
			OldStatus:    f.oldStatus,
			NewStatus:    f.newStatus,
		})
	case events.ChannelOrderItemStatusChanged:
		p.OrderItemStatusChanged(ctx, events.OrderItemStatusChanged{
			RestaurantID: restaurantID,
			OrderID:      f.orderID,
			ItemID:       f.itemID,
			OldStatus:    f.oldStatus,
			NewStatus:    f.newStatus,
		})
	case events.ChannelKitchenNotification:
		p.KitchenNotification(ctx, events.KitchenNotification{
			RestaurantID: restaurantID,
			OrderID:      f.orderID,
			Message:      f.message,
		})
	case events.ChannelRestaurantNotification:
		p.RestaurantNotification(ctx, events.RestaurantNotification{
			RestaurantID: restaurantID,
			Message:      f.message,
		})
	case events.ChannelPaymentCompleted:
		p.PaymentCompleted(ctx, events.PaymentCompleted{
			RestaurantID:  restaurantID,
			OrderID:       f.orderID,
			Amount:        f.amount,
			PaymentMethod: f.method,
			ReceiptNumber: f.receipt,
		})
	case events.ChannelTableStatusChanged:
		p.TableStatusChanged(ctx, events.TableStatusChanged{
			RestaurantID: restaurantID,
			TableID:      f.tableID,
			OldStatus:    f.oldStatus,
			NewStatus:    f.newStatus,
		})
	default:
		return fmt.Errorf("unknown channel %q", ch)
	}
	return nil
}

var replayCmd = &cobra.Command{
	Use:   "replay <restaurant-id>",
	Short: "Dump durable event records for a restaurant",
	Long: `Replay reads the durable event log in creation order and prints
one JSON record per line. This is the same query path fan-out consumers
use to backfill after losing the live channel.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})

		since, _ := cmd.Flags().GetDuration("since")

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cursor := time.Now().Add(-since)
		total := 0
		for {
			records, err := store.List(ctx, args[0], cursor, cfg.ReplayBatchSize)
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}
			if len(records) == 0 {
				break
			}
			for _, rec := range records {
				line, err := json.Marshal(rec)
				if err != nil {
					return err
				}
				fmt.Println(string(line))
			}
			total += len(records)
			cursor = records[len(records)-1].CreatedAt
		}

		fmt.Fprintf(os.Stderr, "%d event(s)\n", total)
		return nil
	},
}

func init() {
	replayCmd.Flags().Duration("since", 24*time.Hour, "How far back to replay")

	publishCmd.Flags().String("order", "", "Order id")
	publishCmd.Flags().String("number", "", "Order number")
	publishCmd.Flags().String("item", "", "Order item id")
	publishCmd.Flags().String("table", "", "Table id")
	publishCmd.Flags().String("old-status", "", "Previous status")
	publishCmd.Flags().String("new-status", "", "New status")
	publishCmd.Flags().String("message", "", "Notification message")
	publishCmd.Flags().String("method", "", "Payment method")
	publishCmd.Flags().String("receipt", "", "Receipt number")
	publishCmd.Flags().Float64("amount", 0, "Payment amount")
	publishCmd.Flags().Float64("total", 0, "Order total")
}

// openStore selects the event log backend: Postgres when a database
// URL is configured, the embedded store otherwise
func openStore(cfg config.Config) (eventlog.Store, error) {
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eventlog.NewPostgresStore(ctx, cfg.DatabaseURL)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return eventlog.NewBoltStore(cfg.DataDir)
}
