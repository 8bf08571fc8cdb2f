package cmd

import (
	"context"

	"github.com/frahmantamala/helpdesk-access/internal/core/events"
	"github.com/frahmantamala/helpdesk-access/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Manage access events: publish test events through the audit log handler`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test access event",
	Long:  `Publish a test access change event to the event bus for testing and debugging the audit log`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var (
	eventData    string
	eventSubject string
	eventActor   string
)

func publishTestEvent(eventType string) {
	logger := logger.LoggerWrapper()

	eventBus := events.NewEventBus(logger)
	eventBus.Subscribe(events.AllEvents, events.AuditLogger(logger))

	testEvent := events.NewAccessChangedEvent(eventType, eventSubject, eventActor, map[string]interface{}{
		"message": eventData,
		"source":  "cli-command",
	})

	logger.Info("publishing test event", "event_type", eventType, "event_id", testEvent.EventID())

	ctx := context.Background()
	if err := eventBus.Publish(ctx, testEvent); err != nil {
		logger.Error("failed to publish event", "error", err)
		return
	}

	eventBus.Wait()
	logger.Info("test event published successfully")
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	publishEventCmd.Flags().StringVar(&eventSubject, "subject", "agent-1", "Subject the event is about")
	publishEventCmd.Flags().StringVar(&eventActor, "actor", "cli", "Actor recorded on the event")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
