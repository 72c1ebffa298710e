package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salesline-ai/salesline/internal/eventlog"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear all conversation sessions",
		Long: "reset wipes every stored session. Useful between demo runs; with the\n" +
			"sqlite backend this also clears sessions a crashed server left behind.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := initConfig()

			store, err := buildStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			if err := store.ResetAll(); err != nil {
				return fmt.Errorf("reset sessions: %w", err)
			}

			if events, err := buildEvents(cfg); err == nil {
				events.Log(eventlog.Event{Type: eventlog.EventReset})
			}

			fmt.Println("All sessions cleared.")
			return nil
		},
	}
}
