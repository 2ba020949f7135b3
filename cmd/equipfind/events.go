package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/equipfind/equipfind/internal/bus"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show events recorded in the event log",
		Example: `  equipfind events --topic search.performed --since 1h
  equipfind events --log /var/lib/equipfind/events.jsonl --limit 20 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("log")
			if path == "" {
				cfg, _, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = cfg.Bus.EventLog
			}
			if path == "" {
				return fmt.Errorf("no event log: pass --log or set bus.event_log")
			}

			filter := bus.EventFilter{}
			filter.Topic, _ = cmd.Flags().GetString("topic")
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			events, err := bus.ReadEvents(path, filter)
			if err != nil {
				return err
			}
			return newPrinter(cmd).events(events)
		},
	}
	cmd.Flags().String("log", "", "event log path (default from config)")
	cmd.Flags().String("topic", "", "only this topic")
	cmd.Flags().Duration("since", 0, "only events newer than this (e.g. 30m, 24h)")
	cmd.Flags().Int("limit", 0, "maximum number of events")
	return cmd
}
