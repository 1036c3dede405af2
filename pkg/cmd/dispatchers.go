package cmd

import (
	"log/slog"
	"strings"

	"github.com/pulsecrm/lifecycle/pkg/dispatch"
)

// NewDispatchers registers a dispatcher per configured channel. Channels go
// through the webhook relay when a relay URL is set; without one every send
// lands in the log, which is the local development mode.
func NewDispatchers(logger *slog.Logger, channels, relayURL, relayToken string) *dispatch.Registry {
	registry := dispatch.NewRegistry()

	for _, channel := range strings.Split(channels, ",") {
		channel = strings.TrimSpace(channel)
		if channel == "" {
			continue
		}

		if relayURL == "" {
			registry.Register(channel, func(_ map[string]string) (dispatch.Dispatcher, error) {
				return dispatch.NewLogDispatcher(logger), nil
			})

			continue
		}

		registry.Register(channel, func(_ map[string]string) (dispatch.Dispatcher, error) {
			return dispatch.NewWebhookDispatcher(map[string]string{
				"url":        relayURL,
				"auth_token": relayToken,
			})
		})
	}

	return registry
}
