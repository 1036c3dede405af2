// Package dispatch sends rendered action-node messages to customers through
// per-channel dispatchers. The concrete delivery providers live behind these
// interfaces, outside the lifecycle core.
package dispatch

import (
	"context"
	"fmt"
)

// Message is one rendered send request produced by an action node.
type Message struct {
	CustomerID string `json:"customer_id"`
	Channel    string `json:"channel"`
	Subject    string `json:"subject,omitempty"`
	Content    string `json:"content"`
}

// Dispatcher delivers a message on one channel. A returned error is a
// DispatchFailure: the engine records it on the execution and does not retry
// automatically.
type Dispatcher interface {
	Send(ctx context.Context, message Message) error
}

// Factory builds a dispatcher for a channel from its configuration.
type Factory func(config map[string]string) (Dispatcher, error)

// Registry maps channel names (email, sms, push, ...) to dispatcher
// factories.
type Registry struct {
	factories   map[string]Factory
	dispatchers map[string]Dispatcher
}

func NewRegistry() *Registry {
	return &Registry{
		factories:   make(map[string]Factory),
		dispatchers: make(map[string]Dispatcher),
	}
}

func (r *Registry) Register(channel string, factory Factory) {
	r.factories[channel] = factory
}

// Create builds and caches the dispatcher for a channel.
func (r *Registry) Create(channel string, config map[string]string) (Dispatcher, error) {
	if dispatcher, ready := r.dispatchers[channel]; ready {
		return dispatcher, nil
	}

	factory, registered := r.factories[channel]
	if !registered {
		return nil, fmt.Errorf("channel %q not registered", channel)
	}

	dispatcher, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q dispatcher: %w", channel, err)
	}

	r.dispatchers[channel] = dispatcher

	return dispatcher, nil
}

// Dispatcher returns the dispatcher for a channel, creating it with empty
// config when needed.
func (r *Registry) Dispatcher(channel string) (Dispatcher, error) {
	return r.Create(channel, nil)
}
