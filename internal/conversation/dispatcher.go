package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vibelog/internal/domain"
)

const defaultConcurrency = 3

// Dispatcher consumes inbound channel messages and resolves each through the
// conversation engine for that chat. Different chats run concurrently up to
// a bound; one chat's turns stay sequential because the engine serializes.
type Dispatcher struct {
	registry    *Registry
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
}

type DispatcherConfig struct {
	Registry    *Registry
	Bus         domain.MessageBus
	Logger      *slog.Logger
	Concurrency int
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		registry:    cfg.Registry,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run blocks until the context is cancelled or the bus closes.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", "concurrency", d.concurrency)

	sem := make(chan struct{}, d.concurrency)
	inbound := d.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				d.logger.Info("inbound channel closed, dispatcher stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				d.processMessage(ctx, m)
			}(msg)
		}
	}
}

func (d *Dispatcher) processMessage(ctx context.Context, msg domain.InboundMessage) {
	convID := fmt.Sprintf("%s:%s", msg.Channel, msg.ChatID)

	var response string
	if strings.TrimSpace(msg.Content) == "/new" {
		d.registry.Remove(ctx, convID)
		response = "Conversation reset. Tell me about your next post."
	} else {
		engine := d.registry.Get(ctx, convID)
		response = engine.ProcessInput(ctx, msg.Content)
	}

	d.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: response,
		Format:  "markdown",
	})
}
