package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"vibelog/internal/domain"
)

func newTestBus(size int) *InMemoryBus {
	return New(size, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishSubscribe(t *testing.T) {
	b := newTestBus(10)
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "cli", ChatID: "direct", Content: "hello"})

	select {
	case msg := <-b.Subscribe():
		if msg.Content != "hello" || msg.Channel != "cli" {
			t.Fatalf("got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestOutboundRouting(t *testing.T) {
	b := newTestBus(10)
	defer b.Close()

	got := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("telegram", func(msg domain.OutboundMessage) { got <- msg })

	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ChatID: "42", Content: "done"})

	select {
	case msg := <-got:
		if msg.ChatID != "42" || msg.Content != "done" {
			t.Fatalf("got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never fired")
	}
}

func TestOutboundUnknownChannelIsDropped(t *testing.T) {
	b := newTestBus(10)
	defer b.Close()

	// Must not panic or block.
	b.SendOutbound(domain.OutboundMessage{Channel: "nowhere", Content: "lost"})
}

func TestPublishAfterCloseIsSafe(t *testing.T) {
	b := newTestBus(10)
	b.Close()
	b.Publish(domain.InboundMessage{Channel: "cli", Content: "late"})
	// Double close must be safe too.
	b.Close()
}
