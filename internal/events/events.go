package events

import "context"

// Channels
const (
	ChannelChain = "events:chain"
)

// Streams
const (
	StreamDeposits = "stream:deposits"
)

// Event types
const (
	EventContract    = "contract_event"
	EventTxReverted  = "tx_reverted"
	EventBlockSealed = "block_sealed"
	EventDeposit     = "deposit"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// Appender и Consumer: доставка "хотя бы один раз" через Redis Streams.
type Appender interface {
	Append(ctx context.Context, stream string, event Event) error
}

// Consumer вызывает handler, пока тот не вернёт nil для сообщения.
type Consumer interface {
	Consume(ctx context.Context, stream string, handler func(context.Context, Event) error) error
}
