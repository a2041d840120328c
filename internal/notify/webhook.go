package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/events"
)

const (
	HeaderSignature = "X-TorRent-Signature"
	HeaderEventType = "X-TorRent-Event"
)

// Forwarder пересылает события ledger во внешний webhook.
type Forwarder struct {
	url       string
	secret    []byte
	contracts map[string]bool // пусто: все контракты
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	log       *zap.Logger
}

type Option func(*Forwarder)

func WithContracts(names []string) Option {
	return func(f *Forwarder) {
		for _, n := range names {
			f.contracts[n] = true
		}
	}
}

func WithRetries(n int, backoff time.Duration) Option {
	return func(f *Forwarder) {
		f.retries = n
		f.backoff = backoff
	}
}

func NewForwarder(url, secret string, timeout time.Duration, log *zap.Logger, opts ...Option) *Forwarder {
	f := &Forwarder{
		url:       url,
		secret:    []byte(secret),
		contracts: map[string]bool{},
		timeout:   timeout,
		retries:   3,
		backoff:   500 * time.Millisecond,
		log:       log,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Wants: запечатанные блоки идут всегда, остальное фильтруется по контракту.
func (f *Forwarder) Wants(e events.Event) bool {
	if e.Type == events.EventBlockSealed || len(f.contracts) == 0 {
		return true
	}
	contract, _ := e.Payload["contract"].(string)
	return f.contracts[contract]
}

// Sign возвращает hex(HMAC-SHA256(secret, body)).
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Forward отправляет событие, повторяя на сетевых ошибках и 5xx.
func (f *Forwarder) Forward(ctx context.Context, e events.Event) error {
	if !f.Wants(e) {
		return nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}

	var errs error
	for attempt := 0; attempt < f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return multierr.Append(errs, ctx.Err())
			case <-time.After(f.backoff * time.Duration(attempt)):
			}
		}
		retry, err := f.post(e.Type, body)
		if err == nil {
			return nil
		}
		errs = multierr.Append(errs, err)
		if !retry {
			break
		}
	}
	return fmt.Errorf("forward %s event: %w", e.Type, errs)
}

func (f *Forwarder) post(eventType string, body []byte) (retry bool, err error) {
	agent := fiber.Post(f.url)
	agent.Timeout(f.timeout)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Set(HeaderEventType, eventType)
	if len(f.secret) > 0 {
		agent.Set(HeaderSignature, Sign(f.secret, body))
	}
	agent.Body(body)
	if err := agent.Parse(); err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	code, _, errs := agent.Bytes()
	if err := multierr.Combine(errs...); err != nil {
		return true, err
	}
	switch {
	case code >= 500:
		return true, fmt.Errorf("webhook returned %d", code)
	case code >= 300:
		return false, fmt.Errorf("webhook returned %d", code)
	}
	return false, nil
}

// Run подписывается на канал ledger; события обрабатываются по одному в порядке прихода.
func (f *Forwarder) Run(ctx context.Context, sub events.Subscriber) error {
	queue := make(chan events.Event, 256)
	err := sub.Subscribe(ctx, events.ChannelChain, func(e events.Event) {
		select {
		case queue <- e:
		default:
			f.log.Warn("notify queue full, event dropped", zap.String("type", e.Type))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.ChannelChain, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-queue:
				if err := f.Forward(ctx, e); err != nil {
					f.log.Warn("failed to forward event", zap.String("type", e.Type), zap.Error(err))
					continue
				}
				f.log.Debug("event forwarded", zap.String("type", e.Type))
			}
		}
	}()
	return nil
}
