package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamField     = "event"
	streamMaxLen    = 100_000
	streamBatch     = 16
	streamBlock     = 5 * time.Second
	streamRetryWait = 2 * time.Second
)

// RedisStream: очередь поверх Redis Streams. В отличие от pub/sub сообщение
// живёт в группе, пока обработчик не вернёт nil и оно не будет подтверждено XAck.
type RedisStream struct {
	client   *redis.Client
	group    string
	consumer string
	log      *zap.Logger
}

func NewRedisStream(client *redis.Client, group, consumer string, log *zap.Logger) *RedisStream {
	return &RedisStream{client: client, group: group, consumer: consumer, log: log}
}

func (s *RedisStream) Append(ctx context.Context, stream string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{streamField: data},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

// Consume создаёт группу, если её нет, и обрабатывает сообщения в фоне до
// отмены ctx. Сначала дочитываются неподтверждённые сообщения этого
// consumer'а, потом новые. Сообщение с ошибкой обработчика остаётся в
// pending и приходит снова.
func (s *RedisStream) Consume(ctx context.Context, stream string, handler func(context.Context, Event) error) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", s.group, stream, err)
	}

	go func() {
		for ctx.Err() == nil {
			pending, err := s.read(ctx, stream, "0", -1)
			if err != nil {
				s.wait(ctx, "failed to read pending messages", stream, err)
				continue
			}
			if len(pending) > 0 {
				if failed := s.handle(ctx, stream, pending, handler); failed > 0 {
					s.wait(ctx, "messages left pending", stream, fmt.Errorf("%d failed", failed))
				}
				continue
			}

			fresh, err := s.read(ctx, stream, ">", streamBlock)
			if err != nil {
				s.wait(ctx, "failed to read stream", stream, err)
				continue
			}
			s.handle(ctx, stream, fresh, handler)
		}
	}()

	s.log.Info("consuming stream",
		zap.String("stream", stream),
		zap.String("group", s.group),
		zap.String("consumer", s.consumer),
	)
	return nil
}

func (s *RedisStream) read(ctx context.Context, stream, id string, block time.Duration) ([]redis.XMessage, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{stream, id},
		Count:    streamBatch,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []redis.XMessage
	for _, st := range res {
		out = append(out, st.Messages...)
	}
	return out, nil
}

// handle возвращает число сообщений, оставшихся неподтверждёнными.
func (s *RedisStream) handle(ctx context.Context, stream string, msgs []redis.XMessage, handler func(context.Context, Event) error) int {
	failed := 0
	for _, m := range msgs {
		event, err := decodeStreamMessage(m)
		if err != nil {
			// битое сообщение повторять бессмысленно
			s.log.Error("dropping malformed stream message",
				zap.String("stream", stream),
				zap.String("id", m.ID),
				zap.Error(err),
			)
		} else if err := handler(ctx, event); err != nil {
			s.log.Warn("stream message not processed",
				zap.String("stream", stream),
				zap.String("id", m.ID),
				zap.Error(err),
			)
			failed++
			continue
		}
		if err := s.client.XAck(ctx, stream, s.group, m.ID).Err(); err != nil {
			s.log.Warn("failed to ack", zap.String("stream", stream), zap.String("id", m.ID), zap.Error(err))
		}
	}
	return failed
}

func (s *RedisStream) wait(ctx context.Context, msg, stream string, err error) {
	if ctx.Err() != nil {
		return
	}
	s.log.Warn(msg, zap.String("stream", stream), zap.Error(err))
	select {
	case <-ctx.Done():
	case <-time.After(streamRetryWait):
	}
}

func decodeStreamMessage(m redis.XMessage) (Event, error) {
	var raw string
	switch v := m.Values[streamField].(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return Event{}, fmt.Errorf("message %s has no %q field", m.ID, streamField)
	}
	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal message %s: %w", m.ID, err)
	}
	return e, nil
}
