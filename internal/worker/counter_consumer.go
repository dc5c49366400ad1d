// Package worker consumes progress completion events and refreshes the
// denormalized user counters.
package worker

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/learning-platform/internal/events"
	"github.com/example/learning-platform/internal/progress"
)

const durableName = "learning_counters"

// StartCounterConsumer subscribes to completion events and recomputes user
// counters for each affected user. Because the refresh is a full recompute,
// duplicate and out-of-order deliveries are harmless; failed refreshes are
// Nak'd and redelivered.
func StartCounterConsumer(ctx context.Context, nc *nats.Conn, agg *progress.StatsAggregator, log *zap.Logger) {
	js, err := nc.JetStream()
	if err != nil {
		log.Error("counter_consumer: jetstream", zap.Error(err))
		return
	}

	sub, err := js.PullSubscribe(events.SubjectProgressCompleted, durableName)
	if err != nil {
		log.Error("counter_consumer: subscribe", zap.Error(err))
		return
	}

	go func() {
		batchSize := envInt("WORKER_BATCH_SIZE", 100)
		batchInterval := envInt("WORKER_BATCH_INTERVAL_MS", 2000)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgs, err := sub.Fetch(batchSize, nats.MaxWait(time.Duration(batchInterval)*time.Millisecond))
			if err != nil {
				if err == nats.ErrTimeout {
					continue
				}
				log.Warn("counter_consumer: fetch", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			// Refresh each user once per batch; every message for that user
			// converges on the same recomputed counters.
			byUser := map[string][]*nats.Msg{}
			for _, m := range msgs {
				var ev events.CompletionEvent
				if err := json.Unmarshal(m.Data, &ev); err != nil {
					log.Warn("counter_consumer: invalid payload", zap.Error(err))
					ack(m, log)
					continue
				}
				if strings.TrimSpace(ev.UserID) == "" {
					ack(m, log)
					continue
				}
				byUser[ev.UserID] = append(byUser[ev.UserID], m)
			}

			for userID, userMsgs := range byUser {
				refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				_, err := agg.RefreshUserCounters(refreshCtx, userID)
				cancel()
				if err != nil {
					for _, m := range userMsgs {
						if err := m.Nak(); err != nil {
							log.Warn("counter_consumer: nak", zap.Error(err))
						}
					}
					continue
				}
				for _, m := range userMsgs {
					ack(m, log)
				}
			}
		}
	}()
}

func ack(m *nats.Msg, log *zap.Logger) {
	if err := m.Ack(); err != nil {
		log.Warn("counter_consumer: ack", zap.Error(err))
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
