package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Channel is the Postgres notification channel raised by the jobs table
// trigger (see schema.sql).
const Channel = "job_events"

const reconnectDelay = 2 * time.Second

// Listener bridges Postgres LISTEN/NOTIFY into the in-process hub so the API
// service can stream status changes written by other processes (the generator
// host, the governor's failure paths). Notifications missed while
// disconnected are lost, which matches the side channel's contract.
type Listener struct {
	pool   *pgxpool.Pool
	hub    *Hub
	logger zerolog.Logger
}

func NewListener(pool *pgxpool.Pool, hub *Hub, logger zerolog.Logger) *Listener {
	return &Listener{pool: pool, hub: hub, logger: logger}
}

// Run blocks listening for job events until the context is canceled,
// reconnecting on connection loss.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn().Err(err).Msg("notify: listener disconnected, retrying")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+Channel); err != nil {
		return err
	}
	l.logger.Info().Str("channel", Channel).Msg("notify: listening for job events")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return err
		}

		var ev Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			l.logger.Warn().Err(err).Str("payload", notification.Payload).Msg("notify: bad event payload")
			continue
		}
		if !ev.Status.Terminal() {
			continue
		}
		l.hub.Publish(ev)
	}
}
