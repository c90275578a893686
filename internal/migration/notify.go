package migration

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Listener converts Postgres NOTIFY events on one channel into pulses the
// worker consumes. The chat backend fires the notification after bulk
// imports or when an operator requests a sweep.
type Listener struct {
	dsn     string
	channel string
	C       chan struct{}
}

func NewListener(dsn, channel string) *Listener {
	return &Listener{dsn: dsn, channel: channel, C: make(chan struct{}, 1)}
}

// Listen blocks until the context ends, reconnecting with capped backoff
// after connection loss.
func (l *Listener) Listen(ctx context.Context) error {
	delay := time.Second
	for {
		start := time.Now()
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > 30*time.Second {
			delay = time.Second
		}
		slog.Warn("notify listener disconnected", "channel", l.channel, "error", err, "retry_in", delay.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	slog.Info("listening for migration notifications", "channel", l.channel)

	for {
		if _, err := conn.WaitForNotification(ctx); err != nil {
			return err
		}
		select {
		case l.C <- struct{}{}:
		default:
			// a pulse is already pending
		}
	}
}
