package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ChangeListener receives order change notifications over a dedicated
// pooled connection.
type ChangeListener struct {
	pool   *pgxpool.Pool
	conn   *pgxpool.Conn
	logger zerolog.Logger
}

// NewChangeListener creates a listener. The connection is acquired on the
// first call to Next.
func NewChangeListener(pool *pgxpool.Pool, logger zerolog.Logger) *ChangeListener {
	return &ChangeListener{
		pool:   pool,
		logger: logger.With().Str("repository", "order_listener").Logger(),
	}
}

// Next blocks until an order changes. After an error the connection is
// dropped and the following call listens on a fresh one.
func (l *ChangeListener) Next(ctx context.Context) (ChangeNotification, error) {
	if l.conn == nil {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			return ChangeNotification{}, fmt.Errorf("failed to acquire listener connection: %w", err)
		}
		if _, err := conn.Exec(ctx, "LISTEN "+OrderChangesChannel); err != nil {
			conn.Release()
			return ChangeNotification{}, fmt.Errorf("failed to listen on %s: %w", OrderChangesChannel, err)
		}
		l.conn = conn
		l.logger.Debug().Str("channel", OrderChangesChannel).Msg("listening for order changes")
	}

	n, err := l.conn.Conn().WaitForNotification(ctx)
	if err != nil {
		l.Close()
		return ChangeNotification{}, fmt.Errorf("failed to wait for notification: %w", err)
	}

	var change ChangeNotification
	if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
		l.logger.Warn().Err(err).Str("payload", n.Payload).Msg("malformed order change payload")
		return ChangeNotification{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	return change, nil
}

// Close releases the listening connection.
func (l *ChangeListener) Close() {
	if l.conn == nil {
		return
	}
	// A connection that was interrupted mid-wait cannot go back to the pool.
	_ = l.conn.Conn().Close(context.Background())
	l.conn.Release()
	l.conn = nil
}
