package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"guestcheckin/internal/domain"
)

// CheckInChannel is the NOTIFY channel check-in notices travel on between processes.
const CheckInChannel = "guest_checkins"

const (
	listenerMinReconnect = time.Second
	listenerMaxReconnect = time.Minute
	listenerKeepAlive    = 90 * time.Second
)

// CheckInPublisher sends check-in notices through Postgres NOTIFY so every process
// listening on CheckInChannel sees them, whichever process did the check-in.
type CheckInPublisher struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Timeout time.Duration
}

func NewCheckInPublisher(db *sql.DB, logger *slog.Logger, timeout time.Duration) *CheckInPublisher {
	return &CheckInPublisher{
		DB:      db,
		Logger:  logger,
		Timeout: timeout,
	}
}

// Publish implements domain.CheckInNotifier. A failed NOTIFY is logged; the check-in
// itself is already stored.
func (p *CheckInPublisher) Publish(notice domain.CheckInNotice) {
	payload, err := json.Marshal(notice)
	if err != nil {
		p.Logger.Error("encode check-in notice failed", "event_id", notice.EventID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()
	if _, err := p.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, CheckInChannel, string(payload)); err != nil {
		p.Logger.Error("notify check-in failed", "event_id", notice.EventID, "guest_id", notice.GuestID, "error", err)
	}
}

// CheckInListener receives the notices sent by CheckInPublisher.
type CheckInListener struct {
	listener *pq.Listener
	logger   *slog.Logger
}

// NewCheckInListener opens a dedicated LISTEN connection on CheckInChannel. The
// connection reconnects on its own after network failures.
func NewCheckInListener(dsn string, logger *slog.Logger) (*CheckInListener, error) {
	l := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("check-in listener connection", "event", ev, "error", err)
		}
	})
	if err := l.Listen(CheckInChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("listen %s: %w", CheckInChannel, err)
	}
	return &CheckInListener{listener: l, logger: logger}, nil
}

// Run relays every notice to notifier until ctx is done, then closes the connection.
func (l *CheckInListener) Run(ctx context.Context, notifier domain.CheckInNotifier) {
	defer l.listener.Close()
	relayCheckIns(ctx, l.listener.Notify, l.listener.Ping, listenerKeepAlive, notifier, l.logger)
}

func relayCheckIns(ctx context.Context, notes <-chan *pq.Notification, ping func() error, keepAlive time.Duration, notifier domain.CheckInNotifier, logger *slog.Logger) {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notes:
			if !ok {
				return
			}
			// nil after a reconnect; notices sent while disconnected are lost.
			if n == nil {
				continue
			}
			var notice domain.CheckInNotice
			if err := json.Unmarshal([]byte(n.Extra), &notice); err != nil {
				logger.Warn("ignoring malformed check-in notice", "payload", n.Extra, "error", err)
				continue
			}
			notifier.Publish(notice)
		case <-ticker.C:
			if err := ping(); err != nil {
				logger.Warn("check-in listener ping failed", "error", err)
			}
		}
	}
}
