package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log"
)

// Advisory lock classes, the first key of pg_advisory_lock(int, int)
const (
	ContactLockClass  = 7301
	CampaignLockClass = 7302
)

// Locker serializes work on one id across workers
type Locker interface {
	Lock(ctx context.Context, id int) (unlock func(), err error)
}

type advisoryLocker struct {
	db    *sql.DB
	class int
}

// NewAdvisoryLocker returns a Locker backed by Postgres session advisory locks in class.
// Each lock pins one pooled connection until it is released.
func NewAdvisoryLocker(db *sql.DB, class int) Locker {
	return &advisoryLocker{db: db, class: class}
}

// Lock blocks until the advisory lock on id is held or ctx is done
func (l *advisoryLocker) Lock(ctx context.Context, id int) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock connection: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1, $2)`, l.class, id); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to lock %d/%d: %w", l.class, id, err)
	}

	return func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1, $2)`, l.class, id); err != nil {
			log.Printf("⚠️  Failed to unlock %d/%d, discarding connection: %v", l.class, id, err)
			// A session lock dies with its connection; never hand it back to the pool.
			conn.Raw(func(interface{}) error { return driver.ErrBadConn })
		}
		conn.Close()
	}, nil
}
