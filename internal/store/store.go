// Package store persists the three append-only tables described in
// spec.md §6: meter_values, estats (status notifications) and
// transaccions (transaction start/stop events). The teacher repo has no
// SQL dependency at all, so this package is grounded on
// JoseRFJuniorLLMs-EV-IA's database/sql + lib/pq usage instead, the one
// pack repo that talks to Postgres directly.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/charging-platform/ocpp-central-system/internal/logger"
)

// Store is the persistence surface the action handlers write through.
// Every method is a synchronous single-row insert (spec.md §5: "Suspension
// points... Persistence writes (synchronous single-row inserts)").
type Store interface {
	InsertMeterValue(ctx context.Context, chargerID, connector int, transactionID int64, at time.Time, value, unit, measurand, sampleContext string) error
	InsertStatus(ctx context.Context, chargerID, connector int, status string, at time.Time, errorCode string) error
	InsertTransaction(ctx context.Context, chargerID int, status string, connector int, at time.Time, reason string) error
	Close() error
}

// Postgres is the Store backed by a Postgres database via lib/pq.
type Postgres struct {
	db  *sql.DB
	log *logger.Logger
}

// Config configures the Postgres connection pool.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open establishes the connection pool and verifies connectivity.
func Open(cfg Config, log *logger.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db, log: log}, nil
}

func (p *Postgres) InsertMeterValue(ctx context.Context, chargerID, connector int, transactionID int64, at time.Time, value, unit, measurand, sampleContext string) error {
	const q = `INSERT INTO meter_values (charger_id, connector, transaccio, hora, valor, unit, measurand, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := p.db.ExecContext(ctx, q, chargerID, connector, transactionID, at, value, unit, measurand, sampleContext)
	if err != nil {
		p.log.ErrorWithErr(err, "store: insert meter value failed")
	}
	return err
}

func (p *Postgres) InsertStatus(ctx context.Context, chargerID, connector int, status string, at time.Time, errorCode string) error {
	const q = `INSERT INTO estats (charger_id, connector, estat, hora, error_code)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := p.db.ExecContext(ctx, q, chargerID, connector, status, at, errorCode)
	if err != nil {
		p.log.ErrorWithErr(err, "store: insert status failed")
	}
	return err
}

func (p *Postgres) InsertTransaction(ctx context.Context, chargerID int, status string, connector int, at time.Time, reason string) error {
	const q = `INSERT INTO transaccions (charger_id, estat, connector, hora, motiu)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := p.db.ExecContext(ctx, q, chargerID, status, connector, at, reason)
	if err != nil {
		p.log.ErrorWithErr(err, "store: insert transaction failed")
	}
	return err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
