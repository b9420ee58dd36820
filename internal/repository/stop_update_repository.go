package repository

import (
	"context"
	"time"

	"volguard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const createStopUpdatesTable = `
CREATE TABLE IF NOT EXISTS stop_updates (
    id            BIGSERIAL   PRIMARY KEY,
    symbol        TEXT        NOT NULL,
    position_idx  INT         NOT NULL,
    current_price NUMERIC     NOT NULL,
    entry_price   NUMERIC     NOT NULL,
    profit_band   TEXT        NOT NULL,
    profit_pct    NUMERIC     NOT NULL,
    atr_value     NUMERIC     NOT NULL,
    new_stop      NUMERIC     NOT NULL,
    previous_stop NUMERIC,
    multiplier    NUMERIC     NOT NULL,
    reason        TEXT        NOT NULL,
    applied       BOOLEAN     NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_stop_updates_symbol_time
    ON stop_updates (symbol, created_at DESC);
`

// StopUpdateRepository keeps an audit trail of every stop-loss evaluation,
// applied or not.
type StopUpdateRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewStopUpdateRepository(pool PgxPool, tracer trace.Tracer) *StopUpdateRepository {
	return &StopUpdateRepository{pool: pool, tracer: tracer}
}

func (r *StopUpdateRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "stop-update-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createStopUpdatesTable)
	return err
}

func (r *StopUpdateRepository) Record(ctx context.Context, positionIdx int, u domain.StopLossUpdate, applied bool) error {
	_, span := r.tracer.Start(ctx, "stop-update-repo.record")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO stop_updates
		     (symbol, position_idx, current_price, entry_price, profit_band,
		      profit_pct, atr_value, new_stop, previous_stop, multiplier, reason, applied)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.Symbol, positionIdx, u.CurrentPrice, u.EntryPrice, string(u.CurrentBand),
		u.ProfitPct, u.ATRValue, u.NewStopLoss, u.PreviousStopLoss, u.MultiplierUsed, u.Reason, applied,
	)
	return err
}

// StopUpdateRecord is one persisted evaluation row.
type StopUpdateRecord struct {
	Symbol      string                `json:"symbol"`
	PositionIdx int                   `json:"position_idx"`
	Update      domain.StopLossUpdate `json:"update"`
	Applied     bool                  `json:"applied"`
	CreatedAt   time.Time             `json:"created_at"`
}

// RecentUpdates returns the latest evaluations for a symbol, oldest first.
func (r *StopUpdateRepository) RecentUpdates(ctx context.Context, symbol string, limit int) ([]StopUpdateRecord, error) {
	_, span := r.tracer.Start(ctx, "stop-update-repo.recent-updates")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, position_idx, current_price, entry_price, profit_band,
		        profit_pct, atr_value, new_stop, previous_stop, multiplier, reason, applied, created_at
		 FROM stop_updates
		 WHERE symbol = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StopUpdateRecord
	for rows.Next() {
		var rec StopUpdateRecord
		var band string
		var ts time.Time
		if err := rows.Scan(&rec.Symbol, &rec.PositionIdx, &rec.Update.CurrentPrice, &rec.Update.EntryPrice, &band,
			&rec.Update.ProfitPct, &rec.Update.ATRValue, &rec.Update.NewStopLoss, &rec.Update.PreviousStopLoss,
			&rec.Update.MultiplierUsed, &rec.Update.Reason, &rec.Applied, &ts); err != nil {
			return nil, err
		}
		rec.Update.Symbol = rec.Symbol
		rec.Update.CurrentBand = domain.ProfitBand(band)
		rec.CreatedAt = ts.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse: DB returns newest-first, callers render oldest-first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
