package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// PostgresLedgerStore implements LedgerStore on the trade_records and
// ledger_summaries tables. The ledger is append-only here; the only UPDATE
// issued is the summary upsert, which holds derived data.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

// ReadAll returns the whole ledger ordered by insertion time. The aggregator
// reads everything on every run, so there is no pagination.
func (s *PostgresLedgerStore) ReadAll(ctx context.Context) ([]models.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, subscription_date, offer_price, quantity,
		       invested_amount, sell_price, sell_date, profit, return_rate,
		       grade, created_at
		FROM trade_records
		ORDER BY created_at, id`)
	if err != nil {
		return nil, shared.WrapError(
			fmt.Errorf("failed to read trade ledger: %w", err),
			shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
			"ledger-store", "ReadAll", true,
		)
	}
	defer rows.Close()

	var records []models.TradeRecord
	for rows.Next() {
		var rec models.TradeRecord
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.SubscriptionDate, &rec.OfferPrice, &rec.Quantity,
			&rec.InvestedAmount, &rec.SellPrice, &rec.SellDate, &rec.Profit, &rec.ReturnRate,
			&rec.Grade, &rec.CreatedAt,
		); err != nil {
			return nil, shared.WrapError(
				fmt.Errorf("failed to scan trade record: %w", err),
				shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
				"ledger-store", "ReadAll", false,
			)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
			"ledger-store", "ReadAll", true)
	}
	return records, nil
}

// Append inserts one trade record. The record's ID and CreatedAt are assigned
// here when unset so callers can hand over bare request payloads.
func (s *PostgresLedgerStore) Append(ctx context.Context, record *models.TradeRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_records
			(id, name, subscription_date, offer_price, quantity,
			 invested_amount, sell_price, sell_date, profit, return_rate,
			 grade, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.ID, record.Name, record.SubscriptionDate, record.OfferPrice, record.Quantity,
		record.InvestedAmount, record.SellPrice, record.SellDate, record.Profit, record.ReturnRate,
		record.Grade, record.CreatedAt,
	)
	if err != nil {
		return shared.WrapError(
			fmt.Errorf("failed to append trade record: %w", err),
			shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
			"ledger-store", "Append", true,
		)
	}
	return nil
}

// SaveSummary upserts the latest monthly and yearly rollup rows, keyed by
// (period, scope) so the undated bucket can exist in both scopes.
func (s *PostgresLedgerStore) SaveSummary(ctx context.Context, summary *models.ProfitSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
			"ledger-store", "SaveSummary", true)
	}
	defer tx.Rollback()

	upsert := func(scope string, stat models.PeriodStat) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_summaries (period, scope, invested, profit, return_rate, trade_count, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
			ON CONFLICT (period, scope) DO UPDATE SET
				invested = EXCLUDED.invested,
				profit = EXCLUDED.profit,
				return_rate = EXCLUDED.return_rate,
				trade_count = EXCLUDED.trade_count,
				updated_at = CURRENT_TIMESTAMP`,
			stat.Period, scope, stat.Invested, stat.Profit, stat.ReturnRate, stat.Count,
		)
		return err
	}

	for _, m := range summary.Monthly {
		if err := upsert("monthly", m); err != nil {
			return shared.WrapError(
				fmt.Errorf("failed to upsert monthly summary %s: %w", m.Period, err),
				shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
				"ledger-store", "SaveSummary", true,
			)
		}
	}
	for _, y := range summary.Yearly {
		if err := upsert("yearly", y); err != nil {
			return shared.WrapError(
				fmt.Errorf("failed to upsert yearly summary %s: %w", y.Period, err),
				shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
				"ledger-store", "SaveSummary", true,
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeLedgerUnavailable,
			"ledger-store", "SaveSummary", true)
	}
	return nil
}
