package orm

import (
	"context"
	"fmt"
	"strings"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"
	"stockdata/log"

	"go.uber.org/zap"
)

// InsertBars writes canonical bars into a table in fixed-size batches,
// one transaction per batch and one upsert statement per row. A failed
// statement aborts only its batch; the error is returned for the driver
// to log, nothing is raised past the sink boundary.
func InsertBars(ctx context.Context, table *Table, bars []*frame.Bar) *errs.Error {
	if len(bars) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sql := upsertSQL(table)
	for _, batch := range Partition(len(bars), table.BatchSize) {
		tx, err := NewTx(ctx)
		if err != nil {
			return err
		}
		for _, b := range bars[batch[0]:batch[1]] {
			var dt interface{} = b.Time
			if table.Daily {
				dt = b.Time.Format(core.DateFmt)
			}
			if err = tx.Exec(ctx, sql, b.Code, dt, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				_ = tx.Close(ctx, false)
				return err
			}
		}
		if err = tx.Close(ctx, true); err != nil {
			return err
		}
	}
	log.Info("bars written", zap.String("table", table.Name), zap.Int("rows", len(bars)))
	return nil
}

// upsertSQL builds the per-row statement: update on (code, datetime)
// conflict plus a server-side watermark, or DO NOTHING for insert-only
// tables.
func upsertSQL(table *Table) string {
	base := fmt.Sprintf(`INSERT INTO %s (code, datetime, open, high, low, close, volume, update_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`, table.Name)
	if table.InsertOnly {
		return base + "\nON CONFLICT (code, datetime) DO NOTHING"
	}
	return base + `
ON CONFLICT (code, datetime) DO UPDATE
SET open = EXCLUDED.open,
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    close = EXCLUDED.close,
    volume = EXCLUDED.volume,
    update_time = NOW()`
}

// Partition splits n rows into [start, stop) index pairs of at most size.
func Partition(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var parts [][2]int
	for start := 0; start < n; start += size {
		stop := start + size
		if stop > n {
			stop = n
		}
		parts = append(parts, [2]int{start, stop})
	}
	return parts
}

// ReplaceStocks swaps a code-list table wholesale inside one
// transaction: the list is small and a per-cycle full replace matches
// how the upstream spot feeds behave (delisted codes disappear).
func ReplaceStocks(ctx context.Context, table string, cols []string, rows [][]interface{}) *errs.Error {
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := NewTx(ctx)
	if err != nil {
		return err
	}
	if err = tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		_ = tx.Close(ctx, false)
		return err
	}
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf(`INSERT INTO %s (%s, update_time) VALUES (%s, NOW())
ON CONFLICT (code) DO UPDATE SET update_time = NOW()`,
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	for _, row := range rows {
		if err = tx.Exec(ctx, sql, row...); err != nil {
			_ = tx.Close(ctx, false)
			return err
		}
	}
	if err = tx.Close(ctx, true); err != nil {
		return err
	}
	log.Info("code list replaced", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}
