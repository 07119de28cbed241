package orm

import (
	"context"
	"fmt"
	"time"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"
)

// Stock is one row of a market's code list.
type Stock struct {
	Code  string
	Name  string
	CName string
}

// ListStocks returns distinct codes for a market, capped so the list
// endpoint stays cheap. us_stocks also carries a Chinese display name.
func ListStocks(ctx context.Context, market string) ([]*Stock, *errs.Error) {
	table, err := StockTable(market)
	if err != nil {
		return nil, err
	}
	conn, err := Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	nameCols := "name, ''"
	if market == core.MarketUS {
		nameCols = "name, COALESCE(cname, '')"
	}
	sql := fmt.Sprintf("SELECT DISTINCT code, %s FROM %s ORDER BY code LIMIT %d",
		nameCols, table, core.ListQueryLimit)
	rows, err_ := conn.Query(ctx, sql)
	items, err_ := mapToItems(rows, err_, func() (*Stock, []any) {
		var s Stock
		return &s, []any{&s.Code, &s.Name, &s.CName}
	})
	if err_ != nil {
		return nil, NewDbErr(core.ErrDbReadFail, err_)
	}
	return items, nil
}

// CountStocks reports how many codes a market's catalog holds.
func CountStocks(ctx context.Context, market string) (int64, *errs.Error) {
	table, err := StockTable(market)
	if err != nil {
		return 0, err
	}
	conn, err := Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()
	var num int64
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err_ := conn.QueryRow(ctx, sql).Scan(&num); err_ != nil {
		return 0, NewDbErr(core.ErrDbReadFail, err_)
	}
	return num, nil
}

// QueryBars reads bars for one code. With a start and end the window is
// [start, end] in ascending time; with neither, the latest limit rows
// come back, re-sorted ascending so callers always see one ordering.
func QueryBars(ctx context.Context, table *Table, code string, start, end time.Time, limit int) ([]*frame.Bar, *errs.Error) {
	conn, err := Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	var sql string
	var args []any
	ranged := !start.IsZero() || !end.IsZero()
	if ranged {
		sql = fmt.Sprintf(`SELECT code, datetime, open, high, low, close, volume FROM %s
WHERE code = $1 AND datetime >= $2 AND datetime <= $3 ORDER BY datetime`, table.Name)
		args = []any{code, fmtStamp(table, start), fmtStamp(table, end)}
	} else {
		if limit <= 0 {
			limit = core.ListQueryLimit
		}
		sql = fmt.Sprintf(`SELECT code, datetime, open, high, low, close, volume FROM %s
WHERE code = $1 ORDER BY datetime DESC LIMIT %d`, table.Name, limit)
		args = []any{code}
	}
	rows, err_ := conn.Query(ctx, sql, args...)
	bars, err_ := mapToItems(rows, err_, func() (*frame.Bar, []any) {
		var b frame.Bar
		return &b, []any{&b.Code, &b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume}
	})
	if err_ != nil {
		return nil, NewDbErr(core.ErrDbReadFail, err_)
	}
	if !ranged {
		for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
			bars[i], bars[j] = bars[j], bars[i]
		}
	}
	return bars, nil
}

// LatestBarDate reports the newest datetime stored for a code, zero time
// when the code has no rows. Used to widen single-date lookups that come
// back empty on non-trading days.
func LatestBarDate(ctx context.Context, table *Table, code string) (time.Time, *errs.Error) {
	conn, err := Conn(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()
	sql := fmt.Sprintf("SELECT MAX(datetime) FROM %s WHERE code = $1", table.Name)
	var latest *time.Time
	if err_ := conn.QueryRow(ctx, sql, code).Scan(&latest); err_ != nil {
		return time.Time{}, NewDbErr(core.ErrDbReadFail, err_)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

// fmtStamp renders a window bound to match the column type: date-only
// tables compare against a date literal, realtime ones a full timestamp.
func fmtStamp(table *Table, t time.Time) string {
	if table.Daily {
		return t.Format(core.DateFmt)
	}
	return t.Format(core.DefaultDateFmt)
}
