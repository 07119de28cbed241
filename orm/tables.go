package orm

import (
	"stockdata/core"
	"stockdata/errs"
)

// Table describes one (market, granularity) store target. One table per
// market and granularity, with realtime minute data and historical day
// data kept apart, all keyed (code, datetime).
type Table struct {
	Name       string
	Daily      bool // datetime column is date-only
	BatchSize  int  // sink batch size
	InsertOnly bool // ON CONFLICT DO NOTHING instead of update
}

var barTables = map[string]*Table{
	"cn." + core.GranDay:    {Name: "cn_data_day", Daily: true, BatchSize: core.BatchSizeCN},
	"cn." + core.GranMinute: {Name: "cn_data_realtime", BatchSize: core.BatchSizeCN},
	"hk." + core.GranDay:    {Name: "hk_data_day", Daily: true, BatchSize: core.BatchSizeCN},
	"hk." + core.GranMinute: {Name: "hk_data_realtime", BatchSize: core.BatchSizeCN},
	"us." + core.GranDay:    {Name: "us_data_day", Daily: true, BatchSize: core.BatchSizeUS},
	// Kept insert-only: the us realtime feed re-sends identical minute
	// rows within a session and the first observation wins there.
	"us." + core.GranMinute: {Name: "us_data_realtime", BatchSize: core.BatchSizeUS, InsertOnly: true},
}

var stockTables = map[string]string{
	core.MarketCN: "cn_stocks",
	core.MarketHK: "hk_stocks",
	core.MarketUS: "us_stocks",
}

// BarTable resolves the store table for a market and granularity.
func BarTable(market, gran string) (*Table, *errs.Error) {
	if t, ok := barTables[market+"."+gran]; ok {
		return t, nil
	}
	return nil, errs.NewMsg(core.ErrBadConfig, "no table for market=%s granularity=%s", market, gran)
}

// StockTable resolves the code-list table for a market.
func StockTable(market string) (string, *errs.Error) {
	if t, ok := stockTables[market]; ok {
		return t, nil
	}
	return "", errs.NewMsg(core.ErrBadConfig, "unsupported market: %s", market)
}
