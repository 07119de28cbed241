// Package market holds one driver per exchange region. A driver owns the
// full cycle for its market: pull from the feed through the retry
// controller, normalize and coerce the result, then hand bars to the
// store sink.
package market

import (
	"context"
	"time"

	"stockdata/config"
	"stockdata/core"
	"stockdata/errs"
	"stockdata/fetch"
	"stockdata/frame"
	"stockdata/log"
	"stockdata/orm"
	"stockdata/utils"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type Driver interface {
	Name() string
	// CodeList refreshes the market's stock catalog table.
	CodeList(ctx context.Context) *errs.Error
	// DayBars backfills day bars for the configured codes.
	DayBars(ctx context.Context) *errs.Error
	// MinuteBars pulls the latest realtime minute bars.
	MinuteBars(ctx context.Context) *errs.Error
}

var drivers = map[string]Driver{
	core.MarketCN: &cnDriver{},
	core.MarketHK: &hkDriver{},
	core.MarketUS: &usDriver{},
}

func Get(name string) (Driver, *errs.Error) {
	if d, ok := drivers[name]; ok {
		return d, nil
	}
	return nil, errs.NewMsg(core.ErrBadConfig, "unsupported market: %s", name)
}

func All() []Driver {
	return []Driver{drivers[core.MarketCN], drivers[core.MarketHK], drivers[core.MarketUS]}
}

// storeBars runs a fetched frame through normalize/coerce and writes the
// result. Returns the number of bars written.
func storeBars(ctx context.Context, market, gran, code string, res *fetch.Result) (int, *errs.Error) {
	table, err := orm.BarTable(market, gran)
	if err != nil {
		return 0, err
	}
	norm, err := frame.Normalize(res.Frame)
	if err != nil {
		return 0, err
	}
	if norm.TimeSynthesized {
		log.Warn("no time column in result, substituted processing time",
			zap.String("market", market), zap.String("code", code))
	}
	co := frame.NewCoercer(table.Daily, utils.MarketLoc(market))
	bars, dropped, err := co.Apply(norm, code)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		log.Warn("rows dropped for unparseable datetime",
			zap.String("market", market), zap.String("code", code), zap.Int("num", dropped))
	}
	if err = orm.InsertBars(ctx, table, bars); err != nil {
		return 0, err
	}
	if res.Source != fetch.SourceLive {
		log.Warn("stored non-live data", zap.String("market", market),
			zap.String("code", code), zap.String("source", string(res.Source)))
	}
	return len(bars), nil
}

// eachCode runs fn per code with a progress bar; one code's failure is
// logged and the cycle moves on.
func eachCode(label string, codes []string, fn func(code string) *errs.Error) {
	if len(codes) == 0 {
		log.Info("no codes configured, skip", zap.String("job", label))
		return
	}
	bar := progressbar.Default(int64(len(codes)), label)
	failed := 0
	for _, code := range codes {
		if err := fn(code); err != nil {
			failed++
			log.Error("code failed", zap.String("job", label),
				zap.String("code", code), zap.String("err", err.Short()))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	log.Info("cycle done", zap.String("job", label),
		zap.Int("total", len(codes)), zap.Int("failed", failed))
}

func dayWindow() (time.Time, time.Time) {
	end := time.Now()
	return end.AddDate(0, 0, -core.DayBackDays), end
}

func marketCfg(name string) *config.MarketConfig {
	return config.Market(name)
}
