package market

import (
	"context"
	"strings"
	"time"

	"stockdata/config"
	"stockdata/core"
	"stockdata/errs"
	"stockdata/fetch"
	"stockdata/frame"
	"stockdata/orm"
	"stockdata/provider"
	"stockdata/utils"
)

// HK driver. Codes in config use the 5-digit HKEX notation (00700). The
// chart feed accepts several spellings depending on listing age, so day
// cycles rotate through them across retries.
type hkDriver struct{}

func (d *hkDriver) Name() string { return core.MarketHK }

// hkSymbols are the spellings tried per attempt, most common first.
func hkSymbols(code string) []string {
	trimmed := strings.TrimPrefix(code, "0")
	return []string{trimmed + ".HK", code + ".HK", trimmed}
}

// adjustOptions alternates adjusted and raw closes across attempts.
var adjustOptions = []map[string]interface{}{
	{"adjust": true},
	{"adjust": false},
}

// CodeList for hk is config-driven: there is no reliable free catalog
// feed, so the table mirrors the configured code universe.
func (d *hkDriver) CodeList(ctx context.Context) *errs.Error {
	cfg := marketCfg(core.MarketHK)
	seen := map[string]bool{}
	var rows [][]interface{}
	for _, code := range append(append([]string{}, cfg.DayCodes...), cfg.MinuteCodes...) {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		rows = append(rows, []interface{}{code, ""})
	}
	if len(rows) == 0 {
		return nil
	}
	table, err := orm.StockTable(core.MarketHK)
	if err != nil {
		return err
	}
	return orm.ReplaceStocks(ctx, table, []string{"code", "name"}, rows)
}

// DayBars backfills one year per code, harder retry budget than the
// default, with a synthetic walk as the terminal fallback so charts
// stay drawable through a feed outage.
func (d *hkDriver) DayBars(ctx context.Context) *errs.Error {
	start, end := dayWindow()
	loc := utils.MarketLoc(core.MarketHK)
	eachCode("hk.day", marketCfg(core.MarketHK).DayCodes, func(code string) *errs.Error {
		ctl := fetch.NewController("hk.day", core.DayRetryNum, core.DayRetryWaitS)
		ctl.Symbols = hkSymbols(code)
		ctl.Options = adjustOptions
		ctl.Fallback = func() (*frame.Frame, fetch.Source, *errs.Error) {
			return fetch.SyntheticDaily(fetch.HKWalk, code, start, end), fetch.SourceSynthetic, nil
		}
		res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
			adjust, _ := req.Options["adjust"].(bool)
			return provider.YahooChart(req.Symbol, start, end, "1d", adjust, loc)
		})
		if err != nil {
			return err
		}
		_, err = storeBars(ctx, core.MarketHK, core.GranDay, code, res)
		return err
	})
	return nil
}

// MinuteBars pulls the last trading day's 1-minute bars. No fallback;
// synthetic minute data would poison the realtime table.
func (d *hkDriver) MinuteBars(ctx context.Context) *errs.Error {
	end := time.Now()
	start := end.AddDate(0, 0, -1)
	loc := utils.MarketLoc(core.MarketHK)
	eachCode("hk.minute", marketCfg(core.MarketHK).MinuteCodes, func(code string) *errs.Error {
		ctl := fetch.NewController("hk.minute", config.API.MaxRetries, config.API.RetryInterval)
		ctl.Symbols = hkSymbols(code)
		res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
			return provider.YahooChart(req.Symbol, start, end, "1m", true, loc)
		})
		if err != nil {
			return err
		}
		_, err = storeBars(ctx, core.MarketHK, core.GranMinute, code, res)
		return err
	})
	return nil
}
