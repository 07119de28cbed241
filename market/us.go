package market

import (
	"context"
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

// US driver. Tickers are plain letters (AAPL); the catalog feed also
// carries a Chinese display name stored alongside.
type usDriver struct{}

const usCodesSnapshot = "us_stock_codes.csv"

func (d *usDriver) Name() string { return core.MarketUS }

// usSymbols are the ticker spellings tried per attempt.
func usSymbols(code string) []string {
	return []string{code, code + ".US", code + "-NASDAQ"}
}

func (d *usDriver) CodeList(ctx context.Context) *errs.Error {
	ctl := fetch.NewController("us.codes", config.API.MaxRetries, config.API.RetryInterval)
	snapPath := fetch.SnapshotPath(usCodesSnapshot)
	ctl.Fallback = func() (*frame.Frame, fetch.Source, *errs.Error) {
		f, err := fetch.LoadSnapshot(snapPath)
		if err != nil {
			return nil, "", err
		}
		return f, fetch.SourceSnapshot, nil
	}
	res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
		return provider.SinaUSList()
	})
	if err != nil {
		return err
	}
	if res.Source == fetch.SourceLive {
		if err = fetch.SaveSnapshot(res.Frame, snapPath); err != nil {
			return err
		}
	}
	codeCol := res.Frame.Col("symbol")
	if codeCol == nil {
		codeCol = res.Frame.Col("code")
	}
	if codeCol == nil {
		return errs.NewMsg(core.ErrNormalize, "us code list has no symbol column")
	}
	nameCol, cnameCol := res.Frame.Col("name"), res.Frame.Col("cname")
	rows := make([][]interface{}, 0, res.Frame.NumRows())
	for i := 0; i < res.Frame.NumRows(); i++ {
		code, _ := codeCol.Cell(i).(string)
		if code == "" {
			continue
		}
		var name, cname interface{} = "", ""
		if nameCol != nil {
			name = nameCol.Cell(i)
		}
		if cnameCol != nil {
			cname = cnameCol.Cell(i)
		}
		rows = append(rows, []interface{}{code, name, cname})
	}
	table, err := orm.StockTable(core.MarketUS)
	if err != nil {
		return err
	}
	return orm.ReplaceStocks(ctx, table, []string{"code", "name", "cname"}, rows)
}

func (d *usDriver) DayBars(ctx context.Context) *errs.Error {
	start, end := dayWindow()
	loc := utils.MarketLoc(core.MarketUS)
	eachCode("us.day", marketCfg(core.MarketUS).DayCodes, func(code string) *errs.Error {
		ctl := fetch.NewController("us.day", core.DayRetryNum, core.DayRetryWaitS)
		ctl.Symbols = usSymbols(code)
		ctl.Options = adjustOptions
		ctl.Fallback = func() (*frame.Frame, fetch.Source, *errs.Error) {
			return fetch.SyntheticDaily(fetch.USWalk, code, start, end), fetch.SourceSynthetic, nil
		}
		res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
			adjust, _ := req.Options["adjust"].(bool)
			return provider.YahooChart(req.Symbol, start, end, "1d", adjust, loc)
		})
		if err != nil {
			return err
		}
		_, err = storeBars(ctx, core.MarketUS, core.GranDay, code, res)
		return err
	})
	return nil
}

// MinuteBars pulls the last session's 1-minute bars into the insert-only
// realtime table, so replays within a session never overwrite the first
// observation.
func (d *usDriver) MinuteBars(ctx context.Context) *errs.Error {
	end := time.Now()
	start := end.AddDate(0, 0, -1)
	loc := utils.MarketLoc(core.MarketUS)
	eachCode("us.minute", marketCfg(core.MarketUS).MinuteCodes, func(code string) *errs.Error {
		ctl := fetch.NewController("us.minute", config.API.MaxRetries, config.API.RetryInterval)
		ctl.Symbols = []string{code}
		res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
			return provider.YahooChart(req.Symbol, start, end, "1m", true, loc)
		})
		if err != nil {
			return err
		}
		_, err = storeBars(ctx, core.MarketUS, core.GranMinute, code, res)
		return err
	})
	return nil
}
