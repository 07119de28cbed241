package market

import (
	"context"
	"strings"

	"stockdata/config"
	"stockdata/core"
	"stockdata/errs"
	"stockdata/fetch"
	"stockdata/frame"
	"stockdata/orm"
	"stockdata/provider"
)

// A-share driver. Codes in config use source notation (sh600519); the
// exchange prefix is stripped before rows reach the store so downstream
// consumers always see bare 6-digit codes.
type cnDriver struct{}

const cnCodesSnapshot = "A_shares_stock_codes.csv"

func (d *cnDriver) Name() string { return core.MarketCN }

// CodeList refreshes cn_stocks from the spot feed. A successful live
// pull also rewrites the CSV snapshot that serves as the terminal
// fallback when the feed stays down.
func (d *cnDriver) CodeList(ctx context.Context) *errs.Error {
	ctl := fetch.NewController("cn.codes", config.API.MaxRetries, config.API.RetryInterval)
	snapPath := fetch.SnapshotPath(cnCodesSnapshot)
	ctl.Fallback = func() (*frame.Frame, fetch.Source, *errs.Error) {
		f, err := fetch.LoadSnapshot(snapPath)
		if err != nil {
			return nil, "", err
		}
		return f, fetch.SourceSnapshot, nil
	}
	res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
		return provider.SinaCNSpot()
	})
	if err != nil {
		return err
	}
	if res.Source == fetch.SourceLive {
		if err = fetch.SaveSnapshot(res.Frame, snapPath); err != nil {
			return err
		}
	}
	codeCol, nameCol, mktCol := res.Frame.Col("代码"), res.Frame.Col("名称"), res.Frame.Col("market")
	if codeCol == nil {
		codeCol, nameCol = res.Frame.Col("code"), res.Frame.Col("name")
	}
	if codeCol == nil {
		return errs.NewMsg(core.ErrNormalize, "cn code list has no code column")
	}
	rows := make([][]interface{}, 0, res.Frame.NumRows())
	for i := 0; i < res.Frame.NumRows(); i++ {
		code, _ := codeCol.Cell(i).(string)
		if code == "" {
			continue
		}
		var name, mkt interface{} = "", ""
		if nameCol != nil {
			name = nameCol.Cell(i)
		}
		if mktCol != nil {
			mkt = mktCol.Cell(i)
		}
		rows = append(rows, []interface{}{code, name, mkt})
	}
	table, err := orm.StockTable(core.MarketCN)
	if err != nil {
		return err
	}
	return orm.ReplaceStocks(ctx, table, []string{"code", "name", "market"}, rows)
}

// DayBars backfills one year of qfq day bars per configured code. No
// fallback here: stale real data beats synthetic for the cn charts, and
// the upsert means a later successful cycle heals the gap.
func (d *cnDriver) DayBars(ctx context.Context) *errs.Error {
	eachCode("cn.day", marketCfg(core.MarketCN).DayCodes, func(code string) *errs.Error {
		ctl := fetch.NewController("cn.day", core.DayRetryNum, core.DayRetryWaitS)
		ctl.Symbols = []string{code}
		res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
			return provider.SinaCNKline(req.Symbol, 240, core.DayBackDays)
		})
		if err != nil {
			return err
		}
		_, err = storeBars(ctx, core.MarketCN, core.GranDay, StripCNPrefix(code), res)
		return err
	})
	return nil
}

// MinuteBars pulls the current session's 1-minute bars. Realtime cycles
// run on a tight schedule, so no fallback: a miss is healed next minute.
func (d *cnDriver) MinuteBars(ctx context.Context) *errs.Error {
	eachCode("cn.minute", marketCfg(core.MarketCN).MinuteCodes, func(code string) *errs.Error {
		ctl := fetch.NewController("cn.minute", config.API.MaxRetries, config.API.RetryInterval)
		ctl.Symbols = []string{code}
		res, err := ctl.Run(func(req *fetch.Request) (*frame.Frame, *errs.Error) {
			return provider.SinaCNKline(req.Symbol, 1, 240)
		})
		if err != nil {
			return err
		}
		_, err = storeBars(ctx, core.MarketCN, core.GranMinute, StripCNPrefix(code), res)
		return err
	})
	return nil
}

// StripCNPrefix drops the exchange prefix from a cn code: sh600519
// becomes 600519. Bare codes pass through.
func StripCNPrefix(code string) string {
	for _, p := range []string{"sh", "sz", "bj"} {
		if strings.HasPrefix(code, p) {
			return code[len(p):]
		}
	}
	return code
}
