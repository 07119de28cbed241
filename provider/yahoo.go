package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"
)

const yahooChartUrl = "https://query1.finance.yahoo.com/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s&includePrePost=false&includeAdjustedClose=%t"

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooChart fetches bars for one symbol over [start, end) at the given
// interval (1d, 1m). The result mirrors the feed's own shape: a
// time-valued index in the market timezone plus capitalized columns.
// adjust asks for split/dividend adjusted closes; drivers alternate it
// across retries since some symbols only resolve one way.
func YahooChart(symbol string, start, end time.Time, interval string, adjust bool, loc *time.Location) (*frame.Frame, *errs.Error) {
	url := fmt.Sprintf(yahooChartUrl, symbol, start.Unix(), end.Unix(), interval, adjust)
	body, err := GetText(url, "", false)
	if err != nil {
		return nil, err
	}
	return parseYahooChart(symbol, body, loc)
}

func parseYahooChart(symbol, body string, loc *time.Location) (*frame.Frame, *errs.Error) {
	var res yahooChart
	if err_ := json.Unmarshal([]byte(body), &res); err_ != nil {
		return nil, errs.New(core.ErrNonDataResponse, err_)
	}
	if res.Chart.Error != nil {
		return nil, errs.NewMsg(core.ErrNetReadFail, "%s: %s %s", symbol,
			res.Chart.Error.Code, res.Chart.Error.Description)
	}
	if len(res.Chart.Result) == 0 {
		return nil, errs.NewMsg(core.ErrEmptyResult, "no chart result for %s", symbol)
	}
	r := res.Chart.Result[0]
	if len(r.Timestamp) == 0 || len(r.Indicators.Quote) == 0 {
		return nil, errs.NewMsg(core.ErrEmptyResult, "no bars for %s", symbol)
	}
	q := r.Indicators.Quote[0]
	f := frame.New()
	f.Index = make([]time.Time, 0, len(r.Timestamp))
	open := make([]interface{}, 0, len(r.Timestamp))
	high := make([]interface{}, 0, len(r.Timestamp))
	low := make([]interface{}, 0, len(r.Timestamp))
	cls := make([]interface{}, 0, len(r.Timestamp))
	vol := make([]interface{}, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		// the feed pads unfinished bars with nulls, skip them
		if nilAt(q.Close, i) {
			continue
		}
		f.Index = append(f.Index, time.Unix(ts, 0).In(loc))
		open = append(open, deref(q.Open, i))
		high = append(high, deref(q.High, i))
		low = append(low, deref(q.Low, i))
		cls = append(cls, deref(q.Close, i))
		vol = append(vol, derefVol(q.Volume, i))
	}
	f.Add("Open", open).Add("High", high).Add("Low", low).
		Add("Close", cls).Add("Volume", vol)
	return f, nil
}

func nilAt(vals []*float64, i int) bool {
	return i >= len(vals) || vals[i] == nil
}

func deref(vals []*float64, i int) interface{} {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return nil
}

func derefVol(vals []*int64, i int) interface{} {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return nil
}
