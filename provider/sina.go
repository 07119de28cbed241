package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"
	"stockdata/log"

	"go.uber.org/zap"
)

const (
	sinaSpotUrl = "http://vip.stock.finance.sina.com.cn/quotes_service/api/json_v2.php/Market_Center.getHQNodeData?page=%d&num=%d&sort=symbol&asc=1&node=hs_a"
	sinaKMinUrl = "https://quotes.sina.cn/cn/api/jsonp_v2.php/var/CN_MarketDataService.getKLineData?symbol=%s&scale=%d&ma=no&datalen=%d"
	sinaUSUrl   = "https://stock.finance.sina.com.cn/usstock/api/json_v2.php/US_CategoryService.getList?page=%d&num=%d&sort=&asc=0"

	sinaSpotPageSize = 80
	sinaUSPageSize   = 60
	sinaMaxPages     = 80
)

// cnListedCode keeps only listed codes, bare or with an exchange prefix.
var cnListedCode = regexp.MustCompile(`^(sh|sz|bj)?[0-9]{6}$`)

// usListedCode keeps plain 1-5 letter tickers, dropping warrants and
// delisted placeholders.
var usListedCode = regexp.MustCompile(`^[A-Za-z]{1,5}$`)

type sinaSpotRow struct {
	Symbol string `json:"symbol"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Trade  string `json:"trade"`
}

// SinaCNSpot pulls the full A-share spot list page by page and returns
// it as a frame with source column names. Codes failing the listed-code
// shape are dropped here, before normalization.
func SinaCNSpot() (*frame.Frame, *errs.Error) {
	var codes, names, markets []interface{}
	for page := 1; page <= sinaMaxPages; page++ {
		body, err := GetText(fmt.Sprintf(sinaSpotUrl, page, sinaSpotPageSize), "", true)
		if err != nil {
			return nil, err
		}
		body = strings.TrimSpace(body)
		if body == "" || body == "null" || body == "[]" {
			break
		}
		var rows []*sinaSpotRow
		if err_ := json.Unmarshal([]byte(fixSinaJson(body)), &rows); err_ != nil {
			return nil, errs.New(core.ErrNonDataResponse, err_)
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			if !cnListedCode.MatchString(r.Symbol) {
				continue
			}
			codes = append(codes, r.Symbol)
			names = append(names, r.Name)
			markets = append(markets, marketPrefix(r.Symbol))
		}
	}
	log.Info("cn spot list fetched", zap.Int("num", len(codes)))
	return frame.New().
		Add("代码", codes).
		Add("名称", names).
		Add("market", markets), nil
}

// marketPrefix is the first two characters of a prefixed code (sh/sz/bj).
func marketPrefix(symbol string) string {
	if len(symbol) >= 2 && !isDigit(symbol[0]) {
		return symbol[:2]
	}
	return ""
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

type sinaKline struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// SinaCNKline fetches bars for one prefixed code. scale is the bar
// width in minutes, 240 for day bars.
func SinaCNKline(symbol string, scale, datalen int) (*frame.Frame, *errs.Error) {
	body, err := GetText(fmt.Sprintf(sinaKMinUrl, symbol, scale, datalen), "", false)
	if err != nil {
		return nil, err
	}
	body = stripJsonp(body)
	if body == "" || body == "null" {
		return nil, errs.NewMsg(core.ErrEmptyResult, "no kline for %s", symbol)
	}
	var rows []*sinaKline
	if err_ := json.Unmarshal([]byte(body), &rows); err_ != nil {
		return nil, errs.New(core.ErrNonDataResponse, err_)
	}
	f := frame.New()
	day := make([]interface{}, len(rows))
	open := make([]interface{}, len(rows))
	high := make([]interface{}, len(rows))
	low := make([]interface{}, len(rows))
	cls := make([]interface{}, len(rows))
	vol := make([]interface{}, len(rows))
	for i, r := range rows {
		day[i], open[i], high[i], low[i], cls[i], vol[i] = r.Day, r.Open, r.High, r.Low, r.Close, r.Volume
	}
	f.Add("day", day).Add("open", open).Add("high", high).
		Add("low", low).Add("close", cls).Add("volume", vol)
	return f, nil
}

type sinaUSRow struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	CName  string `json:"cname"`
}

type sinaUSPage struct {
	Count string       `json:"count"`
	Data  []*sinaUSRow `json:"data"`
}

// SinaUSList pulls the US ticker catalog with English and Chinese names.
func SinaUSList() (*frame.Frame, *errs.Error) {
	var codes, names, cnames []interface{}
	for page := 1; page <= sinaMaxPages; page++ {
		body, err := GetText(fmt.Sprintf(sinaUSUrl, page, sinaUSPageSize), "", false)
		if err != nil {
			return nil, err
		}
		var res sinaUSPage
		if err_ := json.Unmarshal([]byte(strings.TrimSpace(body)), &res); err_ != nil {
			return nil, errs.New(core.ErrNonDataResponse, err_)
		}
		if len(res.Data) == 0 {
			break
		}
		for _, r := range res.Data {
			if !usListedCode.MatchString(r.Symbol) {
				continue
			}
			codes = append(codes, strings.ToUpper(r.Symbol))
			names = append(names, r.Name)
			cnames = append(cnames, r.CName)
		}
	}
	log.Info("us ticker list fetched", zap.Int("num", len(codes)))
	return frame.New().
		Add("symbol", codes).
		Add("name", names).
		Add("cname", cnames), nil
}

// fixSinaJson quotes the bare keys the spot endpoint emits.
var bareKeyRe = regexp.MustCompile(`([{,])(\w+):`)

func fixSinaJson(body string) string {
	return bareKeyRe.ReplaceAllString(body, `$1"$2":`)
}

// stripJsonp unwraps `var xxx=(...)` style padding around the payload.
func stripJsonp(body string) string {
	body = strings.TrimSpace(body)
	if i := strings.Index(body, "=("); i >= 0 {
		body = body[i+2:]
		body = strings.TrimSuffix(body, ");")
	}
	if i := strings.IndexAny(body, "[{"); i > 0 {
		body = body[i:]
	}
	body = strings.TrimSuffix(body, ";")
	body = strings.TrimSuffix(body, ")")
	return strings.TrimSpace(body)
}
