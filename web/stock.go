package web

import (
	"context"
	"time"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"
	"stockdata/orm"

	"github.com/dgraph-io/ristretto"
	"github.com/gofiber/fiber/v2"
)

// dataStore is the slice of the orm layer the handlers touch, kept as an
// interface so handler tests can run against a stub.
type dataStore interface {
	ListStocks(ctx context.Context, market string) ([]*orm.Stock, *errs.Error)
	QueryBars(ctx context.Context, table *orm.Table, code string, start, end time.Time, limit int) ([]*frame.Bar, *errs.Error)
	LatestBarDate(ctx context.Context, table *orm.Table, code string) (time.Time, *errs.Error)
}

type ormStore struct{}

func (ormStore) ListStocks(ctx context.Context, market string) ([]*orm.Stock, *errs.Error) {
	return orm.ListStocks(ctx, market)
}
func (ormStore) QueryBars(ctx context.Context, table *orm.Table, code string, start, end time.Time, limit int) ([]*frame.Bar, *errs.Error) {
	return orm.QueryBars(ctx, table, code, start, end, limit)
}
func (ormStore) LatestBarDate(ctx context.Context, table *orm.Table, code string) (time.Time, *errs.Error) {
	return orm.LatestBarDate(ctx, table, code)
}

var store dataStore = ormStore{}

// listCache holds stock-list responses briefly; the catalog tables only
// change on crawl cycles.
var listCache *ristretto.Cache

const listCacheTTL = time.Minute

func init() {
	listCache, _ = ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
}

func RegApiStock(api fiber.Router) {
	api.Get("/stock/data", getStockData)
	api.Get("/stock/list", getStockList)
}

type StockDataArgs struct {
	Market     string `query:"market"`
	Code       string `query:"code" validate:"required"`
	DataType   string `query:"dataType"`
	IsRealtime bool   `query:"isRealtime"`
	StartTime  string `query:"startTime"`
	EndTime    string `query:"endTime"`
	Limit      int    `query:"limit"`
}

// getStockData serves bars for one code as column-oriented JSON. With a
// start/end window the rows come from that window; a window that hits an
// empty day widens to the code's most recent stored date; without a
// window the latest N rows come back.
func getStockData(c *fiber.Ctx) error {
	var args StockDataArgs
	if err := VerifyArg(c, &args, ArgQuery); err != nil {
		return err
	}
	if args.Market == "" {
		args.Market = core.MarketCN
	}
	gran, err2 := resolveGran(args.DataType, args.IsRealtime)
	if err2 != nil {
		return err2
	}
	table, err := orm.BarTable(args.Market, gran)
	if err != nil {
		return &fiber.Error{Code: fiber.StatusBadRequest, Message: err.Message}
	}
	start, end, err2 := parseWindow(args.StartTime, args.EndTime)
	if err2 != nil {
		return err2
	}
	if args.Limit <= 0 || args.Limit > 1000 {
		args.Limit = 200
	}
	ctx := c.Context()
	bars, err := store.QueryBars(ctx, table, args.Code, start, end, args.Limit)
	if err != nil {
		return err
	}
	if len(bars) == 0 && !start.IsZero() {
		// widen an empty windowed lookup to the newest stored date
		latest, err := store.LatestBarDate(ctx, table, args.Code)
		if err != nil {
			return err
		}
		if !latest.IsZero() {
			y, m, d := latest.Date()
			dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			bars, err = store.QueryBars(ctx, table, args.Code, dayStart, dayStart.AddDate(0, 0, 1), 0)
			if err != nil {
				return err
			}
		}
	}
	if len(bars) == 0 {
		return &fiber.Error{Code: fiber.StatusNotFound,
			Message: "no data for code " + args.Code}
	}
	return c.JSON(barsToColumns(bars))
}

func resolveGran(dataType string, isRealtime bool) (string, error) {
	if isRealtime {
		return core.GranMinute, nil
	}
	switch dataType {
	case "", core.GranMinute:
		return core.GranMinute, nil
	case core.GranDay:
		return core.GranDay, nil
	}
	return "", &fiber.Error{Code: fiber.StatusBadRequest, Message: "dataType must be minute or day"}
}

var windowFormats = []string{core.DateFmt, core.DefaultDateFmt}

func parseWindow(startText, endText string) (time.Time, time.Time, error) {
	start, err := parseStamp(startText)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseStamp(endText)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.IsZero() && end.IsZero() {
		// single-date lookup: the window is that whole day
		end = start.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func parseStamp(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}
	for _, layout := range windowFormats {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &fiber.Error{Code: fiber.StatusBadRequest,
		Message: "bad time: " + text}
}

// barsToColumns shapes bars the way chart clients consume them: one
// array per field sharing an ISO time axis.
func barsToColumns(bars []*frame.Bar) fiber.Map {
	n := len(bars)
	dt := make([]string, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	clos := make([]float64, n)
	vol := make([]int64, n)
	for i, b := range bars {
		dt[i] = b.Time.Format(core.DefaultDateFmt)
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		clos[i] = b.Close
		vol[i] = b.Volume
	}
	return fiber.Map{
		"datetime": dt,
		"open":     open,
		"high":     high,
		"low":      low,
		"close":    clos,
		"volume":   vol,
	}
}

type StockListArgs struct {
	Market string `query:"market"`
}

func getStockList(c *fiber.Ctx) error {
	var args StockListArgs
	if err := VerifyArg(c, &args, ArgQuery); err != nil {
		return err
	}
	if args.Market == "" {
		args.Market = core.MarketCN
	}
	if cached, ok := listCache.Get(args.Market); ok {
		return c.JSON(cached)
	}
	stocks, err := store.ListStocks(c.Context(), args.Market)
	if err != nil {
		if err.Code == core.ErrBadConfig {
			return &fiber.Error{Code: fiber.StatusBadRequest, Message: err.Message}
		}
		return err
	}
	result := make([]fiber.Map, 0, len(stocks))
	for _, s := range stocks {
		item := fiber.Map{"code": s.Code, "name": s.Name}
		if s.CName != "" {
			item["cname"] = s.CName
		}
		result = append(result, item)
	}
	listCache.SetWithTTL(args.Market, result, 1, listCacheTTL)
	return c.JSON(result)
}
