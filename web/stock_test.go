package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"
	"stockdata/orm"

	"github.com/gofiber/fiber/v2"
)

type stubStore struct {
	stocks []*orm.Stock
	bars   map[string][]*frame.Bar // keyed table name
	latest time.Time
	calls  []string
}

func (s *stubStore) ListStocks(ctx context.Context, market string) ([]*orm.Stock, *errs.Error) {
	s.calls = append(s.calls, "list:"+market)
	if market == "xx" {
		return nil, errs.NewMsg(core.ErrBadConfig, "unsupported market: %s", market)
	}
	return s.stocks, nil
}

func (s *stubStore) QueryBars(ctx context.Context, table *orm.Table, code string, start, end time.Time, limit int) ([]*frame.Bar, *errs.Error) {
	s.calls = append(s.calls, "bars:"+table.Name)
	if !start.IsZero() {
		var inWindow []*frame.Bar
		for _, b := range s.bars[table.Name] {
			if !b.Time.Before(start) && b.Time.Before(end) {
				inWindow = append(inWindow, b)
			}
		}
		return inWindow, nil
	}
	return s.bars[table.Name], nil
}

func (s *stubStore) LatestBarDate(ctx context.Context, table *orm.Table, code string) (time.Time, *errs.Error) {
	s.calls = append(s.calls, "latest:"+table.Name)
	return s.latest, nil
}

func newTestApp(s *stubStore) *fiber.App {
	store = s
	listCache.Clear()
	app := fiber.New(fiber.Config{ErrorHandler: ErrHandler})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	RegApiStock(app.Group("/api"))
	return app
}

func doReq(t *testing.T, app *fiber.App, url string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rsp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer rsp.Body.Close()
	body, _ := io.ReadAll(rsp.Body)
	return rsp.StatusCode, body
}

func minuteBars(day time.Time, num int) []*frame.Bar {
	bars := make([]*frame.Bar, num)
	for i := range bars {
		bars[i] = &frame.Bar{Code: "600519", Time: day.Add(time.Duration(i) * time.Minute),
			Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000}
	}
	return bars
}

func TestHealth(t *testing.T) {
	app := newTestApp(&stubStore{})
	status, body := doReq(t, app, "/health")
	if status != http.StatusOK {
		t.Fatalf("health status %d", status)
	}
	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil || m["status"] != "healthy" {
		t.Fatalf("health body: %s", body)
	}
}

func TestStockDataMissingCode(t *testing.T) {
	app := newTestApp(&stubStore{})
	status, _ := doReq(t, app, "/api/stock/data?market=cn")
	if status != http.StatusBadRequest {
		t.Fatalf("missing code should be 400, got %d", status)
	}
}

func TestStockDataBadType(t *testing.T) {
	app := newTestApp(&stubStore{})
	status, _ := doReq(t, app, "/api/stock/data?code=600519&dataType=weekly")
	if status != http.StatusBadRequest {
		t.Fatalf("bad dataType should be 400, got %d", status)
	}
}

func TestStockDataLatest(t *testing.T) {
	day := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	s := &stubStore{bars: map[string][]*frame.Bar{"cn_data_realtime": minuteBars(day, 3)}}
	app := newTestApp(s)
	status, body := doReq(t, app, "/api/stock/data?market=cn&code=600519")
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	var m struct {
		Datetime []string  `json:"datetime"`
		Close    []float64 `json:"close"`
		Volume   []int64   `json:"volume"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(m.Datetime) != 3 || m.Datetime[0] != "2024-03-05 09:30:00" {
		t.Fatalf("time axis: %v", m.Datetime)
	}
	if m.Close[1] != 10.5 || m.Volume[2] != 1000 {
		t.Fatalf("columns: %+v", m)
	}
}

func TestStockDataNotFound(t *testing.T) {
	app := newTestApp(&stubStore{bars: map[string][]*frame.Bar{}})
	status, _ := doReq(t, app, "/api/stock/data?market=cn&code=999999")
	if status != http.StatusNotFound {
		t.Fatalf("empty direct lookup should be 404, got %d", status)
	}
}

func TestStockDataDateWidening(t *testing.T) {
	day := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	s := &stubStore{
		bars:   map[string][]*frame.Bar{"cn_data_realtime": minuteBars(day, 2)},
		latest: day,
	}
	app := newTestApp(s)
	// 2024-03-09 is a Saturday with no rows; widen to the latest date
	status, body := doReq(t, app, "/api/stock/data?market=cn&code=600519&startTime=2024-03-09")
	if status != http.StatusOK {
		t.Fatalf("widened lookup should succeed, got %d: %s", status, body)
	}
	var m struct {
		Datetime []string `json:"datetime"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(m.Datetime) != 2 {
		t.Fatalf("want the latest day's 2 rows, got %v", m.Datetime)
	}
}

func TestStockDataDayTable(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	s := &stubStore{bars: map[string][]*frame.Bar{"us_data_day": {
		{Code: "AAPL", Time: day, Open: 180, High: 186, Low: 179, Close: 185, Volume: 52000000},
	}}}
	app := newTestApp(s)
	status, _ := doReq(t, app, "/api/stock/data?market=us&code=AAPL&dataType=day")
	if status != http.StatusOK {
		t.Fatalf("day lookup status %d", status)
	}
	if s.calls[0] != "bars:us_data_day" {
		t.Fatalf("wrong table hit: %v", s.calls)
	}
}

func TestStockList(t *testing.T) {
	s := &stubStore{stocks: []*orm.Stock{
		{Code: "AAPL", Name: "Apple Inc", CName: "苹果"},
		{Code: "MSFT", Name: "Microsoft"},
	}}
	app := newTestApp(s)
	status, body := doReq(t, app, "/api/stock/list?market=us")
	if status != http.StatusOK {
		t.Fatalf("list status %d", status)
	}
	var items []map[string]string
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(items) != 2 || items[0]["cname"] != "苹果" {
		t.Fatalf("list body: %s", body)
	}
	if _, ok := items[1]["cname"]; ok {
		t.Fatal("empty cname should be omitted")
	}
}

func TestStockListBadMarket(t *testing.T) {
	app := newTestApp(&stubStore{})
	status, _ := doReq(t, app, "/api/stock/list?market=xx")
	if status != http.StatusBadRequest {
		t.Fatalf("unknown market should be 400, got %d", status)
	}
}
