package provider

import (
	"testing"
	"time"

	"stockdata/frame"
)

func TestStripJsonp(t *testing.T) {
	cases := []struct{ in, want string }{
		{`var t=([{"day":"2024-01-02"}]);`, `[{"day":"2024-01-02"}]`},
		{`[{"day":"2024-01-02"}]`, `[{"day":"2024-01-02"}]`},
		{"  null", "null"},
	}
	for _, c := range cases {
		if got := stripJsonp(c.in); got != c.want {
			t.Fatalf("stripJsonp(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFixSinaJson(t *testing.T) {
	in := `[{symbol:"sh600519",code:"600519",name:"贵州茅台",trade:"1500.00"}]`
	want := `[{"symbol":"sh600519","code":"600519","name":"贵州茅台","trade":"1500.00"}]`
	if got := fixSinaJson(in); got != want {
		t.Fatalf("fixSinaJson: %s", got)
	}
}

func TestCnListedCode(t *testing.T) {
	for _, ok := range []string{"600519", "sh600519", "sz000001", "bj830799"} {
		if !cnListedCode.MatchString(ok) {
			t.Fatalf("%s should match", ok)
		}
	}
	for _, bad := range []string{"hk00700", "sh12345", "6005190", "AAPL"} {
		if cnListedCode.MatchString(bad) {
			t.Fatalf("%s should not match", bad)
		}
	}
}

func TestUsListedCode(t *testing.T) {
	for _, ok := range []string{"A", "AAPL", "GOOGL", "brk"} {
		if !usListedCode.MatchString(ok) {
			t.Fatalf("%s should match", ok)
		}
	}
	for _, bad := range []string{"BRK.B", "AAPL7", "TOOLONG", ""} {
		if usListedCode.MatchString(bad) {
			t.Fatalf("%s should not match", bad)
		}
	}
}

func TestParseYahooChart(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1704153600,1704240000,1704326400],
		"indicators":{"quote":[{
			"open":[184.5,185.1,null],
			"high":[186.0,186.4,null],
			"low":[183.9,184.2,null],
			"close":[185.6,184.8,null],
			"volume":[52000000,48000000,null]}]}}],"error":null}}`
	ny, _ := time.LoadLocation("America/New_York")
	f, err := parseYahooChart("AAPL", body, ny)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("null-padded tail should be dropped, got %d rows", f.NumRows())
	}
	if len(f.Index) != 2 || f.Index[0].Location() != ny {
		t.Fatalf("index should carry market timezone: %v", f.Index)
	}
	if f.Col("Close").Cell(1) != 184.8 {
		t.Fatalf("close mismatch: %v", f.Col("Close").Cell(1))
	}
	if f.Col("Volume").Cell(0) != int64(52000000) {
		t.Fatalf("volume mismatch: %v", f.Col("Volume").Cell(0))
	}
}

func TestParseYahooChartFeedError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`
	if _, err := parseYahooChart("NOPE", body, time.UTC); err == nil {
		t.Fatal("feed error should surface")
	}
}

func TestParseYahooChartNormalizes(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1704153600],
		"indicators":{"quote":[{"open":[184.5],"high":[186.0],"low":[183.9],
		"close":[185.6],"volume":[52000000]}]}}],"error":null}}`
	f, err := parseYahooChart("AAPL", body, time.UTC)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	norm, err := frame.Normalize(f)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if norm.Col("close") == nil || norm.Col("datetime") == nil {
		t.Fatal("capitalized feed columns should resolve to canonical names")
	}
}

func TestMarketPrefix(t *testing.T) {
	if got := marketPrefix("sh600519"); got != "sh" {
		t.Fatalf("prefix: %s", got)
	}
	if got := marketPrefix("600519"); got != "" {
		t.Fatalf("bare code has no prefix: %s", got)
	}
}
