package frame

import (
	"testing"
	"time"
)

func dayCoercer() *Coercer {
	return NewCoercer(true, time.UTC)
}

func TestCoerceChineseScenario(t *testing.T) {
	src := New().
		Add("日期", []interface{}{"2024-01-02"}).
		Add("收盘", []interface{}{10.5})
	norm, err := Normalize(src)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	bars, dropped, err := dayCoercer().Apply(norm, "600519")
	if err != nil || dropped != 0 {
		t.Fatalf("coerce failed: err=%v dropped=%d", err, dropped)
	}
	if len(bars) != 1 {
		t.Fatalf("want 1 bar, got %d", len(bars))
	}
	b := bars[0]
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !b.Time.Equal(want) {
		t.Fatalf("time mismatch: %v", b.Time)
	}
	if b.Close != 10.5 || b.Open != 0 || b.High != 0 || b.Low != 0 || b.Volume != 0 {
		t.Fatalf("unexpected bar: %+v", b)
	}
}

func TestCoerceUnparseableVolumeZeroed(t *testing.T) {
	f := New().
		Add("datetime", []interface{}{"2024-01-02"}).
		Add("close", []interface{}{9.9}).
		Add("volume", []interface{}{"abc"})
	bars, dropped, err := dayCoercer().Apply(f, "00700")
	if err != nil || dropped != 0 || len(bars) != 1 {
		t.Fatalf("row should be kept: err=%v dropped=%d n=%d", err, dropped, len(bars))
	}
	if bars[0].Volume != 0 {
		t.Fatalf("volume should degrade to 0, got %d", bars[0].Volume)
	}
}

func TestCoerceBadDatetimeDropsRow(t *testing.T) {
	f := New().
		Add("datetime", []interface{}{"not-a-date", "2024-01-03"}).
		Add("close", []interface{}{1.0, 2.0})
	bars, dropped, err := dayCoercer().Apply(f, "AAPL")
	if err != nil {
		t.Fatalf("coerce failed: %v", err)
	}
	if dropped != 1 || len(bars) != 1 {
		t.Fatalf("want 1 dropped / 1 kept, got %d / %d", dropped, len(bars))
	}
	if bars[0].Close != 2.0 {
		t.Fatalf("wrong row survived: %+v", bars[0])
	}
}

func TestCoerceEmptyCodeAborts(t *testing.T) {
	f := New().
		Add("datetime", []interface{}{"2024-01-02"}).
		Add("close", []interface{}{1.0})
	if _, _, err := dayCoercer().Apply(f, ""); err == nil {
		t.Fatal("empty code should abort the fetch")
	}
}

func TestCoerceIdempotent(t *testing.T) {
	f := New().
		Add("datetime", []interface{}{"2024/01/02", "2024-01-03"}).
		Add("open", []interface{}{"1.5", 2.5}).
		Add("high", []interface{}{3.0, "4"}).
		Add("low", []interface{}{1.0, 2.0}).
		Add("close", []interface{}{2.0, 3.0}).
		Add("volume", []interface{}{"100", 200})
	c := dayCoercer()
	first, _, err := c.Apply(f, "600000")
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	// Re-feed the canonical rows as a frame.
	again := New()
	var dt, op, hi, lo, cl, vol []interface{}
	for _, b := range first {
		dt = append(dt, b.Time)
		op = append(op, b.Open)
		hi = append(hi, b.High)
		lo = append(lo, b.Low)
		cl = append(cl, b.Close)
		vol = append(vol, b.Volume)
	}
	again.Add("datetime", dt).Add("open", op).Add("high", hi).
		Add("low", lo).Add("close", cl).Add("volume", vol)
	second, dropped, err := c.Apply(again, "600000")
	if err != nil || dropped != 0 {
		t.Fatalf("second pass failed: err=%v dropped=%d", err, dropped)
	}
	if len(first) != len(second) {
		t.Fatalf("row count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			t.Fatalf("row %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCoerceMinuteKeepsTimeOfDay(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	ts := time.Date(2024, 5, 6, 10, 31, 0, 0, loc)
	f := New().
		Add("datetime", []interface{}{ts}).
		Add("close", []interface{}{388.2})
	bars, _, err := NewCoercer(false, loc).Apply(f, "00700")
	if err != nil || len(bars) != 1 {
		t.Fatalf("coerce failed: %v", err)
	}
	if !bars[0].Time.Equal(ts) {
		t.Fatalf("minute bar time must keep time-of-day, got %v", bars[0].Time)
	}
}

func TestCoerceEpochFormats(t *testing.T) {
	f := New().
		Add("datetime", []interface{}{int64(1700000000), "1700000000000"}).
		Add("close", []interface{}{1.0, 2.0})
	bars, dropped, err := NewCoercer(false, time.UTC).Apply(f, "AAPL")
	if err != nil || dropped != 0 || len(bars) != 2 {
		t.Fatalf("coerce failed: err=%v dropped=%d n=%d", err, dropped, len(bars))
	}
	if !bars[0].Time.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("epoch seconds mismatch: %v", bars[0].Time)
	}
	if !bars[1].Time.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("epoch millis mismatch: %v", bars[1].Time)
	}
}

func TestParsePriceAndVolume(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{"10.5", 10.5},
		{"1,234.5", 1234.5},
		{"", 0},
		{"-", 0},
		{"n/a", 0},
		{nil, 0},
		{12, 12},
	}
	for _, c := range cases {
		if got := ParsePrice(c.in); got != c.want {
			t.Fatalf("ParsePrice(%v)=%v want %v", c.in, got, c.want)
		}
	}
	if got := ParseVolume("123456"); got != 123456 {
		t.Fatalf("ParseVolume string failed: %d", got)
	}
	if got := ParseVolume("12.9"); got != 12 {
		t.Fatalf("ParseVolume float text should truncate: %d", got)
	}
	if got := ParseVolume("abc"); got != 0 {
		t.Fatalf("ParseVolume junk should be 0: %d", got)
	}
}
