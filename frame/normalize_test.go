package frame

import (
	"testing"
	"time"
)

func TestNormalizeChineseAliases(t *testing.T) {
	src := New().
		Add("日期", []interface{}{"2024-01-02"}).
		Add("收盘", []interface{}{10.5})
	out, err := Normalize(src)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if out.TimeSynthesized {
		t.Fatal("time column was present, should not synthesize")
	}
	if got := out.Col("datetime").Cell(0); got != "2024-01-02" {
		t.Fatalf("datetime mismatch, got=%v", got)
	}
	if got := out.Col("close").Cell(0); got != 10.5 {
		t.Fatalf("close mismatch, got=%v", got)
	}
	for _, name := range []string{"open", "high", "low", "volume"} {
		if out.Col(name) != nil {
			t.Fatalf("column %s should be absent from source with only close+date", name)
		}
	}
}

func TestNormalizeMissingCloseFails(t *testing.T) {
	src := New().
		Add("date", []interface{}{"2024-01-02"}).
		Add("open", []interface{}{1.0})
	if _, err := Normalize(src); err == nil {
		t.Fatal("missing close should fail normalization")
	}
}

func TestNormalizeMissingBothFails(t *testing.T) {
	src := New().Add("foo", []interface{}{1, 2})
	if _, err := Normalize(src); err == nil {
		t.Fatal("missing datetime and close should fail normalization")
	}
}

func TestNormalizeIndexMaterialized(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	src := New().Add("Close", []interface{}{101.0})
	src.Index = []time.Time{ts}
	out, err := Normalize(src)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	got, ok := out.Col("datetime").Cell(0).(time.Time)
	if !ok || !got.Equal(ts) {
		t.Fatalf("index not materialized as datetime, got=%v", out.Col("datetime").Cell(0))
	}
}

func TestNormalizeSynthesizedTime(t *testing.T) {
	src := New().Add("close", []interface{}{5.0, 6.0})
	before := time.Now()
	out, err := Normalize(src)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !out.TimeSynthesized {
		t.Fatal("expected synthesized time flag")
	}
	got, ok := out.Col("datetime").Cell(1).(time.Time)
	if !ok || got.Before(before) {
		t.Fatalf("synthesized time invalid: %v", out.Col("datetime").Cell(1))
	}
}

func TestNormalizeFirstAliasWins(t *testing.T) {
	src := New().
		Add("day", []interface{}{"2024-01-02"}).
		Add("date", []interface{}{"1999-01-01"}).
		Add("close", []interface{}{1.0}).
		Add("最新价", []interface{}{2.0})
	out, err := Normalize(src)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got := out.Col("datetime").Cell(0); got != "2024-01-02" {
		t.Fatalf("day should outrank date, got=%v", got)
	}
	if got := out.Col("close").Cell(0); got != 1.0 {
		t.Fatalf("close should outrank 最新价, got=%v", got)
	}
}

func TestNormalizeCollapse2D(t *testing.T) {
	src := New().
		Add("date", []interface{}{"2024-01-02", "2024-01-03"}).
		Add("Close", []interface{}{[]interface{}{7.5}, []float64{8.5, 9.9}})
	out, err := Normalize(src)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got := out.Col("close").Cell(0); got != 7.5 {
		t.Fatalf("single sub-column should flatten, got=%v", got)
	}
	if got := out.Col("close").Cell(1); got != 8.5 {
		t.Fatalf("multi sub-column should keep first, got=%v", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if _, err := Normalize(New()); err == nil {
		t.Fatal("empty frame should fail")
	}
}
