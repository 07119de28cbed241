package fetch

import (
	"math"
	"math/rand"
	"time"

	"stockdata/frame"
	"stockdata/log"

	"go.uber.org/zap"
)

// WalkParams bound the synthetic random walk to a plausible range for an
// asset class. The output is placeholder data for charts during feed
// outages and is always tagged SourceSynthetic by the controller.
type WalkParams struct {
	BaseMin, BaseMax float64 // starting price range
	Volatility       float64 // daily close volatility, fraction of base
	OpenJitter       float64 // open deviation from previous close
	RangeJitter      float64 // high/low extension beyond open/close
	VolMin, VolMax   int64   // daily volume range
}

var (
	// HK listings trade at higher nominal prices and volumes than US ones.
	HKWalk = WalkParams{BaseMin: 200, BaseMax: 400, Volatility: 0.02,
		OpenJitter: 0.005, RangeJitter: 0.01, VolMin: 1_000_000, VolMax: 10_000_000}
	USWalk = WalkParams{BaseMin: 100, BaseMax: 200, Volatility: 0.015,
		OpenJitter: 0.003, RangeJitter: 0.007, VolMin: 1_000_000, VolMax: 5_000_000}
)

// SyntheticDaily builds a business-day random walk between start and end
// (inclusive) shaped like a normalized daily frame, so it flows through
// the same coerce/sink path as live data.
func SyntheticDaily(p WalkParams, symbol string, start, end time.Time) *frame.Frame {
	days := businessDays(start, end)
	if len(days) == 0 {
		return frame.New()
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	base := p.BaseMin + rng.Float64()*(p.BaseMax-p.BaseMin)
	sigma := base * p.Volatility

	n := len(days)
	dt := make([]interface{}, n)
	open := make([]interface{}, n)
	high := make([]interface{}, n)
	low := make([]interface{}, n)
	clos := make([]interface{}, n)
	vol := make([]interface{}, n)

	price := base
	prevClose := base
	for i, day := range days {
		price += rng.NormFloat64() * sigma
		if price < 1 {
			price = 1
		}
		o := prevClose * (1 + rng.NormFloat64()*p.OpenJitter)
		if i == 0 {
			o = base * (1 + rng.NormFloat64()*p.OpenJitter)
		}
		if o < 1 {
			o = 1
		}
		h := math.Max(o, price) * (1 + rng.Float64()*p.RangeJitter)
		l := math.Min(o, price) * (1 - rng.Float64()*p.RangeJitter)

		dt[i] = day
		open[i] = round2(o)
		high[i] = round2(h)
		low[i] = round2(l)
		clos[i] = round2(price)
		vol[i] = p.VolMin + rng.Int63n(p.VolMax-p.VolMin)
		prevClose = price
	}
	log.Info("generated synthetic daily data",
		zap.String("symbol", symbol), zap.Int("rows", n))
	f := frame.New()
	f.Add("datetime", dt).Add("open", open).Add("high", high).
		Add("low", low).Add("close", clos).Add("volume", vol)
	return f
}

func businessDays(start, end time.Time) []time.Time {
	var days []time.Time
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !d.After(last) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return days
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
