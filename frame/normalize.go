package frame

import (
	"time"

	"stockdata/core"
	"stockdata/errs"
)

// Time column aliases in rank order. The first existing column wins;
// later aliases are ignored once resolved. Mixed English/Chinese because
// the cn feeds label columns in either language depending on endpoint.
var timeAliases = []string{
	"datetime", "day", "date", "time", "Datetime", "timestamp", "时间", "日期", "日期时间",
}

// fieldAliases maps each canonical field to its ranked source names.
// Evaluated once per fetch result; first match wins per field.
var fieldAliases = []struct {
	Field   string
	Aliases []string
}{
	{"open", []string{"open", "Open", "开盘", "今开"}},
	{"high", []string{"high", "High", "最高"}},
	{"low", []string{"low", "Low", "最低"}},
	{"close", []string{"close", "Close", "收盘", "最新价", "最新"}},
	{"volume", []string{"volume", "Volume", "成交量"}},
	{"amount", []string{"amount", "Amount", "成交额"}},
}

// CanonicalFields are the columns a normalized frame may carry, in sink
// order. amount passes through normalization but is dropped by the
// coercer unless the target table has it (none do today).
var CanonicalFields = []string{"datetime", "open", "high", "low", "close", "volume"}

// Normalize maps an arbitrary tabular result onto the canonical column
// schema:
//  1. a time-valued index is materialized as a datetime column;
//  2. the time column is resolved through the ranked aliases, or
//     synthesized as the current processing time when absent (degraded
//     but non-fatal, flagged via TimeSynthesized);
//  3. price/volume columns resolve through the ranked alias table;
//  4. two-dimensional cells collapse to their first sub-value;
//  5. an unresolvable close column fails the whole fetch; rows without
//     a close are useless to every consumer, so this also covers results
//     with neither datetime nor close present.
func Normalize(src *Frame) (*Frame, *errs.Error) {
	if src.Empty() {
		return nil, errs.NewMsg(core.ErrEmptyResult, "empty result")
	}
	numRows := src.NumRows()
	out := New()

	var timeCol *Col
	if len(src.Index) > 0 {
		// A time-valued index beats any time-named column.
		cells := make([]interface{}, len(src.Index))
		for i, t := range src.Index {
			cells[i] = t
		}
		timeCol = &Col{Name: "datetime", Cells: cells}
	} else {
		timeCol = resolveTimeCol(src)
	}
	if timeCol == nil {
		now := time.Now()
		cells := make([]interface{}, numRows)
		for i := range cells {
			cells[i] = now
		}
		timeCol = &Col{Name: "datetime", Cells: cells}
		out.TimeSynthesized = true
	}
	out.Add("datetime", collapse(timeCol.Cells))

	for _, fa := range fieldAliases {
		for _, alias := range fa.Aliases {
			if c := src.Col(alias); c != nil {
				out.Add(fa.Field, collapse(c.Cells))
				break
			}
		}
	}

	if out.Col("close") == nil {
		return nil, errs.NewMsg(core.ErrNormalize, "no close column under any recognized alias")
	}
	return out, nil
}

func resolveTimeCol(src *Frame) *Col {
	for _, alias := range timeAliases {
		if c := src.Col(alias); c != nil {
			return c
		}
	}
	return nil
}

// collapse flattens two-dimensional cells: a single-element slice becomes
// its element, a longer slice keeps its first sub-value.
func collapse(cells []interface{}) []interface{} {
	flat := make([]interface{}, len(cells))
	for i, v := range cells {
		switch vv := v.(type) {
		case []interface{}:
			if len(vv) > 0 {
				flat[i] = vv[0]
			} else {
				flat[i] = nil
			}
		case []float64:
			if len(vv) > 0 {
				flat[i] = vv[0]
			} else {
				flat[i] = nil
			}
		default:
			flat[i] = v
		}
	}
	return flat
}
