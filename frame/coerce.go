package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockdata/core"
	"stockdata/errs"

	"github.com/shopspring/decimal"
)

// Mode decides what a field's coercion failure does to the row. The
// asymmetry is deliberate: a zeroed price is still chartable, a row
// without a usable time is not.
type Mode int

const (
	ZeroFill Mode = iota // unparseable value becomes 0 / 0.0, row kept
	DropRow              // row removed from the batch, batch continues
	AbortFetch           // whole fetch result rejected
)

// DefaultPolicy is the per-field error-handling table. Kept as data so
// the degrade-vs-drop-vs-fail behavior is auditable in one place.
var DefaultPolicy = map[string]Mode{
	"open":     ZeroFill,
	"high":     ZeroFill,
	"low":      ZeroFill,
	"close":    ZeroFill,
	"volume":   ZeroFill,
	"datetime": DropRow,
	"code":     AbortFetch,
}

// Explicit formats tried before the permissive fallback, to avoid
// ambiguous locale parsing (2/3/2024 style inputs never occur upstream).
var dateFormats = []string{
	"2006/01/02",
	"2006-01-02",
	"20060102",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

type Coercer struct {
	Policy map[string]Mode
	Daily  bool           // truncate times to date-only
	Loc    *time.Location // source-local zone for naive time strings
}

func NewCoercer(daily bool, loc *time.Location) *Coercer {
	if loc == nil {
		loc = time.UTC
	}
	return &Coercer{Policy: DefaultPolicy, Daily: daily, Loc: loc}
}

// Apply converts a normalized frame into canonical bars for one code.
// Numeric failures degrade to zero per the policy table; rows whose
// datetime cannot be parsed are dropped; the dropped count is returned
// for the driver to log.
func (c *Coercer) Apply(f *Frame, code string) ([]*Bar, int, *errs.Error) {
	if code == "" && c.mode("code") == AbortFetch {
		return nil, 0, errs.NewMsg(core.ErrCoerce, "code is empty")
	}
	timeCol := f.Col("datetime")
	if timeCol == nil {
		return nil, 0, errs.NewMsg(core.ErrCoerce, "frame has no datetime column")
	}
	var (
		openCol = f.Col("open")
		highCol = f.Col("high")
		lowCol  = f.Col("low")
		closCol = f.Col("close")
		volCol  = f.Col("volume")
	)
	numRows := f.NumRows()
	bars := make([]*Bar, 0, numRows)
	dropped := 0
	for i := 0; i < numRows; i++ {
		t, ok := c.parseTime(timeCol.Cell(i))
		if !ok {
			if c.mode("datetime") == AbortFetch {
				return nil, 0, errs.NewMsg(core.ErrCoerce, "unparseable datetime at row %d", i)
			}
			dropped++
			continue
		}
		if c.Daily {
			y, m, d := t.Date()
			t = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
		bars = append(bars, &Bar{
			Code:   code,
			Time:   t,
			Open:   ParsePrice(openCol.Cell(i)),
			High:   ParsePrice(highCol.Cell(i)),
			Low:    ParsePrice(lowCol.Cell(i)),
			Close:  ParsePrice(closCol.Cell(i)),
			Volume: ParseVolume(volCol.Cell(i)),
		})
	}
	return bars, dropped, nil
}

func (c *Coercer) mode(field string) Mode {
	if c.Policy != nil {
		if m, ok := c.Policy[field]; ok {
			return m
		}
	}
	return ZeroFill
}

func (c *Coercer) parseTime(v interface{}) (time.Time, bool) {
	switch vv := v.(type) {
	case time.Time:
		return vv, !vv.IsZero()
	case int64:
		return fromEpoch(vv)
	case int:
		return fromEpoch(int64(vv))
	case float64:
		return fromEpoch(int64(vv))
	case string:
		s := strings.TrimSpace(vv)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateFormats {
			if t, err := time.ParseInLocation(layout, s, c.Loc); err == nil {
				return t, true
			}
		}
		// Permissive fallback: epoch seconds/millis as text.
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpoch(n)
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func fromEpoch(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 1e12 {
		return time.UnixMilli(n), true
	}
	return time.Unix(n, 0), true
}

// ParsePrice forces a cell to a decimal price; anything unparseable is
// 0.0 so a bad tick never costs the whole row.
func ParsePrice(v interface{}) float64 {
	switch vv := v.(type) {
	case float64:
		return vv
	case float32:
		return float64(vv)
	case int:
		return float64(vv)
	case int64:
		return float64(vv)
	case decimal.Decimal:
		return vv.InexactFloat64()
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(vv), ",", "")
		if s == "" || s == "-" {
			return 0
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0
		}
		return d.InexactFloat64()
	case nil:
		return 0
	default:
		d, err := decimal.NewFromString(fmt.Sprintf("%v", vv))
		if err != nil {
			return 0
		}
		return d.InexactFloat64()
	}
}

// ParseVolume forces a cell to an integer volume, 0 when unparseable.
func ParseVolume(v interface{}) int64 {
	switch vv := v.(type) {
	case int64:
		return vv
	case int:
		return int64(vv)
	case float64:
		return int64(vv)
	case float32:
		return int64(vv)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(vv), ",", "")
		if s == "" || s == "-" {
			return 0
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if fv, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(fv)
		}
		return 0
	case nil:
		return 0
	default:
		return 0
	}
}
