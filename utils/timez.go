package utils

import (
	"sync"
	"time"

	"stockdata/core"
	"stockdata/log"

	"go.uber.org/zap"
)

var (
	locLock  sync.Mutex
	locCache = map[string]*time.Location{}
)

// Loc loads and caches a timezone; UTC on failure so callers never get
// nil.
func Loc(name string) *time.Location {
	locLock.Lock()
	defer locLock.Unlock()
	if loc, ok := locCache[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn("load timezone failed, fallback to UTC", zap.String("name", name))
		loc = time.UTC
	}
	locCache[name] = loc
	return loc
}

// MarketLoc is the source-local zone for a market's naive timestamps.
func MarketLoc(market string) *time.Location {
	return Loc(core.MarketTZ(market))
}
