// Package com hosts cross-cutting runtime pieces shared by the run
// modes, currently the in-process scheduler.
package com

import (
	"context"
	"fmt"

	"stockdata/config"
	"stockdata/core"
	"stockdata/errs"
	"stockdata/log"
	"stockdata/market"

	"github.com/robfig/cron/v3"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

var (
	cronLock deadlock.Mutex
	cronObj  *cron.Cron
)

// StartCron schedules the crawl cycles in-process: code lists and day
// backfills every codes_interval_hours, realtime prices every
// price_interval_minutes. Jobs skip their run while the previous one is
// still going, upstream feeds punish concurrent hammering.
func StartCron() *errs.Error {
	cronLock.Lock()
	defer cronLock.Unlock()
	if cronObj != nil {
		return nil
	}
	if !config.Schedule.Enable {
		return errs.NewMsg(core.ErrBadConfig, "schedule.enable is off")
	}
	cronObj = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	codesSpec := fmt.Sprintf("@every %dh", config.Schedule.CodesIntervalHrs)
	priceSpec := fmt.Sprintf("@every %dm", config.Schedule.PriceIntervalMin)
	if _, err := cronObj.AddFunc(codesSpec, runDailyCycle); err != nil {
		return errs.New(core.ErrBadConfig, err)
	}
	if _, err := cronObj.AddFunc(priceSpec, runMinuteCycle); err != nil {
		return errs.New(core.ErrBadConfig, err)
	}
	core.LiveMode = true
	core.ExitCalls = append(core.ExitCalls, StopCron)
	cronObj.Start()
	log.Info("scheduler started", zap.String("codes", codesSpec), zap.String("prices", priceSpec))
	// run one full cycle immediately so a fresh deploy has data
	go runDailyCycle()
	return nil
}

func StopCron() {
	cronLock.Lock()
	defer cronLock.Unlock()
	if cronObj != nil {
		cronObj.Stop()
		cronObj = nil
		core.LiveMode = false
	}
}

// runDailyCycle refreshes every market's catalog then backfills day
// bars. Per-market failures are logged and the cycle continues, one bad
// feed must not starve the others.
func runDailyCycle() {
	ctx := context.Background()
	for _, d := range market.All() {
		if err := d.CodeList(ctx); err != nil {
			log.Error("code list cycle failed", zap.String("market", d.Name()),
				zap.String("err", err.Short()))
		}
		if err := d.DayBars(ctx); err != nil {
			log.Error("day bar cycle failed", zap.String("market", d.Name()),
				zap.String("err", err.Short()))
		}
	}
}

func runMinuteCycle() {
	ctx := context.Background()
	for _, d := range market.All() {
		if err := d.MinuteBars(ctx); err != nil {
			log.Error("minute bar cycle failed", zap.String("market", d.Name()),
				zap.String("err", err.Short()))
		}
	}
}
