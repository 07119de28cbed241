package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockdata/com"
	"stockdata/config"
	"stockdata/core"
	"stockdata/errs"
	"stockdata/log"
	"stockdata/market"
	"stockdata/orm"
	"stockdata/utils"
	"stockdata/web"

	"go.uber.org/zap"
)

const usageText = `stockdata %s
Usage: stockdata COMMAND [flags]

Commands:
  init     connect the store and create missing tables
  codes    refresh stock catalogs (all markets or -market)
  day      backfill day bars for configured codes
  minute   pull realtime minute bars once
  serve    run the query API
  cron     run the in-process scheduler (plus query API)

Flags:
  -config path   yaml config file (default config.yml)
  -market name   limit to one market: cn, hk, us
`

func main() {
	if len(os.Args) < 2 {
		fmt.Printf(usageText, core.Version)
		os.Exit(1)
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config.yml", "yaml config file")
	marketName := fs.String("market", "", "limit to one market")
	_ = fs.Parse(os.Args[2:])

	core.RunMode = cmd
	core.StartAt = time.Now().UnixMilli()
	if err := setup(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %s\n", err.Short())
		os.Exit(1)
	}
	defer cleanup()

	var err *errs.Error
	switch cmd {
	case "init":
		log.Info("store ready")
	case "codes":
		err = runCodes(*marketName)
	case "day":
		err = eachMarket(*marketName, func(d market.Driver) *errs.Error {
			return d.DayBars(context.Background())
		})
	case "minute":
		err = eachMarket(*marketName, func(d market.Driver) *errs.Error {
			return d.MinuteBars(context.Background())
		})
	case "serve":
		core.RunMode = core.RunModeServe
		go waitExit()
		err = web.Run()
	case "cron":
		core.RunMode = core.RunModeCron
		if err = com.StartCron(); err == nil {
			go waitExit()
			err = web.Run()
		}
	default:
		fmt.Printf(usageText, core.Version)
		os.Exit(1)
	}
	if err != nil {
		log.Error("command failed", zap.String("cmd", cmd), zap.String("err", err.Short()))
		cleanup()
		os.Exit(1)
	}
}

func setup(cfgPath string) *errs.Error {
	if _, statErr := os.Stat(cfgPath); statErr != nil {
		cfgPath = ""
	}
	if err := config.Load(cfgPath); err != nil {
		return err
	}
	log.Setup(config.Loaded.LogLevel, config.Loaded.LogFile)
	return orm.Setup()
}

func cleanup() {
	for _, fn := range core.ExitCalls {
		fn()
	}
	core.ExitCalls = nil
	orm.Close()
	log.Sync()
}

func waitExit() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Info("shutting down", zap.String("signal", sig.String()))
	cleanup()
	os.Exit(0)
}

func eachMarket(name string, fn func(market.Driver) *errs.Error) *errs.Error {
	if name != "" {
		d, err := market.Get(name)
		if err != nil {
			return err
		}
		return fn(d)
	}
	for _, d := range market.All() {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// runCodes refreshes catalogs and prints a per-market summary table.
func runCodes(name string) *errs.Error {
	err := eachMarket(name, func(d market.Driver) *errs.Error {
		return d.CodeList(context.Background())
	})
	if err != nil {
		return err
	}
	var rows [][]string
	for _, d := range market.All() {
		if name != "" && d.Name() != name {
			continue
		}
		num, err := orm.CountStocks(context.Background(), d.Name())
		if err != nil {
			return err
		}
		rows = append(rows, []string{d.Name(), fmt.Sprintf("%d", num)})
	}
	if err_ := utils.RenderTable(os.Stdout, []string{"Market", "Stocks"}, rows); err_ != nil {
		return errs.New(core.ErrRunTime, err_)
	}
	return nil
}
