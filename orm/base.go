package orm

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"strings"
	"time"

	"stockdata/config"
	"stockdata/core"
	"stockdata/errs"
	"stockdata/log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var pool *pgxpool.Pool

//go:embed sql/schema.sql
var ddlSchema string

// Setup connects the pool and, when auto_create is on, ensures the
// table schema exists. Call once at process start.
func Setup() *errs.Error {
	if pool != nil {
		pool.Close()
		pool = nil
	}
	var err *errs.Error
	pool, err = connPool()
	if err != nil {
		return err
	}
	dbCfg := config.Database
	if dbCfg.AutoCreate {
		if err = execMultiSQL(context.Background(), ddlSchema); err != nil {
			return err
		}
	}
	log.Info("connect db ok", zap.String("url", maskDBUrl(dbCfg.Url)),
		zap.Int("pool", dbCfg.MaxPoolSize))
	return nil
}

func Close() {
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

func connPool() (*pgxpool.Pool, *errs.Error) {
	dbCfg := config.Database
	if dbCfg == nil {
		return nil, errs.NewMsg(core.ErrBadConfig, "database config is missing!")
	}
	poolCfg, err_ := pgxpool.ParseConfig(dbCfg.Url)
	if err_ != nil {
		return nil, errs.New(core.ErrBadConfig, err_)
	}
	if dbCfg.MaxPoolSize > 0 {
		poolCfg.MaxConns = int32(dbCfg.MaxPoolSize)
	}
	connCtx, connCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer connCancel()
	dbPool, err_ := pgxpool.NewWithConfig(connCtx, poolCfg)
	if err_ != nil {
		return nil, errs.New(core.ErrDbConnFail, err_)
	}
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err_ = dbPool.Ping(pingCtx); err_ != nil {
		dbPool.Close()
		return nil, errs.New(core.ErrDbConnFail, err_)
	}
	return dbPool, nil
}

// Conn acquires one connection from the pool; the caller must Release.
// Access is per-call on purpose: no transaction ever spans fetch cycles.
func Conn(ctx context.Context) (*pgxpool.Conn, *errs.Error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if pool == nil {
		return nil, errs.NewMsg(core.ErrDbConnFail, "db pool not initialized")
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errs.New(core.ErrDbConnFail, err)
	}
	return conn, nil
}

type Tx struct {
	tx     pgx.Tx
	closed bool
}

func NewTx(ctx context.Context) (*Tx, *errs.Error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, errs.New(core.ErrDbConnFail, err)
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...interface{}) *errs.Error {
	if _, err := t.tx.Exec(ctx, sql, args...); err != nil {
		return NewDbErr(core.ErrDbExecFail, err)
	}
	return nil
}

func (t *Tx) Close(ctx context.Context, commit bool) *errs.Error {
	if t.closed {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if commit {
		err = t.tx.Commit(ctx)
	} else {
		err = t.tx.Rollback(ctx)
	}
	t.closed = true
	if err != nil {
		return NewDbErr(core.ErrDbExecFail, err)
	}
	return nil
}

func execMultiSQL(ctx context.Context, sqlText string) *errs.Error {
	stmts := strings.Split(sqlText, ";")
	for _, st := range stmts {
		s := strings.TrimSpace(st)
		if s == "" {
			continue
		}
		if _, err := pool.Exec(ctx, s); err != nil {
			return NewDbErr(core.ErrDbExecFail, err)
		}
	}
	return nil
}

func NewDbErr(code int, err_ error) *errs.Error {
	var opErr *net.OpError
	var pgErr *pgconn.ConnectError
	if errors.As(err_, &opErr) {
		if strings.Contains(opErr.Err.Error(), "connection reset") {
			return errs.New(core.ErrDbConnFail, err_)
		}
	} else if errors.As(err_, &pgErr) {
		if strings.Contains(pgErr.Error(), "SQLSTATE 3D000") {
			return errs.NewMsg(core.ErrDbConnFail, "db not exist")
		}
	}
	return errs.New(code, err_)
}

func maskDBUrl(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	head := strings.Index(url, "://")
	if head < 0 {
		return url
	}
	return url[:head+3] + "***" + url[at:]
}

// mapToItems drains rows through a per-item scan target factory.
func mapToItems[T any](rows pgx.Rows, err_ error, mk func() (*T, []any)) ([]*T, error) {
	if err_ != nil {
		return nil, err_
	}
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, fields := mk()
		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
