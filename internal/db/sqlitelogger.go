package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LogOptions configures the statement log written by a logging connector.
type LogOptions struct {
	// Logger receives one "sql" record per statement. Nil means slog.Default().
	Logger *slog.Logger
	// SlowQuery logs statements at or above this duration at warn level.
	// Zero keeps every successful statement at debug.
	SlowQuery time.Duration
}

// statementLog turns a finished statement into a log record. Statements that
// fail or run slow are raised to warn so they show up at the default level.
type statementLog struct {
	logger *slog.Logger
	slow   time.Duration
}

func (l *statementLog) record(ctx context.Context, op, query string, args []driver.NamedValue, start time.Time, err error) {
	if errors.Is(err, driver.ErrSkip) {
		// database/sql retries through a prepared statement, which is logged.
		return
	}
	elapsed := time.Since(start)
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("sql", compactSQL(query)),
		slog.Any("args", formatArgs(args)),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if l.slow > 0 && elapsed >= l.slow {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Bool("slow", true))
	}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", err))
	}
	l.logger.LogAttrs(ctx, level, "sql", attrs...)
}

type loggingConnector struct {
	drv driver.Driver
	dsn string
	log *statementLog
}

// NewLoggingConnector opens connections with drv and logs every statement the
// climate queries, migrations and imports run through them. Use sql.OpenDB on
// the result.
func NewLoggingConnector(drv driver.Driver, dsn string, opts LogOptions) (driver.Connector, error) {
	if drv == nil {
		return nil, errors.New("sql logger: nil driver")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{
		drv: drv,
		dsn: dsn,
		log: &statementLog{logger: logger, slow: opts.SlowQuery},
	}, nil
}

func (c *loggingConnector) Driver() driver.Driver { return c.drv }

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := c.drv.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{Conn: conn, log: c.log}, nil
}

// loggingConn answers QueryContext and ExecContext itself when the wrapped
// connection can, so one-shot statements skip the prepare round trip.
type loggingConn struct {
	driver.Conn
	log *statementLog
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if prep, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = prep.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		c.log.record(ctx, "prepare", query, nil, time.Now(), err)
		return nil, err
	}
	return &loggingStmt{Stmt: stmt, query: query, log: c.log}, nil
}

func (c *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := q.QueryContext(ctx, query, args)
	c.log.record(ctx, "query", query, args, start, err)
	return rows, err
}

func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	e, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := e.ExecContext(ctx, query, args)
	c.log.record(ctx, "exec", query, args, start, err)
	return res, err
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019: only reached for drivers without ConnBeginTx
	return c.Conn.Begin()
}

func (c *loggingConn) Ping(ctx context.Context) error {
	if p, ok := c.Conn.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type loggingStmt struct {
	driver.Stmt
	query string
	log   *statementLog
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var (
		res driver.Result
		err error
	)
	if e, ok := s.Stmt.(driver.StmtExecContext); ok {
		res, err = e.ExecContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019: only reached for drivers without StmtExecContext
		res, err = s.Stmt.Exec(plainValues(args))
	}
	s.log.record(ctx, "exec", s.query, args, start, err)
	return res, err
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var (
		rows driver.Rows
		err  error
	)
	if q, ok := s.Stmt.(driver.StmtQueryContext); ok {
		rows, err = q.QueryContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019: only reached for drivers without StmtQueryContext
		rows, err = s.Stmt.Query(plainValues(args))
	}
	s.log.record(ctx, "query", s.query, args, start, err)
	return rows, err
}

// compactSQL folds the embedded multi-line query files onto one line.
func compactSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// formatArgs renders bind values for the log. Dates are bound as
// "YYYY-MM-DD" strings, so they read the same as in the query files.
func formatArgs(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		var v string
		switch t := a.Value.(type) {
		case nil:
			v = "NULL"
		case []byte:
			v = string(t)
		case time.Time:
			v = t.Format(time.RFC3339)
		default:
			v = fmt.Sprint(t)
		}
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out[i] = v
	}
	return out
}

func plainValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}
