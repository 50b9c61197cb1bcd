package redash

// driver.go adapts Client to database/sql. The package does not call sql.Register; use NewConnector
// with sql.OpenDB, or register Driver under a name of your choosing.

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/manu156/redash-go/errors"
	"github.com/manu156/redash-go/query"
	"github.com/manu156/redash-go/types"
)

// Verify interface compliance.
var (
	_ driver.Driver                         = Driver{}
	_ driver.DriverContext                  = Driver{}
	_ driver.Connector                      = (*Connector)(nil)
	_ driver.Conn                           = (*conn)(nil)
	_ driver.ConnPrepareContext             = (*conn)(nil)
	_ driver.QueryerContext                 = (*conn)(nil)
	_ driver.ExecerContext                  = (*conn)(nil)
	_ driver.ConnBeginTx                    = (*conn)(nil)
	_ driver.Pinger                         = (*conn)(nil)
	_ driver.Validator                      = (*conn)(nil)
	_ driver.StmtQueryContext               = (*stmt)(nil)
	_ driver.StmtExecContext                = (*stmt)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*rows)(nil)
)

func unsupported(what string) error {
	return errors.ES(errors.OpDriver, errors.KUnsupported, "%s is not supported: the Redash driver is read-only", what)
}

// Driver implements driver.Driver and driver.DriverContext. The name is a connection string accepted
// by ParseDSN.
type Driver struct{}

// Open implements driver.Driver.
func (d Driver) Open(name string) (driver.Conn, error) {
	c, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext.
func (Driver) OpenConnector(name string) (driver.Connector, error) {
	cfg, err := ParseDSN(name)
	if err != nil {
		return nil, err
	}
	return NewConnector(cfg)
}

// Connector creates connections to one Redash server. Every connection owns its own Client.
type Connector struct {
	cfg     Config
	options []Option
}

// NewConnector returns a Connector for sql.OpenDB. options are applied to the Client of every connection.
func NewConnector(cfg *Config, options ...Option) (*Connector, error) {
	if cfg == nil {
		return nil, errors.ES(errors.OpConnect, errors.KConfiguration, "a Config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Connector{cfg: *cfg, options: options}, nil
}

// Connect implements driver.Connector. No request is made until the connection is used.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	client, err := New(&c.cfg, c.options...)
	if err != nil {
		return nil, err
	}
	return &conn{client: client}, nil
}

// Driver implements driver.Connector.
func (c *Connector) Driver() driver.Driver {
	return Driver{}
}

type conn struct {
	client *Client
	closed bool
}

func (c *conn) Prepare(text string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), text)
}

func (c *conn) PrepareContext(_ context.Context, text string) (driver.Stmt, error) {
	if c.closed {
		return nil, unsupported("preparing a statement on a closed connection")
	}
	return &stmt{conn: c, text: text}, nil
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

func (c *conn) Begin() (driver.Tx, error) {
	return nil, unsupported("Begin")
}

func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, unsupported("BeginTx")
}

func (c *conn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return nil, unsupported("Exec")
}

func (c *conn) QueryContext(ctx context.Context, text string, args []driver.NamedValue) (driver.Rows, error) {
	if c.closed {
		return nil, unsupported("querying a closed connection")
	}
	cur, err := c.client.Query(ctx, text, namedParams(args))
	if err != nil {
		return nil, err
	}
	return newRows(cur), nil
}

// Ping implements driver.Pinger with Client.TestConnection.
func (c *conn) Ping(ctx context.Context) error {
	if c.closed {
		return driver.ErrBadConn
	}
	return c.client.TestConnection(ctx, defaultPingTimeout)
}

// IsValid implements driver.Validator.
func (c *conn) IsValid() bool {
	return !c.closed
}

// namedParams turns query arguments into Redash parameters. Named arguments keep their name and
// positional ones are called p1, p2 and so on.
func namedParams(args []driver.NamedValue) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	params := make(map[string]interface{}, len(args))
	for _, a := range args {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("p%d", a.Ordinal)
		}
		v := a.Value
		switch t := v.(type) {
		case []byte:
			v = string(t)
		case time.Time:
			v = t.Format(time.RFC3339Nano)
		}
		params[name] = v
	}
	return params
}

type stmt struct {
	conn *conn
	text string
}

func (s *stmt) Close() error {
	return nil
}

// NumInput returns -1, parameters are not counted.
func (s *stmt) NumInput() int {
	return -1
}

func (s *stmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, unsupported("Exec")
}

func (s *stmt) ExecContext(context.Context, []driver.NamedValue) (driver.Result, error) {
	return nil, unsupported("Exec")
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return s.QueryContext(context.Background(), named)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.text, args)
}

type rows struct {
	cur     *query.Cursor
	columns []query.Column
	names   []string
}

func newRows(cur *query.Cursor) *rows {
	cols := cur.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return &rows{cur: cur, columns: cols, names: names}
}

func (r *rows) Columns() []string {
	return r.names
}

func (r *rows) Close() error {
	return r.cur.Close()
}

func (r *rows) Next(dest []driver.Value) error {
	if !r.cur.Next() {
		return io.EOF
	}
	for i, col := range r.columns {
		if i >= len(dest) {
			break
		}
		if col.Type().IsTemporal() {
			t, err := r.cur.Time(col.Name())
			if err != nil {
				return err
			}
			if r.cur.WasNull() {
				dest[i] = nil
			} else {
				dest[i] = t
			}
			continue
		}

		v, err := r.cur.Value(col.Name())
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	return r.columns[index].Type().DatabaseTypeName()
}

var (
	scanInt64  = reflect.TypeOf(int64(0))
	scanFloat  = reflect.TypeOf(float64(0))
	scanBool   = reflect.TypeOf(false)
	scanTime   = reflect.TypeOf(time.Time{})
	scanString = reflect.TypeOf("")
)

func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	switch r.columns[index].Type() {
	case types.Integer:
		return scanInt64
	case types.Float:
		return scanFloat
	case types.Boolean:
		return scanBool
	case types.Date, types.DateTime:
		return scanTime
	}
	return scanString
}

// ColumnTypeNullable reports every column as nullable: any Redash cell may be null.
func (r *rows) ColumnTypeNullable(int) (nullable, ok bool) {
	return true, true
}
