// Package dbtest provides an in-memory stand-in for database.DBTX so stores
// can be tested without a running PostgreSQL.
package dbtest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call records one statement sent to the MockDB
type Call struct {
	Query string
	Args  []interface{}
}

// MockDB implements database.DBTX. Unset handlers behave like an empty
// database: Exec touches one row, Query returns no rows, QueryRow returns
// pgx.ErrNoRows.
type MockDB struct {
	mu    sync.Mutex
	calls []Call

	ExecFunc     func(query string, args []interface{}) (pgconn.CommandTag, error)
	QueryFunc    func(query string, args []interface{}) (pgx.Rows, error)
	QueryRowFunc func(query string, args []interface{}) pgx.Row
}

func (m *MockDB) record(query string, args []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Query: query, Args: args})
}

// Calls returns every statement seen so far
func (m *MockDB) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsMatching returns statements containing fragment
func (m *MockDB) CallsMatching(fragment string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if strings.Contains(c.Query, fragment) {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockDB) Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error) {
	m.record(query, args)
	if m.ExecFunc != nil {
		return m.ExecFunc(query, args)
	}
	return Tag(1), nil
}

func (m *MockDB) Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	m.record(query, args)
	if m.QueryFunc != nil {
		return m.QueryFunc(query, args)
	}
	return NewRows(), nil
}

func (m *MockDB) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	m.record(query, args)
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(query, args)
	}
	return &Row{Err: pgx.ErrNoRows}
}

// Tag builds a command tag reporting n affected rows
func Tag(n int) pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", n))
}

// Row implements pgx.Row
type Row struct {
	Values []interface{}
	Err    error
}

func (r *Row) Scan(dest ...interface{}) error {
	if r.Err != nil {
		return r.Err
	}
	return assignAll(dest, r.Values)
}

// Rows implements pgx.Rows over fixed values
type Rows struct {
	values [][]interface{}
	pos    int
	err    error
	closed bool
}

func NewRows(values ...[]interface{}) *Rows {
	return &Rows{values: values, pos: -1}
}

// WithErr makes Err report err after iteration
func (r *Rows) WithErr(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) Close()                                       { r.closed = true }
func (r *Rows) Err() error                                   { return r.err }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	if r.pos >= len(r.values) {
		r.closed = true
		return false
	}
	return true
}

func (r *Rows) Scan(dest ...interface{}) error {
	return assignAll(dest, r.values[r.pos])
}

func (r *Rows) Values() ([]interface{}, error) {
	return r.values[r.pos], nil
}

func assignAll(dest, values []interface{}) error {
	if len(dest) != len(values) {
		return errors.Newf("dbtest: scan %d destinations from %d values", len(dest), len(values))
	}
	for i := range dest {
		if err := assign(dest[i], values[i]); err != nil {
			return errors.Wrapf(err, "dbtest: column %d", i)
		}
	}
	return nil
}

func assign(dest, value interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return errors.Newf("destination must be a non-nil pointer, got %T", dest)
	}
	target := dv.Elem()

	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	vv := reflect.ValueOf(value)
	switch {
	case vv.Type().AssignableTo(target.Type()):
		target.Set(vv)
	case target.Kind() == reflect.Ptr && vv.Type().AssignableTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(vv)
		target.Set(p)
	case target.Kind() == reflect.Ptr && vv.Type().ConvertibleTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(vv.Convert(target.Type().Elem()))
		target.Set(p)
	case vv.Type().ConvertibleTo(target.Type()):
		target.Set(vv.Convert(target.Type()))
	default:
		return errors.Newf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}
