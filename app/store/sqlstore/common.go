package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/insightslm/insightslm/pkg/types"
)

func ErrorSqlBuild(err error) error {
	return fmt.Errorf("failed to build sql query, %w", err)
}

type SqlProviderAchieve interface {
	GetMaster() *sqlx.DB
	GetReplica() *sqlx.DB
	GetTxFromCtx(ctx context.Context) *sqlx.Tx
}

// store 基础设置
type CommonFields struct {
	table      string
	provider   SqlProviderAchieve
	allColumns []string
}

func (c *CommonFields) GetTable() string {
	return c.table
}

func (c *CommonFields) SetAllColumns(str ...string) {
	c.allColumns = str
}

func (c *CommonFields) GetAllColumns() []string {
	return c.allColumns
}

func (c *CommonFields) GetAllColumnsWithPrefix(prefix string) []string {
	newColumns := make([]string, 0, len(c.allColumns))
	for _, v := range c.allColumns {
		newColumns = append(newColumns, prefix+"."+v)
	}
	return newColumns
}

func (c *CommonFields) SetTable(table types.TableName) {
	c.table = table.Name()
}

func (c *CommonFields) SetProvider(p SqlProviderAchieve) {
	c.provider = p
}

type Master interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (c *CommonFields) GetMaster(ctx context.Context) Master {
	if tx := c.provider.GetTxFromCtx(ctx); tx != nil {
		return &txWithContext{tx: tx, ctx: ctx}
	}
	return &dbWithContext{
		db:  c.provider.GetMaster(),
		ctx: ctx,
	}
}

type Replica interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
}

// GetReplica 事务中的读操作走同一个事务
func (c *CommonFields) GetReplica(ctx context.Context) Replica {
	if tx := c.provider.GetTxFromCtx(ctx); tx != nil {
		return &txWithContext{tx: tx, ctx: ctx}
	}
	return &dbWithContext{
		db:  c.provider.GetReplica(),
		ctx: ctx,
	}
}

type dbWithContext struct {
	db  *sqlx.DB
	ctx context.Context
}

func (d *dbWithContext) Get(dest interface{}, query string, args ...interface{}) error {
	return d.db.GetContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) QueryRowx(query string, args ...interface{}) *sqlx.Row {
	return d.db.QueryRowxContext(d.ctx, query, args...)
}

func (d *dbWithContext) Select(dest interface{}, query string, args ...interface{}) error {
	return d.db.SelectContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) Exec(query string, args ...interface{}) (sql.Result, error) {
	return d.db.ExecContext(d.ctx, query, args...)
}

type txWithContext struct {
	tx  *sqlx.Tx
	ctx context.Context
}

func (t *txWithContext) Get(dest interface{}, query string, args ...interface{}) error {
	return t.tx.GetContext(t.ctx, dest, query, args...)
}

func (t *txWithContext) QueryRowx(query string, args ...interface{}) *sqlx.Row {
	return t.tx.QueryRowxContext(t.ctx, query, args...)
}

func (t *txWithContext) Select(dest interface{}, query string, args ...interface{}) error {
	return t.tx.SelectContext(t.ctx, dest, query, args...)
}

func (t *txWithContext) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (c *CommonFields) exec(ctx context.Context, query sqlizer) error {
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}
	_, err = c.GetMaster(ctx).Exec(queryString, args...)
	return err
}
