package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type ConnectConfig interface {
	FormatDSN() string
}

// DSN 直接使用连接串作为配置
type DSN string

func (d DSN) FormatDSN() string {
	return string(d)
}

type SqlProvider struct {
	master   *sqlx.DB
	replicas []*sqlx.DB
	dbname   string
}

type TransactionKey struct{}

func (s *SqlProvider) GetTxFromCtx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(TransactionKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

func (s *SqlProvider) GetMaster() *sqlx.DB {
	return s.master
}

func (s *SqlProvider) GetReplica() *sqlx.DB {
	if len(s.replicas) == 1 {
		return s.replicas[0]
	}
	return s.replicas[rand.Intn(len(s.replicas))]
}

// Transaction 在同一个事务中执行 next，嵌套调用复用外层事务
func (s *SqlProvider) Transaction(ctx context.Context, next func(ctx context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.GetTxFromCtx(ctx) != nil {
		return next(ctx)
	}

	tx, err := s.GetMaster().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			slog.Error("Transaction rollbacked", slog.Any("recover", r))
			panic(r)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("Failed to rollback transaction", slog.String("error", rbErr.Error()))
			}
			slog.Debug("Transaction rollbacked", slog.String("error", err.Error()))
		}
	}()

	if err = next(context.WithValue(ctx, TransactionKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// 建立数据库连接
func (s *SqlProvider) initConnection(conf ConnectConfig) (*sqlx.DB, error) {
	engine, err := sqlx.Open("postgres", conf.FormatDSN())
	if err != nil {
		return nil, err
	}
	engine.SetMaxOpenConns(50)
	engine.SetMaxIdleConns(10)
	engine.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = engine.PingContext(ctx); err != nil {
		engine.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return engine, nil
}

func MustSetupProvider(m ConnectConfig, s ...ConnectConfig) *SqlProvider {
	provider, err := SetupProvider(m, s...)
	if err != nil {
		panic(err)
	}
	return provider
}

func SetupProvider(m ConnectConfig, s ...ConnectConfig) (*SqlProvider, error) {
	provider := &SqlProvider{}

	engine, err := provider.initConnection(m)
	if err != nil {
		return nil, err
	}
	provider.master = engine

	for _, v := range s {
		slave, err := provider.initConnection(v)
		if err != nil {
			return nil, err
		}
		provider.replicas = append(provider.replicas, slave)
	}

	if len(provider.replicas) == 0 {
		provider.replicas = append(provider.replicas, engine)
	}
	return provider, nil
}

// NewWithDB 使用已有连接构建 provider，主要用于测试
func NewWithDB(db *sqlx.DB) *SqlProvider {
	return &SqlProvider{master: db, replicas: []*sqlx.DB{db}}
}

func (s *SqlProvider) GetDBName(ctx context.Context) (string, error) {
	if s.dbname == "" {
		var dbName string
		if err := s.GetMaster().QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
			return "", err
		}
		s.dbname = dbName
	}
	return s.dbname, nil
}

func (s *SqlProvider) Close() error {
	var firstErr error
	closed := map[*sqlx.DB]bool{}
	for _, db := range append([]*sqlx.DB{s.master}, s.replicas...) {
		if db == nil || closed[db] {
			continue
		}
		closed[db] = true
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
