package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/insightslm/insightslm/app/store"
	"github.com/insightslm/insightslm/pkg/register"
	"github.com/insightslm/insightslm/pkg/sqlstore"
	"github.com/insightslm/insightslm/pkg/types"
)

//go:embed *.sql
var CreateTableFiles embed.FS

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

var provider = &Provider{
	stores: &Stores{},
}

func GetProvider() *Provider {
	return provider
}

var _ store.Provider = (*Provider)(nil)

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores
}

type Stores struct {
	store.NotebookStore
	store.SourceStore
	store.NoteStore
}

type RegisterKey struct{}

func MustSetup(m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) func() *Provider {
	provider.SqlProvider = sqlstore.MustSetupProvider(m, s...)

	for _, f := range register.ResolveFuncHandlers[*Provider](RegisterKey{}) {
		f(provider)
	}

	return func() *Provider {
		return provider
	}
}

// storesReady 检查所有 store 均已注册
func (p *Provider) storesReady() error {
	val := reflect.ValueOf(p.stores).Elem()
	for i := 0; i < val.NumField(); i++ {
		if val.Field(i).IsNil() {
			return fmt.Errorf("store %s is not registered", val.Type().Field(i).Name)
		}
	}
	return nil
}

// Install 按文件名顺序执行尚未执行过的建表文件
func (p *Provider) Install() error {
	if err := p.storesReady(); err != nil {
		return err
	}

	if err := p.ensureMigrationTable(); err != nil {
		return err
	}

	files, err := CreateTableFiles.ReadDir(".")
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		executed, err := p.isFileExecuted(file.Name())
		if err != nil {
			return err
		}
		if executed {
			continue
		}

		raw, err := CreateTableFiles.ReadFile(file.Name())
		if err != nil {
			return err
		}

		if err = p.executeSQLFile(string(raw), file.Name()); err != nil {
			return fmt.Errorf("failed to execute %s, %w", file.Name(), err)
		}

		if err = p.markFileExecuted(file.Name()); err != nil {
			return err
		}
	}
	return nil
}

// ensureMigrationTable 确保迁移记录表存在
func (p *Provider) ensureMigrationTable() error {
	createTableSQL := `
CREATE TABLE IF NOT EXISTS ` + types.TABLE_SCHEMA_MIGRATIONS.Name() + ` (
    filename VARCHAR(255) PRIMARY KEY,
    executed_at BIGINT NOT NULL
);`
	_, err := p.SqlProvider.GetMaster().Exec(createTableSQL)
	return err
}

// isFileExecuted 检查文件是否已经执行过
func (p *Provider) isFileExecuted(filename string) (bool, error) {
	var count int
	err := p.SqlProvider.GetMaster().Get(&count,
		"SELECT COUNT(*) FROM "+types.TABLE_SCHEMA_MIGRATIONS.Name()+" WHERE filename = $1", filename)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// markFileExecuted 标记文件为已执行
func (p *Provider) markFileExecuted(filename string) error {
	_, err := p.SqlProvider.GetMaster().Exec(
		"INSERT INTO "+types.TABLE_SCHEMA_MIGRATIONS.Name()+" (filename, executed_at) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
		filename, time.Now().Unix())
	return err
}

func (p *Provider) executeSQLFile(content, filename string) error {
	slog.Info("execute sql file", slog.String("file", filename))
	content = strings.ReplaceAll(content, "{{prefix}}", types.TABLE_PREFIX)
	_, err := p.SqlProvider.GetMaster().Exec(content)
	return err
}

func (p *Provider) Transaction(ctx context.Context, next func(ctx context.Context) error) error {
	return p.SqlProvider.Transaction(ctx, next)
}

func (p *Provider) NotebookStore() store.NotebookStore {
	return p.stores.NotebookStore
}

func (p *Provider) SourceStore() store.SourceStore {
	return p.stores.SourceStore
}

func (p *Provider) NoteStore() store.NoteStore {
	return p.stores.NoteStore
}
