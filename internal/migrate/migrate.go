package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const versionTable = "schema_migrations"

// ErrDirNotFound 迁移目录不存在
var ErrDirNotFound = errors.New("migrations directory not found")

// Migration 是一个待执行的 up 脚本
type Migration struct {
	Version uint
	Name    string
	SQL     string
}

// Executor 是一种执行迁移 SQL 的方式
type Executor interface {
	Name() string
	Exec(ctx context.Context, m Migration) error
}

// Outcome 记录单个迁移的执行结果
type Outcome struct {
	Migration Migration
	Executor  string
	Manual    bool
	Skipped   bool
	Errors    []error
}

// Report 汇总一次 Up 的结果
type Report struct {
	Outcomes []Outcome
}

// Applied 返回成功执行的迁移数量
func (r Report) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Skipped && !o.Manual {
			n++
		}
	}
	return n
}

// Pending 返回需要手动执行的迁移
func (r Report) Pending() []Migration {
	var out []Migration
	for _, o := range r.Outcomes {
		if o.Manual {
			out = append(out, o.Migration)
		}
	}
	return out
}

// Discover 按版本顺序读取 dir 下的 NNNNNN_name.up.sql
func Discover(dir string) ([]Migration, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
	}
	return DiscoverFS(os.DirFS(dir), ".")
}

// DiscoverFS 与 Discover 相同，但从任意 fs.FS 读取
func DiscoverFS(fsys fs.FS, path string) ([]Migration, error) {
	driver, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("open migrations source: %w", err)
	}
	defer driver.Close()

	version, err := driver.First()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read first migration: %w", err)
	}

	var migrations []Migration
	for {
		m, err := readUp(driver, version)
		if err != nil {
			return nil, err
		}
		if m != nil {
			migrations = append(migrations, *m)
		}

		next, err := driver.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read migration after %d: %w", version, err)
		}
		version = next
	}
	return migrations, nil
}

// readUp 只存在 down 脚本的版本返回 nil
func readUp(driver source.Driver, version uint) (*Migration, error) {
	body, identifier, err := driver.ReadUp(version)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migration %d: %w", version, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read migration %d: %w", version, err)
	}
	return &Migration{Version: version, Name: identifier, SQL: string(raw)}, nil
}

// Runner 依次尝试 executors 执行每个未应用的迁移
type Runner struct {
	db        *sqlx.DB
	executors []Executor
	out       io.Writer
	logger    *zap.Logger
}

// NewRunner 构造 Runner；db 为空时不记录版本，所有迁移都会尝试执行
func NewRunner(sdb *sqlx.DB, out io.Writer, logger *zap.Logger, executors ...Executor) *Runner {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{db: sdb, executors: executors, out: out, logger: logger}
}

// Up 执行所有未应用的迁移。
// 某个迁移的所有方式都失败时打印手动执行说明并继续，失败原因合并到返回的错误中。
func (r *Runner) Up(ctx context.Context, migrations []Migration) (Report, error) {
	var report Report

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return report, err
	}

	var failures []error
	for _, m := range migrations {
		outcome := Outcome{Migration: m}
		if applied[m.Version] {
			outcome.Skipped = true
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		r.logger.Info("applying migration", zap.Uint("version", m.Version), zap.String("name", m.Name))
		for _, exec := range r.executors {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := exec.Exec(ctx, m); err != nil {
				r.logger.Warn("migration strategy failed",
					zap.String("strategy", exec.Name()),
					zap.Uint("version", m.Version),
					zap.Error(err))
				outcome.Errors = append(outcome.Errors, fmt.Errorf("%s: %w", exec.Name(), err))
				continue
			}
			outcome.Executor = exec.Name()
			break
		}

		if outcome.Executor == "" {
			outcome.Manual = true
			r.printManual(m)
			failures = append(failures, fmt.Errorf("migration %s: %w", m.Name, errors.Join(outcome.Errors...)))
		} else if err := r.markApplied(ctx, m); err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, errors.Join(failures...)
}

func (r *Runner) printManual(m Migration) {
	fmt.Fprintf(r.out, "\nNão foi possível aplicar %s automaticamente.\n", m.Name)
	fmt.Fprintln(r.out, "Para aplicar manualmente:")
	fmt.Fprintln(r.out, "1. Abra o editor SQL do banco de dados")
	fmt.Fprintln(r.out, "2. Cole o SQL abaixo e execute")
	fmt.Fprintln(r.out, "----------------------------------")
	fmt.Fprintln(r.out, strings.TrimSpace(m.SQL))
	fmt.Fprintln(r.out, "----------------------------------")
}

func (r *Runner) ensureVersionTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+versionTable+` (
		version BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", versionTable, err)
	}
	return nil
}

func (r *Runner) appliedVersions(ctx context.Context) (map[uint]bool, error) {
	applied := make(map[uint]bool)
	if r.db == nil {
		return applied, nil
	}
	if err := r.ensureVersionTable(ctx); err != nil {
		return nil, err
	}

	var versions []int64
	if err := r.db.SelectContext(ctx, &versions, `SELECT version FROM `+versionTable); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	for _, v := range versions {
		applied[uint(v)] = true
	}
	return applied, nil
}

func (r *Runner) markApplied(ctx context.Context, m Migration) error {
	if r.db == nil {
		return nil
	}
	query := r.db.Rebind(`INSERT INTO ` + versionTable + ` (version, name, applied_at) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, int64(m.Version), m.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return nil
}
