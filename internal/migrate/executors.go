package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
)

// RPCPath 是托管后端执行任意 SQL 的 RPC 入口
const RPCPath = "/rest/v1/rpc/exec_sql"

// DBExecutor 通过数据库连接直接执行迁移
type DBExecutor struct {
	DB *sqlx.DB
}

// Name 实现 Executor
func (e DBExecutor) Name() string { return "database" }

// Exec 在事务中执行整段 SQL
func (e DBExecutor) Exec(ctx context.Context, m Migration) error {
	if e.DB == nil {
		return errors.New("database connection not configured")
	}
	tx, err := e.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RESTExecutor 把 SQL 提交给后端的 exec_sql RPC
type RESTExecutor struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Name 实现 Executor
func (e RESTExecutor) Name() string { return "rest" }

// Exec POST {"query": sql}，非 2xx 视为失败
func (e RESTExecutor) Exec(ctx context.Context, m Migration) error {
	base := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	if base == "" {
		return errors.New("backend REST url not configured")
	}

	payload, err := json.Marshal(map[string]string{"query": m.SQL})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+RPCPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("apikey", e.APIKey)
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("rest api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
