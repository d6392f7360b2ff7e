package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/naturalys/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:migrate-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.DriverSQLite, dsn)
	require.NoError(t, err)
	sdb, err := db.NewSQLX(gdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sdb.Close() })
	return sdb
}

type failingExecutor struct {
	calls int
}

func (f *failingExecutor) Name() string { return "broken" }

func (f *failingExecutor) Exec(context.Context, Migration) error {
	f.calls++
	return errors.New("boom")
}

func TestDiscoverOrdersUpScripts(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_tags.up.sql":        {Data: []byte("ALTER TABLE images ADD COLUMN tags TEXT;")},
		"000001_create_images.up.sql":   {Data: []byte("CREATE TABLE images (id TEXT);")},
		"000001_create_images.down.sql": {Data: []byte("DROP TABLE images;")},
		"README.md":                     {Data: []byte("ignored")},
	}

	migrations, err := DiscoverFS(fsys, ".")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, uint(1), migrations[0].Version)
	assert.Equal(t, "create_images", migrations[0].Name)
	assert.Equal(t, uint(2), migrations[1].Version)
}

func TestDiscoverEmptyAndMissingDir(t *testing.T) {
	migrations, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, migrations)

	_, err = Discover(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrDirNotFound)
}

func TestRunnerAppliesOnceThroughDatabase(t *testing.T) {
	sdb := openTestDB(t)
	migrations := []Migration{
		{Version: 1, Name: "create_notes", SQL: "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT); INSERT INTO notes (body) VALUES ('a');"},
	}

	runner := NewRunner(sdb, nil, nil, DBExecutor{DB: sdb})
	report, err := runner.Up(context.Background(), migrations)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied())

	var count int
	require.NoError(t, sdb.Get(&count, "SELECT COUNT(*) FROM notes"))
	assert.Equal(t, 1, count)

	report, err = runner.Up(context.Background(), migrations)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied())
	assert.True(t, report.Outcomes[0].Skipped)
}

func TestRunnerFallsBackToREST(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RPCPath || r.Header.Get("apikey") != "key" || r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sdb := openTestDB(t)
	broken := &failingExecutor{}
	runner := NewRunner(sdb, nil, nil, broken, RESTExecutor{BaseURL: server.URL + "/", APIKey: "key", Client: server.Client()})

	report, err := runner.Up(context.Background(), []Migration{{Version: 3, Name: "x", SQL: "SELECT 1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, "rest", report.Outcomes[0].Executor)
	assert.Equal(t, "SELECT 1", got["query"])
}

func TestRunnerPrintsManualInstructionsAndContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "function exec_sql does not exist", http.StatusNotFound)
	}))
	defer server.Close()

	var out bytes.Buffer
	sdb := openTestDB(t)
	runner := NewRunner(sdb, &out, nil,
		DBExecutor{DB: sdb},
		RESTExecutor{BaseURL: server.URL, Client: server.Client()},
	)

	report, err := runner.Up(context.Background(), []Migration{
		{Version: 1, Name: "bad", SQL: "THIS IS NOT SQL"},
		{Version: 2, Name: "good", SQL: "CREATE TABLE ok (id INTEGER);"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, out.String(), "THIS IS NOT SQL")

	assert.Equal(t, 1, report.Applied())
	require.Len(t, report.Pending(), 1)
	assert.Equal(t, uint(1), report.Pending()[0].Version)

	// 失败的迁移不记录版本，下次仍会尝试
	var versions []int64
	require.NoError(t, sdb.Select(&versions, "SELECT version FROM schema_migrations"))
	assert.Equal(t, []int64{2}, versions)
}

var createIndexIfNotExists = regexp.MustCompile(`(?i)create\s+(unique\s+)?index\s+if\s+not\s+exists`)

func TestRepositoryMigrationsApplyAlongsideAutoMigrate(t *testing.T) {
	migrations, err := Discover(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	for _, m := range migrations {
		assert.False(t, createIndexIfNotExists.MatchString(m.SQL), "%s uses syntax MySQL rejects", m.Name)
	}

	for _, autoFirst := range []bool{false, true} {
		dsn := fmt.Sprintf("file:repo-migrations-%d?mode=memory&cache=shared", time.Now().UnixNano())
		gdb, err := db.Open(db.DriverSQLite, dsn)
		require.NoError(t, err)
		sdb, err := db.NewSQLX(gdb)
		require.NoError(t, err)

		if autoFirst {
			require.NoError(t, db.Migrate(gdb))
		}
		report, err := NewRunner(sdb, nil, nil, DBExecutor{DB: sdb}).Up(context.Background(), migrations)
		require.NoError(t, err, "auto migrate first: %v", autoFirst)
		assert.Equal(t, len(migrations), report.Applied())
		require.NoError(t, db.Migrate(gdb))

		assert.True(t, gdb.Migrator().HasIndex(&db.ImageAsset{}, "idx_images_is_active"))
		assert.True(t, gdb.Migrator().HasIndex(&db.CatalogProduct{}, "idx_catalog_products_brand_id"))
		require.NoError(t, sdb.Close())
	}
}
