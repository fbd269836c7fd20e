package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SQLiteDBPath:    filepath.Join(t.TempDir(), "fintrack.db"),
		ExportBackend:   "memory",
		ExportBatchSize: 2,
	}
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd(cfg, quietLogger())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seed creates a user with three March 2024 expenses and returns its email.
func seed(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(ctx, cfg.SQLiteDBPath)
	require.NoError(t, err)
	defer repo.Close()

	u, err := repo.CreateUser(ctx, core.User{FullName: "Ada", Email: "ada@example.com", PasswordHash: "x", BaseCurrency: "USD"})
	require.NoError(t, err)

	cats, err := repo.FindVisibleCategories(ctx, u.ID)
	require.NoError(t, err)
	var expenseCat string
	for _, c := range cats {
		if c.Type == core.Expense {
			expenseCat = c.ID
			break
		}
	}
	require.NotEmpty(t, expenseCat)

	for i, amount := range []float64{10, 20, 30} {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			OwnerID:    u.ID,
			Name:       "Coffee",
			Amount:     amount,
			Currency:   "USD",
			CategoryID: expenseCat,
			Date:       time.Date(2024, 3, 10+i, 9, 0, 0, 0, time.UTC),
			Type:       core.Expense,
		})
		require.NoError(t, err)
	}
	return u.Email
}

func TestMigrateCommand(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "migrate", "--output", "json")
	require.NoError(t, err)

	var got struct {
		Version uint `json:"version"`
		Dirty   bool `json:"dirty"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Positive(t, got.Version)
	assert.False(t, got.Dirty)
}

func TestSeedCategoriesIsIdempotent(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "seed-categories")
	require.NoError(t, err)
	assert.Contains(t, out, "default categories already present")
}

func TestDashboardCommand(t *testing.T) {
	cfg := testConfig(t)
	email := seed(t, cfg)

	out, err := run(t, cfg, "dashboard", "--email", email, "--date", "2024-03-15", "--output", "json")
	require.NoError(t, err)

	var d struct {
		Summary struct {
			Expense          float64 `json:"expense"`
			TransactionCount int     `json:"transactionCount"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, 60.0, d.Summary.Expense)
	assert.Equal(t, 3, d.Summary.TransactionCount)

	out, err = run(t, cfg, "dashboard", "--email", email, "--period", "yearly", "--date", "2024-03-15")
	require.NoError(t, err)
	assert.Contains(t, out, "yearly")
	assert.Contains(t, out, "expense 60.00")

	_, err = run(t, cfg, "dashboard", "--email", "nobody@example.com")
	assert.ErrorContains(t, err, "no user with email")

	_, err = run(t, cfg, "dashboard")
	assert.ErrorContains(t, err, "--email is required")

	_, err = run(t, cfg, "dashboard", "--email", email, "--period", "hourly")
	assert.ErrorContains(t, err, "periodType must be one of")
}

func TestExportPendingCommand(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg)

	out, err := run(t, cfg, "export-pending", "--output", "json")
	require.NoError(t, err)

	var got struct {
		Exported int    `json:"exported"`
		Backend  string `json:"backend"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Exported)
	assert.Equal(t, "memory", got.Backend)

	out, err = run(t, cfg, "export-pending")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 0 transactions")
}

func TestInvalidOutputFlag(t *testing.T) {
	_, err := run(t, testConfig(t), "migrate", "--output", "yaml")
	assert.ErrorContains(t, err, "invalid --output value")
}

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	exp, err := NewExporter(ctx, &config.Config{ExportBackend: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, exp)

	_, err = NewExporter(ctx, &config.Config{ExportBackend: "ftp"})
	assert.ErrorContains(t, err, "unknown export backend")

	_, err = NewExporter(ctx, &config.Config{ExportBackend: "sheets"})
	assert.ErrorContains(t, err, "missing GOOGLE_SPREADSHEET_ID")
}

func TestSetupLoggerAddsRequestID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger(&buf, slog.LevelInfo, "test")
	logger.InfoContext(applog.WithRequestID(context.Background(), "req_abc"), "hello")
	slog.Debug("filtered")

	assert.Contains(t, buf.String(), "request_id=req_abc")
	assert.NotContains(t, buf.String(), "filtered")
}
