package repository

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedgerRepository() *TradeLedgerRepository {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := NewTradeLedgerRepository(logrus.NewEntry(logger))
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }

	return repo
}

func sampleRecord(orderID string) entity.TradeRecord {
	return entity.TradeRecord{
		Date:             "2023-11-14 22:13",
		OrderID:          orderID,
		OrderExecutionID: "e-" + orderID,
		Coin:             "BTC",
		OrderType:        "market",
		PricePerUnit:     "350000.12",
		Currency:         "BRL",
		Cost:             "100.00",
		FeeRatePercent:   "0.50",
		Fee:              "0.00000143",
		Quantity:         "0.00028571",
	}
}

func TestLedgerFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("orders", "BTC-BRL-orders.json"), LedgerFilePath("orders", "btc", " brl "))
}

func TestTradeLedgerLoadMissing(t *testing.T) {
	repo := newTestLedgerRepository()

	records, err := repo.Load(filepath.Join(t.TempDir(), "BTC-BRL-orders.json"))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestTradeLedgerSaveAndLoadKeepsOrder(t *testing.T) {
	repo := newTestLedgerRepository()
	path := filepath.Join(t.TempDir(), "BTC-BRL-orders.json")

	require.NoError(t, repo.Save(path, []entity.TradeRecord{sampleRecord("o1"), sampleRecord("o2")}))

	records, err := repo.Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "o1", records[0].OrderID)
	assert.Equal(t, "o2", records[1].OrderID)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `    {`)
	assert.Contains(t, string(raw), `"fee_rate_percent": "0.50"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestTradeLedgerSaveEmptyWritesArray(t *testing.T) {
	repo := newTestLedgerRepository()
	path := filepath.Join(t.TempDir(), "ETH-BRL-orders.json")

	require.NoError(t, repo.Save(path, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []entity.TradeRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Empty(t, decoded)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestTradeLedgerLoadCorruptIsBackedUp(t *testing.T) {
	repo := newTestLedgerRepository()
	dir := t.TempDir()
	path := filepath.Join(dir, "BTC-BRL-orders.json")

	require.NoError(t, os.WriteFile(path, []byte(`[{"order_id": "o1"`), 0o644))

	records, err := repo.Load(path)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	backup, err := os.ReadFile(path + ".corrupt-1700000000")
	require.NoError(t, err)
	assert.Equal(t, `[{"order_id": "o1"`, string(backup))
}

func TestTradeLedgerLoadBlankFile(t *testing.T) {
	repo := newTestLedgerRepository()
	path := filepath.Join(t.TempDir(), "BTC-BRL-orders.json")

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	records, err := repo.Load(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTradeLedgerSaveReplacesExistingFile(t *testing.T) {
	repo := newTestLedgerRepository()
	path := filepath.Join(t.TempDir(), "BTC-BRL-orders.json")

	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o600))
	require.NoError(t, repo.Save(path, []entity.TradeRecord{sampleRecord("o1")}))

	records, err := repo.Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTradeLedgerSaveMissingDirectory(t *testing.T) {
	repo := newTestLedgerRepository()
	path := filepath.Join(t.TempDir(), "missing", "BTC-BRL-orders.json")

	assert.Error(t, repo.Save(path, []entity.TradeRecord{sampleRecord("o1")}))
	assert.NoFileExists(t, path)
}
