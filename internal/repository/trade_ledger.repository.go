package repository

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/krobus00/satoshi/internal/constant"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/sirupsen/logrus"
)

// TradeLedgerRepository stores one JSON array of trade records per pair.
type TradeLedgerRepository struct {
	logger *logrus.Entry
	now    func() time.Time
}

func NewTradeLedgerRepository(logger *logrus.Entry) *TradeLedgerRepository {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &TradeLedgerRepository{
		logger: logger,
		now:    time.Now,
	}
}

func LedgerFilePath(dir string, coin string, currency string) string {
	name := strings.ToUpper(strings.TrimSpace(coin)) + "-" + strings.ToUpper(strings.TrimSpace(currency)) + constant.LedgerFileSuffix
	return filepath.Join(dir, name)
}

// Load returns the records stored at path. A missing file is an empty ledger;
// an unreadable one is moved aside to {path}.corrupt-{unix} and also treated as empty.
func (r *TradeLedgerRepository) Load(path string) ([]entity.TradeRecord, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []entity.TradeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return []entity.TradeRecord{}, nil
	}

	var records []entity.TradeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		backupPath := fmt.Sprintf("%s.corrupt-%d", path, r.now().Unix())
		if renameErr := os.Rename(path, backupPath); renameErr != nil {
			return nil, fmt.Errorf("back up corrupt ledger %s: %w", path, renameErr)
		}

		r.logger.WithFields(logrus.Fields{
			"path":   path,
			"backup": backupPath,
		}).WithError(err).Warn("ledger file is corrupt, starting a new one")

		return []entity.TradeRecord{}, nil
	}

	if records == nil {
		records = []entity.TradeRecord{}
	}

	return records, nil
}

// Save atomically replaces the ledger at path. The temp file lives next to the
// ledger so the final rename never crosses filesystems.
func (r *TradeLedgerRepository) Save(path string, records []entity.TradeRecord) error {
	if records == nil {
		records = []entity.TradeRecord{}
	}

	payload, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	payload = append(payload, '\n')

	err = renameio.WriteFile(path, payload, 0o644, renameio.WithTempDir(filepath.Dir(path)))
	if err != nil {
		return fmt.Errorf("replace ledger %s: %w", path, err)
	}

	return nil
}
