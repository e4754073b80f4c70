package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"vuload/internal/runner"
	"vuload/internal/stats"
)

// HistoryItem is one finished run as stored on disk.
type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Config    runner.Config `json:"config"`
	Result    *stats.Result `json:"result"`
}

// NewHistoryItem pairs a config with the result it produced.
func NewHistoryItem(cfg runner.Config, res *stats.Result) HistoryItem {
	return HistoryItem{
		ID:        res.ID,
		Timestamp: res.StartedAt,
		Config:    cfg,
		Result:    res,
	}
}

// DefaultPath is ~/.vuload/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locating home directory")
	}
	return filepath.Join(home, ".vuload", "history.db"), nil
}
