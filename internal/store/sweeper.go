package store

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper deletes expired refresh-token rows on an interval. Expiry
// is enforced at refresh time either way; the sweep only bounds table
// growth.
func (s *TokenStore) StartSweeper(interval time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := s.DeleteExpired(context.Background())
				if err != nil {
					slog.Error("refresh token sweep failed", "error", err)
				} else if deleted > 0 {
					slog.Info("refresh token sweep completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}
