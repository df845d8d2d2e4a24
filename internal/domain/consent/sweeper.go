package consent

import (
	"context"
	"time"

	"health-consent/internal/platform/logger"
)

// RunSweeper marca expired los pending vencidos cada interval hasta que ctx
// se cancela. Es opcional: ningún invariante depende de que corra.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration, log logger.Logger) error {
	if interval <= 0 {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				log.Warn("consent sweep failed", map[string]any{"err": err})
				continue
			}
			if n > 0 {
				log.Debug("consent sweep", map[string]any{"expired": n})
			}
		}
	}
}
