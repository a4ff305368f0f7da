package transit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/subwaytime/mtapi/internal/logging"
)

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	return b
}

// supervise keeps the refresh loop running until shutdown, restarting it with
// exponential backoff whenever it dies.
func (m *Manager) supervise() {
	defer m.wg.Done()

	b := m.newBackOff()
	for {
		m.alive.Store(true)
		if m.refreshLoop() {
			return
		}
		m.alive.Store(false)

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			logging.LogOperation(m.logger, "refresh_loop_abandoned")
			return
		}
		logging.LogOperation(m.logger, "refresh_loop_restarting",
			slog.Duration("backoff", wait))

		select {
		case <-time.After(wait):
		case <-m.shutdownChan:
			return
		}
	}
}

// refreshLoop returns true on shutdown and false if it panicked.
func (m *Manager) refreshLoop() (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogError(m.logger, "refresh loop crashed", fmt.Errorf("panic: %v", r))
			stopped = false
		}
	}()

	ticker := time.NewTicker(m.config.Expiry)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if m.onTick != nil {
				m.onTick()
			}
			m.wg.Add(1)
			go m.refreshWorker()
		case <-m.shutdownChan:
			logging.LogOperation(m.logger, "shutting_down_refresh_loop")
			return true
		}
	}
}

func (m *Manager) refreshWorker() {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logging.LogError(m.logger, "refresh worker crashed", fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(m.baseCtx, m.config.LeaseTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, m.logger.With(slog.String("trigger", "periodic")))

	_ = m.Refresh(ctx)
}
