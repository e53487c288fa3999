package scheduler

import (
	"github.com/ikkim/pos-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// LowStockRefresher recomputes low-stock flags against a threshold.
type LowStockRefresher interface {
	RefreshLowStock(threshold int) (int64, error)
}

// LowStockScheduler periodically refreshes product low-stock flags so the
// catalog reflects stock changes made outside the product API.
type LowStockScheduler struct {
	cron      *cron.Cron
	refresher LowStockRefresher
	spec      string
	threshold int
}

func NewLowStockScheduler(refresher LowStockRefresher, spec string, threshold int) *LowStockScheduler {
	return &LowStockScheduler{
		cron:      cron.New(),
		refresher: refresher,
		spec:      spec,
		threshold: threshold,
	}
}

// Start registers the job and starts the cron runner. An invalid spec is
// returned as an error and nothing is started.
func (s *LowStockScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.Run); err != nil {
		logger.Error("Failed to add cron job for low stock refresh", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Low stock scheduler started", map[string]interface{}{
		"spec":      s.spec,
		"threshold": s.threshold,
	})
	return nil
}

// Run performs one refresh.
func (s *LowStockScheduler) Run() {
	changed, err := s.refresher.RefreshLowStock(s.threshold)
	if err != nil {
		logger.Error("Scheduled low stock refresh failed", err)
		return
	}
	logger.Debug("Scheduled low stock refresh finished", map[string]interface{}{
		"changed": changed,
	})
}

// Stop stops the runner and waits for a running job to finish.
func (s *LowStockScheduler) Stop() {
	logger.Info("Stopping low stock scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Low stock scheduler stopped")
}
