package server

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tgienger/worksphere/internal/db"
	"github.com/tgienger/worksphere/internal/logging"
)

// SettingAutolockLastRun records when auto-lock last completed (RFC 3339)
const SettingAutolockLastRun = "autolock.last_run"

// Autolocker locks completed tasks on a cron schedule
type Autolocker struct {
	db     *db.DB
	logger *logging.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// NewAutolocker registers the lock job on schedule (standard five-field cron)
func NewAutolocker(database *db.DB, schedule string, logger *logging.Logger) (*Autolocker, error) {
	a := &Autolocker{
		db:     database,
		logger: logger.WithComponent("autolock"),
		cron:   cron.New(),
		now:    time.Now,
	}
	if _, err := a.cron.AddFunc(schedule, func() { _, _ = a.RunOnce() }); err != nil {
		return nil, err
	}
	return a, nil
}

// Start begins running the schedule in the background
func (a *Autolocker) Start() {
	a.cron.Start()
	a.logger.Info("scheduled", "entries", len(a.cron.Entries()))
}

// Stop halts the schedule and waits for a running job to finish
func (a *Autolocker) Stop() {
	<-a.cron.Stop().Done()
}

// RunOnce locks all completed tasks now and records the run
func (a *Autolocker) RunOnce() (int, error) {
	n, err := a.db.LockCompletedTasks()
	if err != nil {
		a.logger.Error("auto-lock failed", "error", err)
		return 0, err
	}
	if err := a.db.SetSetting(SettingAutolockLastRun, a.now().UTC().Format(time.RFC3339)); err != nil {
		a.logger.Error("failed to record auto-lock run", "error", err)
		return n, err
	}
	a.logger.Info("auto-lock completed", "locked", n)
	return n, nil
}
