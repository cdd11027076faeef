package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Prober выполняет одну проверку всех зависимостей
type Prober interface {
	ProbeAll(ctx context.Context) error
}

// DependencyMonitor периодически проверяет зависимости по cron расписанию
type DependencyMonitor struct {
	prober   Prober
	schedule string
	timeout  time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	initial sync.WaitGroup
}

// NewDependencyMonitor создает монитор. Пустое расписание отключает монитор.
// timeout ограничивает один прогон проверок.
func NewDependencyMonitor(prober Prober, schedule string, timeout time.Duration, log *slog.Logger) *DependencyMonitor {
	return &DependencyMonitor{
		prober:   prober,
		schedule: schedule,
		timeout:  timeout,
		log:      log.With("component", "dependency_monitor"),
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// ValidateSchedule проверяет cron выражение (поддерживаются дескрипторы вида "@every 30s")
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start запускает монитор. Первая проверка выполняется сразу.
func (m *DependencyMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedule == "" {
		m.log.Info("dependency monitor schedule not configured, skipping")
		return nil
	}
	if m.running {
		return nil
	}

	if err := ValidateSchedule(m.schedule); err != nil {
		return err
	}

	if _, err := m.cron.AddFunc(m.schedule, func() { m.runOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule dependency monitor: %w", err)
	}

	m.initial.Add(1)
	go func() {
		defer m.initial.Done()
		m.runOnce(ctx)
	}()

	m.cron.Start()
	m.running = true
	m.log.Info("dependency monitor started", "schedule", m.schedule, "timeout", m.timeout)

	return nil
}

// Stop останавливает монитор и ждет завершения текущей проверки
func (m *DependencyMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	<-m.cron.Stop().Done()
	m.initial.Wait()
	m.running = false
	m.log.Info("dependency monitor stopped")
}

// IsRunning сообщает, запущен ли монитор
func (m *DependencyMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// NextRun время следующей проверки или nil, если монитор не запущен
func (m *DependencyMonitor) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.cron.Entries()
	if !m.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

func (m *DependencyMonitor) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	if err := m.prober.ProbeAll(runCtx); err != nil {
		m.log.Debug("scheduled dependency check failed", "error", err)
		return
	}
	m.log.Debug("scheduled dependency check passed")
}
