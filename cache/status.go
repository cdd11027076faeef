package cache

import (
	"sync"
	"time"

	"llm-chat-platform/models"
)

// StatusCache хранит последнее известное состояние зависимостей.
// Обновляется проверками, читается /ready.
type StatusCache struct {
	mu           sync.RWMutex
	dependencies map[string]models.DependencyStatus
	now          func() time.Time
}

// NewStatusCache создает кэш с заранее известным набором зависимостей
// в состоянии unknown
func NewStatusCache(dependencies ...string) *StatusCache {
	c := &StatusCache{
		dependencies: make(map[string]models.DependencyStatus, len(dependencies)),
		now:          time.Now,
	}
	for _, name := range dependencies {
		c.dependencies[name] = models.DependencyStatus{Status: models.StatusUnknown}
	}
	return c
}

// Record сохраняет результат проверки зависимости и возвращает предыдущее состояние
func (c *StatusCache) Record(name string, err error) models.Status {
	entry := models.DependencyStatus{
		Status:    models.StatusOK,
		CheckedAt: c.now(),
	}
	if err != nil {
		entry.Status = models.StatusError
		entry.Error = err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous, ok := c.dependencies[name]
	c.dependencies[name] = entry
	if !ok {
		return models.StatusUnknown
	}
	return previous.Status
}

// Snapshot возвращает копию состояния и общий статус: ok только если
// все зависимости в состоянии ok
func (c *StatusCache) Snapshot() models.ReadinessResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()

	overall := models.StatusOK
	deps := make(map[string]models.DependencyStatus, len(c.dependencies))
	for name, entry := range c.dependencies {
		deps[name] = entry
		switch entry.Status {
		case models.StatusError:
			overall = models.StatusError
		case models.StatusUnknown:
			if overall == models.StatusOK {
				overall = models.StatusUnknown
			}
		}
	}
	if len(deps) == 0 {
		overall = models.StatusUnknown
	}

	return models.ReadinessResponse{Status: overall, Dependencies: deps}
}
