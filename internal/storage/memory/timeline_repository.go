package memory

import (
	"sort"
	"sync"

	"github.com/mkrylova/shopcore/internal/domain"
)

// timelineRepositoryInMemory хранит события в памяти (для разработки/тестов).
// События заказа лежат отсортированными по Occurred; одинаковые метки
// времени сохраняют порядок поступления.
type timelineRepositoryInMemory struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{byOrder: make(map[string][]domain.TimelineEvent)}
}

// Append вставляет событие в хронологическую позицию.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.byOrder[event.OrderID]
	// Место вставки: после всех событий с Occurred <= event.Occurred.
	idx := sort.Search(len(events), func(i int) bool {
		return events[i].Occurred.After(event.Occurred)
	})

	events = append(events, domain.TimelineEvent{})
	copy(events[idx+1:], events[idx:])
	events[idx] = event
	r.byOrder[event.OrderID] = events

	return nil
}

// List возвращает события заказа от самых ранних к самым поздним.
func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.byOrder[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
