package balance_test

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/frahmantamala/expense-tracker/internal"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

var errStoreDown = errors.New("store down")

// memoryCategories is a concurrency-safe CategoryStore. Reads hand out
// copies so callers cannot mutate stored rows without UpdateTotal.
type memoryCategories struct {
	mu         sync.Mutex
	rows       map[string]categoryDatamodel.Category
	failGet    error
	failCreate error
	failUpdate error
	failDelete error
	yield      bool
	updates    int
}

func newMemoryCategories() *memoryCategories {
	return &memoryCategories{rows: make(map[string]categoryDatamodel.Category)}
}

func visible(scope internal.Scope, c categoryDatamodel.Category) bool {
	return !scope.IsTenant() || c.OwnerID == scope.OwnerID
}

func (m *memoryCategories) GetByID(_ context.Context, scope internal.Scope, id string) (*categoryDatamodel.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	c, ok := m.rows[id]
	if !ok || !visible(scope, c) {
		return nil, nil
	}
	if m.yield {
		m.mu.Unlock()
		runtime.Gosched()
		m.mu.Lock()
	}
	return &c, nil
}

func (m *memoryCategories) GetByName(_ context.Context, scope internal.Scope, name string) (*categoryDatamodel.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, c := range m.rows {
		if c.Name == name && visible(scope, c) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryCategories) Create(_ context.Context, c *categoryDatamodel.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.rows[c.ID] = *c
	return nil
}

func (m *memoryCategories) UpdateTotal(_ context.Context, scope internal.Scope, id string, total float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	c, ok := m.rows[id]
	if !ok || !visible(scope, c) {
		return nil
	}
	c.Total = total
	m.rows[id] = c
	m.updates++
	return nil
}

func (m *memoryCategories) Delete(_ context.Context, scope internal.Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	if c, ok := m.rows[id]; ok && visible(scope, c) {
		delete(m.rows, id)
	}
	return nil
}

func (m *memoryCategories) put(c categoryDatamodel.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c
}

func (m *memoryCategories) get(id string) (categoryDatamodel.Category, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	return c, ok
}

func (m *memoryCategories) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memoryExpenses struct {
	mu       sync.Mutex
	byCat    map[string]int
	failWith error
	cascaded []string
}

func newMemoryExpenses() *memoryExpenses {
	return &memoryExpenses{byCat: make(map[string]int)}
}

func (m *memoryExpenses) DeleteByCategory(_ context.Context, _ internal.Scope, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.byCat, categoryID)
	m.cascaded = append(m.cascaded, categoryID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.BalanceChangedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(*events.BalanceChangedEvent); ok {
		p.events = append(p.events, e)
	}
	return nil
}

func (p *recordingPublisher) reasons() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Reason)
	}
	return out
}
