package deal_test

import (
	"context"
	"errors"
	"sync"

	"dms_sales/internal/domain"
	"dms_sales/internal/domain/entity"
	"dms_sales/internal/domain/value"
	"dms_sales/pkg/errcodes"
)

var errStorage = errors.New("storage is down")

// memRepo — хранилище в памяти с той же проверкой версий, что и SQL-репозиторий.
type memRepo struct {
	mu     sync.Mutex
	deals  map[value.DealID]*entity.Deal
	writes int

	// beforeWrite вызывается после чтения сделки сервисом, но до записи.
	beforeWrite func()
	failCreate  error
}

func newMemRepo() *memRepo {
	return &memRepo{deals: make(map[value.DealID]*entity.Deal)}
}

func (r *memRepo) GetByID(_ context.Context, id value.DealID) (*entity.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deals[id]
	if !ok {
		return nil, domain.NotFound(errcodes.DealNotFound, "deal not found")
	}

	return d.Clone(), nil
}

func (r *memRepo) List(_ context.Context, filter entity.DealFilter) ([]entity.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deals []entity.Deal
	for _, d := range r.deals {
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		deals = append(deals, *d.Clone())
	}

	return deals, nil
}

func (r *memRepo) Create(_ context.Context, deal *entity.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return r.failCreate
	}

	deal.Version = 1
	r.deals[deal.ID] = deal.Clone()
	r.writes++

	return nil
}

func (r *memRepo) Update(_ context.Context, deal *entity.Deal) error {
	return r.write(deal)
}

func (r *memRepo) AppendStatusHistory(_ context.Context, deal *entity.Deal, _ entity.DealStatusHistory) error {
	return r.write(deal)
}

func (r *memRepo) AddAddOn(_ context.Context, deal *entity.Deal, _ entity.DealAddOn) error {
	return r.write(deal)
}

func (r *memRepo) RemoveAddOn(_ context.Context, deal *entity.Deal, _ value.AddOnID) error {
	return r.write(deal)
}

func (r *memRepo) write(deal *entity.Deal) error {
	if hook := r.takeHook(); hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.deals[deal.ID]
	if !ok {
		return domain.NotFound(errcodes.DealNotFound, "deal not found")
	}

	if stored.Version != deal.Version {
		return domain.Conflict(errcodes.DealVersionConflict, "deal was modified concurrently")
	}

	deal.Version++
	r.deals[deal.ID] = deal.Clone()
	r.writes++

	return nil
}

func (r *memRepo) takeHook() func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	hook := r.beforeWrite
	r.beforeWrite = nil

	return hook
}

func (r *memRepo) stored(id value.DealID) *entity.Deal {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deals[id].Clone()
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.deals)
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]value.DealID
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: make(map[string]value.DealID)}
}

func (m *memIdempotency) Reserve(_ context.Context, key string, id value.DealID) (value.DealID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.keys[key]; ok {
		return existing, false, nil
	}

	m.keys[key] = id

	return id, true, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)

	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.StatusChange
	err    error
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, event entity.StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, event)

	return nil
}
