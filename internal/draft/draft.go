// Package draft keeps in-progress report forms between requests.
package draft

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"oprdesk/internal/gallery"
	"oprdesk/pkg/domain"
)

// ErrNotFound is returned for an unknown draft id.
var ErrNotFound = errors.New("draft not found")

// Creator is the report store surface used on submit.
type Creator interface {
	Create(ctx context.Context, fields domain.Fields, images []string) (domain.Report, error)
}

// Draft is one form being filled in. Field writes are not validated until Submit.
type Draft struct {
	ID        string
	CreatedAt time.Time
	Gallery   *gallery.Gallery

	mu     sync.RWMutex
	fields domain.Fields

	// touched is guarded by the owning Registry's mutex.
	touched time.Time
}

// Snapshot is a point-in-time copy of a draft.
type Snapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	domain.Fields
	Images    []string `json:"images"`
	Remaining int      `json:"remaining_slots"`
}

// SetField stores value under field, overwriting any previous value.
func (d *Draft) SetField(field domain.Field, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields.Set(field, value)
}

// Field returns the current value of field.
func (d *Draft) Field(field domain.Field) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fields.Get(field)
}

// Fields returns a copy of the scalar values.
func (d *Draft) Fields() domain.Fields {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fields
}

// Snapshot copies the draft for display.
func (d *Draft) Snapshot() Snapshot {
	images := d.Gallery.Images()
	return Snapshot{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Fields:    d.Fields(),
		Images:    images,
		Remaining: domain.MaxImages - len(images),
	}
}

// Registry holds open drafts keyed by id.
type Registry struct {
	mu      sync.Mutex
	drafts  map[string]*Draft
	now     func() time.Time
	idleTTL time.Duration
	maxOpen int
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL drops drafts that have not been fetched for ttl. Zero keeps
// drafts until they are submitted or discarded.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.idleTTL = ttl
		}
	}
}

// WithMaxOpen caps the number of open drafts. Opening one more evicts the
// least recently used draft.
func WithMaxOpen(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxOpen = n
		}
	}
}

// NewRegistry returns an empty registry. A nil now uses time.Now.
func NewRegistry(now func() time.Time, opts ...RegistryOption) *Registry {
	if now == nil {
		now = time.Now
	}
	r := &Registry{drafts: make(map[string]*Draft), now: now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// New opens a draft with date and time defaulted to the current moment.
func (r *Registry) New() *Draft {
	now := r.now()
	d := &Draft{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC(),
		Gallery:   gallery.New(),
		touched:   now,
	}
	d.fields.Date = now.Format("2006-01-02")
	d.fields.Time = now.Format("15:04")
	r.mu.Lock()
	r.sweepLocked(now)
	if r.maxOpen > 0 {
		for len(r.drafts) >= r.maxOpen {
			r.evictOldestLocked()
		}
	}
	r.drafts[d.ID] = d
	r.mu.Unlock()
	return d
}

// Get returns the draft with id and marks it as recently used.
func (r *Registry) Get(id string) (*Draft, error) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if ok && r.expired(d, now) {
		delete(r.drafts, id)
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	d.touched = now
	return d, nil
}

// Sweep drops idle drafts and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(now)
}

func (r *Registry) expired(d *Draft, now time.Time) bool {
	return r.idleTTL > 0 && now.Sub(d.touched) >= r.idleTTL
}

func (r *Registry) sweepLocked(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	n := 0
	for id, d := range r.drafts {
		if r.expired(d, now) {
			delete(r.drafts, id)
			n++
		}
	}
	return n
}

func (r *Registry) evictOldestLocked() {
	var victim *Draft
	for _, d := range r.drafts {
		if victim == nil || d.touched.Before(victim.touched) {
			victim = d
		}
	}
	if victim != nil {
		delete(r.drafts, victim.ID)
	}
}

// List returns the open drafts, oldest first.
func (r *Registry) List() []*Draft {
	r.mu.Lock()
	out := make([]*Draft, 0, len(r.drafts))
	for _, d := range r.drafts {
		out = append(out, d)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Discard drops the draft, reporting whether it existed.
func (r *Registry) Discard(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.drafts[id]
	delete(r.drafts, id)
	return ok
}

// Submit turns the draft into a stored report. The draft is consumed only on
// success; a validation or persistence failure leaves it open for correction.
func (r *Registry) Submit(ctx context.Context, id string, store Creator) (domain.Report, error) {
	d, err := r.Get(id)
	if err != nil {
		return domain.Report{}, err
	}
	report, err := store.Create(ctx, d.Fields(), d.Gallery.Images())
	if err != nil {
		return domain.Report{}, err
	}
	r.Discard(id)
	return report, nil
}
