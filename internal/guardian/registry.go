// Package guardian keeps the user's list of trusted contacts.
package guardian

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
)

var (
	ErrNameRequired = errors.New("guardian name is required")
	ErrNotFound     = errors.New("guardian not found")
)

// IDGenerator issues guardian identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDv4 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Seed is the list every fresh session starts with.
var Seed = []domain.Guardian{
	{Name: "Mom", Phone: "+1234567890"},
	{Name: "Dad", Phone: "+0987654321"},
}

// Registry is the in-memory guardian list with optional persistence.
type Registry struct {
	ids      IDGenerator
	store    *FileStore
	notifier device.Notifier
	logger   *zap.Logger

	mu       sync.RWMutex
	list     []domain.Guardian
	onChange func([]domain.Guardian)
}

// NewRegistry loads the persisted list when store is non-nil and falls back
// to the seed list.
func NewRegistry(ids IDGenerator, store *FileStore, notifier device.Notifier, logger *zap.Logger) (*Registry, error) {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if notifier == nil {
		notifier = device.NopNotifier{}
	}
	r := &Registry{ids: ids, store: store, notifier: notifier, logger: logging.OrNop(logger)}

	if store != nil {
		saved, found, err := store.Load()
		if err != nil {
			return nil, err
		}
		if found {
			r.list = saved
			return r, nil
		}
	}
	for _, g := range Seed {
		g.ID = ids.NewID()
		r.list = append(r.list, g)
	}
	return r, nil
}

// OnChange registers a callback invoked with the new list after every change.
func (r *Registry) OnChange(fn func([]domain.Guardian)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// List returns a copy of the guardians in insertion order.
func (r *Registry) List() []domain.Guardian {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Guardian(nil), r.list...)
}

// Add appends a guardian. The phone number is optional.
func (r *Registry) Add(name, phone string) (domain.Guardian, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		r.notifier.Notify(domain.NewNotice("Name Required",
			"Please enter a name for the guardian.", domain.NoticeDestructive, 3*time.Second))
		return domain.Guardian{}, fmt.Errorf("%w: %w", domain.ErrProviderValidation, ErrNameRequired)
	}
	g := domain.Guardian{ID: r.ids.NewID(), Name: name, Phone: strings.TrimSpace(phone)}

	r.mu.Lock()
	r.list = append(r.list, g)
	r.mu.Unlock()

	r.changed()
	r.notifier.Notify(domain.NewNotice("Guardian Added",
		g.Name+" has been added to your trusted guardians.", domain.NoticeDefault, 3*time.Second))
	r.logger.Info("guardian added", zap.String("id", g.ID), zap.String("name", g.Name))
	return g, nil
}

// Remove deletes the guardian with id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	idx := -1
	for i, g := range r.list {
		if g.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return ErrNotFound
	}
	r.list = append(r.list[:idx:idx], r.list[idx+1:]...)
	r.mu.Unlock()

	r.changed()
	r.notifier.Notify(domain.NewNotice("Guardian Removed",
		"The guardian has been removed from your trusted list.", domain.NoticeDefault, 3*time.Second))
	r.logger.Info("guardian removed", zap.String("id", id))
	return nil
}

func (r *Registry) changed() {
	list := r.List()
	if r.store != nil {
		if err := r.store.Save(list); err != nil {
			r.logger.Warn("saving guardians failed", zap.Error(err))
		}
	}
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn != nil {
		fn(list)
	}
}
