package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/storage"
)

// Notifier receives the new settings after every mutation. A nil notifier
// disables the announcement; delivery is best-effort and carries no reply.
type Notifier interface {
	SettingsUpdated(ctx context.Context, s model.Settings) error
}

// Service manages work type categories and feature toggles. The store
// holds the single source of truth; the notifier keeps a running
// authority's cache and subscribers in step.
type Service struct {
	store    *storage.Store
	notifier Notifier
}

// New returns a settings service. notifier may be nil.
func New(st *storage.Store, notifier Notifier) *Service {
	return &Service{store: st, notifier: notifier}
}

// Get loads the current settings.
func (s *Service) Get() (model.Settings, error) {
	return s.store.Settings()
}

// AddWorkType appends a new category. Empty names and duplicates are
// rejected.
func (s *Service) AddWorkType(ctx context.Context, name string) (model.Settings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Settings{}, fmt.Errorf("work type name must not be empty: %w", model.ErrValidation)
	}
	st, err := s.store.Settings()
	if err != nil {
		return model.Settings{}, err
	}
	if st.HasWorkType(name) {
		return model.Settings{}, fmt.Errorf("work type %q already exists: %w", name, model.ErrValidation)
	}
	st.WorkTypes = append(st.WorkTypes, name)
	if err := s.store.SaveSettings(st); err != nil {
		return model.Settings{}, err
	}
	s.notify(ctx, st)
	return st, nil
}

// DeleteWorkType removes a category. The last remaining category cannot be
// deleted; records keep their type string even when the category goes.
func (s *Service) DeleteWorkType(ctx context.Context, name string) (model.Settings, error) {
	st, err := s.store.Settings()
	if err != nil {
		return model.Settings{}, err
	}
	if !st.HasWorkType(name) {
		return model.Settings{}, fmt.Errorf("unknown work type %q: %w", name, model.ErrValidation)
	}
	if len(st.WorkTypes) == 1 {
		return model.Settings{}, fmt.Errorf("cannot delete the last work type: %w", model.ErrValidation)
	}
	var kept []string
	for _, t := range st.WorkTypes {
		if t != name {
			kept = append(kept, t)
		}
	}
	st.WorkTypes = kept
	if err := s.store.SaveSettings(st); err != nil {
		return model.Settings{}, err
	}
	s.notify(ctx, st)
	return st, nil
}

// SetFeature flips one feature toggle through the store's deep-set path
// and returns the settings as reloaded from the rewritten blob.
func (s *Service) SetFeature(ctx context.Context, name string, enabled bool) (model.Settings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Settings{}, fmt.Errorf("feature name must not be empty: %w", model.ErrValidation)
	}
	if err := s.store.UpdateSetting("features."+name, enabled); err != nil {
		return model.Settings{}, err
	}
	st, err := s.store.Settings()
	if err != nil {
		return model.Settings{}, err
	}
	s.notify(ctx, st)
	return st, nil
}

func (s *Service) notify(ctx context.Context, st model.Settings) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.SettingsUpdated(ctx, st)
}
