package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/google/uuid"
)

// MemoryStore keeps templates and audit records in process memory. It has the
// same semantics as Store and backs tests and the --memory dev mode.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]memoryRow
	attempts  []types.AuthAttempt
}

type memoryRow struct {
	tpl       types.EnrollmentTemplate
	updatedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[string]memoryRow)}
}

func copyTemplate(tpl *types.EnrollmentTemplate) types.EnrollmentTemplate {
	c := *tpl
	c.Descriptor = tpl.Descriptor.Clone()
	return c
}

func (m *MemoryStore) CreateTemplate(_ context.Context, tpl *types.EnrollmentTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[tpl.OwnerID]; ok {
		return biometric.ErrAlreadyEnrolled
	}
	m.templates[tpl.OwnerID] = memoryRow{tpl: copyTemplate(tpl), updatedAt: tpl.CreatedAt}
	return nil
}

func (m *MemoryStore) ReplaceTemplate(_ context.Context, tpl *types.EnrollmentTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[tpl.OwnerID]; !ok {
		return biometric.ErrNotEnrolled
	}
	m.templates[tpl.OwnerID] = memoryRow{tpl: copyTemplate(tpl), updatedAt: time.Now()}
	return nil
}

func (m *MemoryStore) DeleteTemplate(_ context.Context, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.templates[ownerID]
	delete(m.templates, ownerID)
	return ok, nil
}

func (m *MemoryStore) GetTemplate(_ context.Context, ownerID string) (*types.EnrollmentTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.templates[ownerID]
	if !ok {
		return nil, biometric.ErrNotEnrolled
	}
	tpl := copyTemplate(&row.tpl)
	return &tpl, nil
}

func (m *MemoryStore) ListTemplates(_ context.Context) ([]types.TemplateInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.TemplateInfo, 0, len(m.templates))
	for _, row := range m.templates {
		out = append(out, types.TemplateInfo{
			OwnerID:     row.tpl.OwnerID,
			TemplateID:  row.tpl.TemplateID,
			Dimension:   len(row.tpl.Descriptor),
			SampleCount: row.tpl.SampleCount,
			CreatedAt:   row.tpl.CreatedAt,
			UpdatedAt:   row.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	return out, nil
}

func (m *MemoryStore) RecordAttempt(_ context.Context, a *types.AuthAttempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, ownerID string, limit int) ([]types.AuthAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.AuthAttempt
	for i := len(m.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.attempts[i].OwnerID == ownerID {
			out = append(out, m.attempts[i])
		}
	}
	return out, nil
}

// Reset forgets every template and audit record.
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = make(map[string]memoryRow)
	m.attempts = nil
	return nil
}
