// Package taxonomy checks bulk update actions against the alias and
// implication graphs before they are persisted.
package taxonomy

import (
	"context"
	"slices"
	"sync"

	"github.com/tagwright/tagwright-server/internal/domain"
)

// Snapshot is the read-only view of the taxonomy used during validation.
// Lookups return (nil, nil) when no active record matches.
type Snapshot interface {
	ActiveAlias(ctx context.Context, antecedent string) (*domain.TagAlias, error)
	ActiveImplication(ctx context.Context, antecedent, consequent string) (*domain.TagImplication, error)
	// ImplicationsFrom lists the consequents of the active implications of antecedent.
	ImplicationsFrom(ctx context.Context, antecedent string) ([]string, error)
}

type edge struct{ from, to string }

// MemorySnapshot is an in-memory Snapshot for validating scripts without a
// store.
type MemorySnapshot struct {
	mu           sync.RWMutex
	aliases      map[string]string
	implications map[string][]string
}

// NewMemorySnapshot creates an empty snapshot.
func NewMemorySnapshot() *MemorySnapshot {
	return &MemorySnapshot{
		aliases:      make(map[string]string),
		implications: make(map[string][]string),
	}
}

// AddAlias records an active alias.
func (m *MemorySnapshot) AddAlias(antecedent, consequent string) *MemorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[antecedent] = consequent
	return m
}

// AddImplication records an active implication.
func (m *MemorySnapshot) AddImplication(antecedent, consequent string) *MemorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.implications[antecedent], consequent) {
		m.implications[antecedent] = append(m.implications[antecedent], consequent)
	}
	return m
}

func (m *MemorySnapshot) ActiveAlias(_ context.Context, antecedent string) (*domain.TagAlias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	consequent, ok := m.aliases[antecedent]
	if !ok {
		return nil, nil
	}
	return &domain.TagAlias{
		Kind:           domain.RelationAlias,
		AntecedentName: antecedent,
		ConsequentName: consequent,
		Status:         domain.RelationActive,
	}, nil
}

func (m *MemorySnapshot) ActiveImplication(_ context.Context, antecedent, consequent string) (*domain.TagImplication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !slices.Contains(m.implications[antecedent], consequent) {
		return nil, nil
	}
	return &domain.TagImplication{
		Kind:           domain.RelationImplication,
		AntecedentName: antecedent,
		ConsequentName: consequent,
		Status:         domain.RelationActive,
	}, nil
}

func (m *MemorySnapshot) ImplicationsFrom(_ context.Context, antecedent string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.implications[antecedent]), nil
}
