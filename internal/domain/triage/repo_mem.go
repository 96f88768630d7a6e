package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memAssessmentRepo struct {
	mu          sync.RWMutex
	assessments map[uuid.UUID]*Assessment
}

func NewAssessmentRepoMemory() AssessmentRepository {
	return &memAssessmentRepo{assessments: make(map[uuid.UUID]*Assessment)}
}

func (m *memAssessmentRepo) Create(_ context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.assessments[a.ID] = a
	return nil
}

func (m *memAssessmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("triage assessment %s not found", id)
	}
	return a, nil
}

func (m *memAssessmentRepo) List(ctx context.Context, limit, offset int) ([]*Assessment, int, error) {
	return m.Search(ctx, nil, limit, offset)
}

func (m *memAssessmentRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Assessment, int, error) {
	m.mu.RLock()
	var matched []*Assessment
	for _, a := range m.assessments {
		if s, ok := params["severity"]; ok && string(a.Severity) != s {
			continue
		}
		if c, ok := params["condition"]; ok &&
			!strings.Contains(strings.ToLower(a.PrimaryCondition), strings.ToLower(c)) {
			continue
		}
		matched = append(matched, a)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return []*Assessment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
