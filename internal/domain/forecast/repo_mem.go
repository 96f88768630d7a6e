package forecast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRunRepo keeps runs in process memory. It backs the API when no
// DATABASE_URL is configured.
type memRunRepo struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
}

func NewRunRepoMemory() RunRepository {
	return &memRunRepo{runs: make(map[uuid.UUID]*Run)}
}

func (m *memRunRepo) Create(_ context.Context, r *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.runs[r.ID] = r
	return nil
}

func (m *memRunRepo) GetByID(_ context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("forecast run %s not found", id)
	}
	return r, nil
}

func (m *memRunRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, id)
	return nil
}

func (m *memRunRepo) List(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	return m.Search(ctx, nil, limit, offset)
}

func (m *memRunRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Run, int, error) {
	m.mu.RLock()
	var matched []*Run
	for _, r := range m.runs {
		if d, ok := params["disease"]; ok && r.Disease != d {
			continue
		}
		if s, ok := params["scenario"]; ok && string(r.Scenario) != s {
			continue
		}
		if l, ok := params["location"]; ok && !strings.EqualFold(r.Location, l) {
			continue
		}
		matched = append(matched, r)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return []*Run{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
