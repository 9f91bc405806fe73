package responses

import (
	"context"
	"sync"
)

// MemoryStore keeps rows in memory.
type MemoryStore struct {
	schema Schema

	mu   sync.Mutex
	rows []Row
	// Err, when set, is returned by every Insert.
	Err error
}

// NewMemoryStore returns an empty store for schema.
func NewMemoryStore(schema Schema) *MemoryStore {
	return &MemoryStore{schema: schema}
}

func (m *MemoryStore) Insert(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.schema.Conform(row); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.rows = append(m.rows, cloneRow(row))
	return nil
}

// Rows returns copies of the stored rows in insert order.
func (m *MemoryStore) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	for i, row := range m.rows {
		out[i] = cloneRow(row)
	}
	return out
}

func (m *MemoryStore) Close() error { return nil }

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		if items, ok := v.([]string); ok {
			out[k] = append([]string{}, items...)
			continue
		}
		out[k] = v
	}
	return out
}
