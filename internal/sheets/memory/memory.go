package memory

import (
	"context"
	"sync"

	"fintrack/internal/sheets"
)

// Exporter keeps exported rows in memory, in first-upsert order. It backs
// local development and tests.
type Exporter struct {
	mu    sync.Mutex
	order []string
	rows  map[string]sheets.Row
}

var _ sheets.TransactionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: map[string]sheets.Row{}}
}

func (e *Exporter) UpsertTransaction(_ context.Context, row sheets.Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[row.ID]; !ok {
		e.order = append(e.order, row.ID)
	}
	e.rows[row.ID] = row
	return nil
}

func (e *Exporter) DeleteTransaction(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[id]; !ok {
		return nil
	}
	delete(e.rows, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns a copy of the exported rows.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sheets.Row, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.rows[id])
	}
	return out
}

// Row returns the exported row for id.
func (e *Exporter) Row(id string) (sheets.Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rows[id]
	return r, ok
}
