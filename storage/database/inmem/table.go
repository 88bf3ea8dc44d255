package inmemdb

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
)

// table is an owned collection of records. Records never leave it by reference:
// reads hand out clones and writes store clones.
type table[T any] struct {
	sync.RWMutex
	name  string
	rows  map[string]T
	order []string
	idOf  func(T) string
	clone func(T) T
}

func newTable[T any](name string, idOf func(T) string, clone func(T) T) *table[T] {
	if clone == nil {
		clone = func(rec T) T { return rec }
	}
	return &table[T]{name: name, rows: make(map[string]T), idOf: idOf, clone: clone}
}

func (t *table[T]) notFound(id string) error {
	return errors.Wrapf(core.ErrNotFound, "%s %q", t.name, id)
}

func (t *table[T]) query(match func(T) bool) []T {
	recs := make([]T, 0, len(t.order))
	for _, id := range t.order {
		rec := t.rows[id]
		if match == nil || match(rec) {
			recs = append(recs, t.clone(rec))
		}
	}
	return recs
}

func (t *table[T]) List() ([]T, error) {
	t.RLock()
	defer t.RUnlock()
	return t.query(nil), nil
}

func (t *table[T]) Get(id string) (T, error) {
	t.RLock()
	defer t.RUnlock()

	rec, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, t.notFound(id)
	}
	return t.clone(rec), nil
}

func (t *table[T]) Filter(match func(T) bool) ([]T, error) {
	t.RLock()
	defer t.RUnlock()
	return t.query(match), nil
}

func (t *table[T]) Add(rec T) (T, error) {
	t.Lock()
	defer t.Unlock()

	id := t.idOf(rec)
	if _, ok := t.rows[id]; ok {
		var zero T
		return zero, errors.Wrapf(core.ErrDuplicateID, "%s %q", t.name, id)
	}
	t.rows[id] = t.clone(rec)
	t.order = append(t.order, id)
	return t.clone(rec), nil
}

func (t *table[T]) Update(id string, fn func(*T) error) (T, error) {
	t.Lock()
	defer t.Unlock()

	var zero T
	orig, ok := t.rows[id]
	if !ok {
		return zero, t.notFound(id)
	}
	rec := t.clone(orig)
	if err := fn(&rec); err != nil {
		return zero, err
	}
	if t.idOf(rec) != id {
		return zero, core.NewValidationError(nil, core.FieldError{Field: "id", Error: "cannot be changed"})
	}
	t.rows[id] = t.clone(rec)
	return rec, nil
}

func (t *table[T]) Remove(id string) error {
	t.Lock()
	defer t.Unlock()

	if _, ok := t.rows[id]; !ok {
		return t.notFound(id)
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of records.
func (t *table[T]) Len() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.order)
}

func (t *table[T]) key() string {
	return t.name
}

func (t *table[T]) encode() ([]byte, error) {
	t.RLock()
	defer t.RUnlock()
	return json.Marshal(t.query(nil))
}

func (t *table[T]) decode(data []byte) error {
	var recs []T
	if err := json.Unmarshal(data, &recs); err != nil {
		return errors.Wrapf(err, "decoding %s", t.name)
	}
	return t.replace(recs)
}

// replace swaps the whole content of the table.
func (t *table[T]) replace(recs []T) error {
	rows := make(map[string]T, len(recs))
	order := make([]string, 0, len(recs))
	for _, rec := range recs {
		id := t.idOf(rec)
		if _, ok := rows[id]; ok {
			return errors.Wrapf(core.ErrDuplicateID, "%s %q", t.name, id)
		}
		rows[id] = t.clone(rec)
		order = append(order, id)
	}

	t.Lock()
	defer t.Unlock()
	t.rows = rows
	t.order = order
	return nil
}
