// Package memory holds the record store in process memory. It backs local runs
// without Postgres and the service tests.
package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/specification"

	"github.com/patrickmn/go-cache"
)

var ErrUnsupportedSpecification = errors.New("specification not supported by the memory store")

type row[T any] struct {
	seq   int64
	value T
}

// table keeps rows in insertion order.
type table[T any] struct {
	items *cache.Cache
	seq   *atomic.Int64
	mu    sync.Mutex
}

func newTable[T any](seq *atomic.Int64) *table[T] {
	return &table[T]{items: cache.New(cache.NoExpiration, 0), seq: seq}
}

func (t *table[T]) put(id string, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq := t.seq.Add(1)
	if existing, ok := t.items.Get(id); ok {
		seq = existing.(row[T]).seq
	}
	t.items.Set(id, row[T]{seq: seq, value: v}, cache.NoExpiration)
}

func (t *table[T]) get(id string) (T, bool) {
	item, ok := t.items.Get(id)
	if !ok {
		var zero T
		return zero, false
	}
	return item.(row[T]).value, true
}

// update applies fn to the stored row under the table lock and keeps the result
// when fn returns true.
func (t *table[T]) update(id string, fn func(*T) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items.Get(id)
	if !ok {
		return false
	}
	current := item.(row[T])
	if !fn(&current.value) {
		return false
	}
	t.items.Set(id, current, cache.NoExpiration)
	return true
}

func (t *table[T]) delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items.Get(id); !ok {
		return false
	}
	t.items.Delete(id)
	return true
}

func (t *table[T]) all() []T {
	items := t.items.Items()
	rows := make([]row[T], 0, len(items))
	for _, item := range items {
		rows = append(rows, item.Object.(row[T]))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.value
	}
	return out
}

// Store is the shared state behind every repository of a factory.
type Store struct {
	seq           atomic.Int64
	users         *table[entity.User]
	documents     *table[entity.Document]
	conversations *table[entity.Conversation]
	messages      *table[entity.Message]
	usage         *table[entity.UserUsage]
}

func NewStore() *Store {
	s := &Store{}
	s.users = newTable[entity.User](&s.seq)
	s.documents = newTable[entity.Document](&s.seq)
	s.conversations = newTable[entity.Conversation](&s.seq)
	s.messages = newTable[entity.Message](&s.seq)
	s.usage = newTable[entity.UserUsage](&s.seq)
	return s
}

// query applies filter specifications first, then ordering and pagination.
func query[T any](rows []T, specs []specification.Specification, match func(T, specification.Specification) (bool, error), less func(a, b T, field string) bool) ([]T, error) {
	var (
		order *specification.OrderBy
		page  *specification.Pagination
	)

	filtered := rows[:0:0]
	for _, r := range rows {
		keep := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.OrderBy:
				order = &s
				continue
			case specification.Pagination:
				page = &s
				continue
			}
			ok, err := match(r, spec)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, r)
		}
	}

	if order != nil {
		sort.SliceStable(filtered, func(i, j int) bool {
			if order.Desc {
				return less(filtered[j], filtered[i], order.Field)
			}
			return less(filtered[i], filtered[j], order.Field)
		})
	}

	if page != nil {
		start := min(page.Offset, len(filtered))
		end := len(filtered)
		if page.Limit > 0 {
			end = min(start+page.Limit, len(filtered))
		}
		filtered = filtered[start:end]
	}
	return filtered, nil
}

func unsupported(spec specification.Specification) error {
	return fmt.Errorf("%w: %T", ErrUnsupportedSpecification, spec)
}
