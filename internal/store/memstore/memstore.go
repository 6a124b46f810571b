// Package memstore содержит встроенную реализацию хранилища реального
// времени: коллекции записей, выборки с фильтрами равенства и атомарные
// транзакции с доставкой снимков живым подпискам.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"instant-chat/internal/ports"
)

// Store — хранилище коллекций в памяти. Транзакция применяется целиком
// под одной блокировкой, поэтому ни один читатель не может наблюдать
// частично примененную запись.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]ports.Record
	subs        map[*subscription]struct{}
}

// New создает новый экземпляр Store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]ports.Record),
		subs:        make(map[*subscription]struct{}),
	}
}

// QueryOnce выполняет одноразовую выборку.
func (s *Store) QueryOnce(_ context.Context, q ports.Query) ([]ports.Record, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("query collection must not be empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluate(q), nil
}

// Transact применяет список upsert-ов атомарно. Валидация выполняется
// до первого изменения, само применение не может завершиться ошибкой,
// поэтому результат — либо все операции, либо ни одной.
func (s *Store) Transact(_ context.Context, ops []ports.Upsert) error {
	if len(ops) == 0 {
		return nil
	}
	normalized := make([]map[string]interface{}, len(ops))
	for i, op := range ops {
		if op.Collection == "" || op.ID == "" {
			return fmt.Errorf("upsert %d: collection and id must not be empty", i)
		}
		fields, err := normalizeFields(op.Fields)
		if err != nil {
			return fmt.Errorf("upsert %d: %w", i, err)
		}
		normalized[i] = fields
	}

	s.mu.Lock()
	for i, op := range ops {
		col := s.collections[op.Collection]
		if col == nil {
			col = make(map[string]ports.Record)
			s.collections[op.Collection] = col
		}
		rec := col[op.ID]
		if rec == nil {
			rec = make(ports.Record)
			col[op.ID] = rec
		}
		for k, v := range normalized[i] {
			rec[k] = v
		}
	}
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.markDirty()
	}
	return nil
}

// Subscribe открывает живую подписку. Первый снимок доставляется сразу.
func (s *Store) Subscribe(ctx context.Context, q ports.Query) (ports.Subscription, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("query collection must not be empty")
	}
	sub := &subscription{
		store: s,
		query: q,
		out:   make(chan []ports.Record, 1),
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	sub.markDirty()
	go sub.run(ctx)
	return sub, nil
}

// evaluate вычисляет снимок выборки. Вызывается под блокировкой.
// Записи перебираются в порядке идентификаторов, чтобы снимок был
// детерминированным независимо от порядка применения записей.
func (s *Store) evaluate(q ports.Query) []ports.Record {
	col := s.collections[q.Collection]
	if len(col) == 0 {
		return nil
	}
	ids := make([]string, 0, len(col))
	for id := range col {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []ports.Record
	for _, id := range ids {
		rec := col[id]
		if !matches(rec, q.Where) {
			continue
		}
		out = append(out, cloneRecord(rec))
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

func (s *Store) snapshotFor(q ports.Query) []ports.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluate(q)
}

func (s *Store) detach(sub *subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// matches проверяет запись против фильтров равенства.
func matches(rec ports.Record, where map[string]interface{}) bool {
	for k, want := range where {
		got, ok := rec[k]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

// equalValue сравнивает значения с учетом того, что после нормализации
// через JSON все числа становятся float64.
func equalValue(a, b interface{}) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// normalizeFields приводит поля upsert-а к обобщенному JSON-представлению,
// чтобы записи не разделяли изменяемое состояние с вызывающей стороной.
func normalizeFields(fields map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize fields: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize fields: %w", err)
	}
	return out, nil
}

func cloneRecord(rec ports.Record) ports.Record {
	out := make(ports.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// subscription доставляет снимки одной выборки. Сигнал dirty коалесцирует
// изменения: подписчик может пропустить промежуточные состояния,
// но всегда сходится к последнему снимку.
type subscription struct {
	store     *Store
	query     ports.Query
	out       chan []ports.Record
	dirty     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Snapshots возвращает канал доставки снимков.
func (sub *subscription) Snapshots() <-chan []ports.Record {
	return sub.out
}

// Close останавливает доставку и закрывает канал снимков.
func (sub *subscription) Close() {
	sub.closeOnce.Do(func() {
		close(sub.done)
	})
}

func (sub *subscription) markDirty() {
	select {
	case sub.dirty <- struct{}{}:
	default:
	}
}

func (sub *subscription) run(ctx context.Context) {
	defer func() {
		sub.store.detach(sub)
		close(sub.out)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.dirty:
			snap := sub.store.snapshotFor(sub.query)
			select {
			case sub.out <- snap:
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			}
		}
	}
}
