// Package dedup предоставляет хранилище идентификаторов уже обработанных
// заказов для защиты от повторной доставки вебхуков.
package dedup

import (
	"context"
	"sync"
	"time"
)

// Store описывает контракт защиты от дублей. Add атомарно регистрирует
// идентификатор заказа: true означает, что заказ виден впервые, false —
// что он уже был обработан. Проверка и пометка выполняются одной
// операцией, поэтому при конкурентной доставке дубликата ровно один
// вызов получает true.
type Store interface {
	Add(ctx context.Context, orderID int64) (bool, error)
}

// MemoryStore хранит идентификаторы заказов в памяти процесса.
// Записи живут ограниченное время, что не даёт множеству расти
// бесконечно на долгоживущем процессе.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]time.Time
	now     func() time.Time
}

// NewMemoryStore создаёт хранилище в памяти с указанным временем жизни
// записей. Неположительный ttl означает хранение без ограничения срока.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[int64]time.Time),
		now:     time.Now,
	}
}

// Add регистрирует идентификатор заказа. Просроченные записи
// вычищаются попутно, отдельный фоновый процесс не требуется.
func (s *MemoryStore) Add(_ context.Context, orderID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)

	if _, ok := s.entries[orderID]; ok {
		return false, nil
	}

	s.entries[orderID] = now
	return true, nil
}

func (s *MemoryStore) evictExpired(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, added := range s.entries {
		if now.Sub(added) > s.ttl {
			delete(s.entries, id)
		}
	}
}

// Len возвращает текущее количество записей в хранилище.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
