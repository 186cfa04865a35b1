// Package dedup реализует небольшой LRU с TTL для уже виденных ключей.
// Один и тот же event приходит со всех реле, на которые подписан бот;
// отвечать нужно один раз.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

type Set struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List               // свежие спереди
	items map[string]*list.Element // key -> element
}

type entry struct {
	key string
	exp time.Time
}

func New(maxKeys int, ttl time.Duration) *Set {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Set{
		cap:   maxKeys,
		ttl:   ttl,
		now:   time.Now,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// Add помечает ключ виденным. Возвращает false, если ключ уже был и не протух.
func (s *Set) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if el, ok := s.items[key]; ok {
		en := el.Value.(entry)
		if now.Before(en.exp) {
			s.ll.MoveToFront(el)
			return false
		}
		s.ll.Remove(el)
		delete(s.items, key)
	}

	s.items[key] = s.ll.PushFront(entry{key: key, exp: now.Add(s.ttl)})

	for s.ll.Len() > s.cap {
		s.removeBack()
	}
	// хвост мог протухнуть
	for t := s.ll.Back(); t != nil && !now.Before(t.Value.(entry).exp); t = s.ll.Back() {
		s.removeBack()
	}
	return true
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

func (s *Set) removeBack() {
	t := s.ll.Back()
	if t == nil {
		return
	}
	s.ll.Remove(t)
	delete(s.items, t.Value.(entry).key)
}
