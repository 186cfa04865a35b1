package nostr

import "time"

// resubscribeSlack: насколько since после реконнекта отступает от самого
// свежего полученного события. Покрывает события, пришедшие не по порядку.
const resubscribeSlack = time.Minute

// subscription хранит фильтры и водяной знак: самый поздний created_at
// из доставленных событий и id событий в окне resubscribeSlack под ним.
type subscription struct {
	filters []Filter
	last    int64
	recent  map[string]int64
}

func newSubscription(filters []Filter) *subscription {
	return &subscription{filters: filters, recent: make(map[string]int64)}
}

// deliver отмечает событие доставленным. false: событие уже отдавали
// (реле прислало его повторно после REQ).
func (s *subscription) deliver(ev *Event) bool {
	if _, seen := s.recent[ev.ID]; seen {
		return false
	}
	slack := int64(resubscribeSlack / time.Second)
	if ev.CreatedAt > s.last {
		s.last = ev.CreatedAt
		for id, at := range s.recent {
			if at < s.last-slack {
				delete(s.recent, id)
			}
		}
	}
	if ev.CreatedAt >= s.last-slack {
		s.recent[ev.ID] = ev.CreatedAt
	}
	return true
}

// advance сдвигает since всех фильтров к водяному знаку (минус запас) и
// возвращает фильтры для повторного REQ. Старые события реле больше не
// пришлёт, а если пришлёт, их отбросит Matches.
func (s *subscription) advance() []Filter {
	if s.last == 0 {
		return s.filters
	}
	since := s.last - int64(resubscribeSlack/time.Second)
	out := make([]Filter, len(s.filters))
	for i, f := range s.filters {
		if f.Since < since {
			f.Since = since
		}
		out[i] = f
	}
	s.filters = out
	return out
}
