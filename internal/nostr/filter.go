package nostr

import (
	"encoding/json"
	"slices"
)

// Filter: условие подписки (REQ). Пустые поля не ограничивают выборку.
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []int
	// Tags: имя тега без '#', например "p" -> [pubkey]
	Tags  map[string][]string
	Since int64
	Until int64
	Limit int
}

func (f Filter) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if len(f.IDs) > 0 {
		m["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	for name, values := range f.Tags {
		m["#"+name] = values
	}
	if f.Since > 0 {
		m["since"] = f.Since
	}
	if f.Until > 0 {
		m["until"] = f.Until
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}
	return json.Marshal(m)
}

// Matches: проверка на стороне клиента; реле не всегда фильтруют честно.
func (f Filter) Matches(ev *Event) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !slices.Contains(f.Authors, ev.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, ev.Kind) {
		return false
	}
	for name, want := range f.Tags {
		if !slices.ContainsFunc(ev.Tags.Values(name), func(v string) bool { return slices.Contains(want, v) }) {
			return false
		}
	}
	if f.Since > 0 && ev.CreatedAt < f.Since {
		return false
	}
	if f.Until > 0 && ev.CreatedAt > f.Until {
		return false
	}
	return true
}

func matchesAny(filters []Filter, ev *Event) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}
