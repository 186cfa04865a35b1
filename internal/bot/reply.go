package bot

import (
	"time"

	"github.com/EgorLis/bitacbot/internal/nostr"
)

// Reply собирает подписанную заметку-ответ на ev.
func Reply(keys *nostr.Keys, ev *nostr.Event, content string) (*nostr.Event, error) {
	reply := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindTextNote,
		Tags: nostr.Tags{
			{"e", ev.ID, "", "reply"},
			{"p", ev.PubKey},
		},
		Content: content,
	}
	if err := reply.Sign(keys); err != nil {
		return nil, err
	}
	return reply, nil
}
