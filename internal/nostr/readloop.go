package nostr

import (
	"context"
	"fmt"
	"time"
)

func (r *Relay) readLoop(ctx context.Context, stop <-chan struct{}) {
	stopWatch := make(chan struct{})
	defer func() {
		close(stopWatch)
		r.closeConn()
		r.failPending("relay closed")
		r.markDisconnected()
	}()

	// закрыть по отмене контекста
	go func() {
		select {
		case <-ctx.Done():
			r.closeConn()
		case <-stop:
		case <-stopWatch:
		}
	}()

	backoff := minBackoff

	for {
		if conn := r.getConn(); conn != nil {
			_, data, err := conn.ReadMessage()
			if err == nil {
				r.touchActivity()
				_ = conn.SetReadDeadline(time.Now().Add(pongWait))
				r.dispatch(data)
				continue
			}
			if r.closed.Load() || ctx.Err() != nil {
				return
			}
			r.reportError(fmt.Errorf("%s: read: %w", r.url, err))
		}
		if r.closed.Load() {
			return
		}

		// закрываем и фейлим ожидающие
		r.closeConn()
		r.failPending("connection lost")
		r.markDisconnected()

		// реконнект с backoff
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-time.After(backoff):
			}
			if r.closed.Load() {
				return
			}
			conn, err := r.dialAndSetup(ctx)
			if err != nil {
				r.reportError(fmt.Errorf("%s: reconnect failed (wait %v): %w", r.url, backoff, err))
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			r.setConn(conn)
			if r.closed.Load() {
				return
			}
			r.connected.Store(true)
			r.resubscribe()
			if r.OnConnected != nil {
				r.OnConnected()
			}
			backoff = minBackoff
			break
		}
	}
}

func (r *Relay) markDisconnected() {
	if r.connected.Swap(false) && r.OnDisconnected != nil {
		r.OnDisconnected()
	}
}

// ожидающие OK получают отказ при обрыве соединения
func (r *Relay) failPending(reason string) {
	r.mu.Lock()
	cbs := r.okCbs
	r.okCbs = make(map[string]func(bool, string))
	r.mu.Unlock()

	for _, cb := range cbs {
		cb(false, reason)
	}
}
