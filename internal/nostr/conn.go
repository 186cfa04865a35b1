package nostr

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 20 * time.Second
	maxMessageSize = 4 << 20

	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// dial с pong-handler'ом, дедлайном чтения и запуском пингов
func (r *Relay) dialAndSetup(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)

	r.touchActivity()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		r.touchActivity()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	r.startPing(conn)
	return conn, nil
}

func (r *Relay) getConn() *websocket.Conn {
	r.cmu.RLock()
	defer r.cmu.RUnlock()
	return r.conn
}

func (r *Relay) setConn(c *websocket.Conn) {
	r.cmu.Lock()
	r.conn = c
	r.cmu.Unlock()
}

func (r *Relay) write(data []byte) error {
	conn := r.getConn()
	if conn == nil {
		return ErrNotConnected
	}
	r.wmu.Lock()
	defer r.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// безопасно закрыть текущее соединение
func (r *Relay) closeConn() {
	r.stopPing()

	r.cmu.Lock()
	conn := r.conn
	r.conn = nil
	r.cmu.Unlock()
	if conn == nil {
		return
	}

	r.wmu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	r.wmu.Unlock()
	_ = conn.Close()
}

func (r *Relay) touchActivity() {
	r.lastActivity.Store(time.Now().UnixNano())
}

func (r *Relay) sinceLastActivity() time.Duration {
	n := r.lastActivity.Load()
	if n == 0 {
		return time.Hour
	}
	return time.Since(time.Unix(0, n))
}

func (r *Relay) startPing(c *websocket.Conn) {
	r.stopPing()

	r.pmu.Lock()
	stop := make(chan struct{})
	r.pingStop = stop
	r.pmu.Unlock()

	go func() {
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				// трафик недавно был: пинг не нужен
				if r.sinceLastActivity() < pingPeriod/2 {
					continue
				}
				r.wmu.Lock()
				err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				r.wmu.Unlock()
				if err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

func (r *Relay) stopPing() {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	if r.pingStop != nil {
		close(r.pingStop)
		r.pingStop = nil
	}
}
