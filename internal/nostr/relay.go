package nostr

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Relay: websocket-соединение с одним реле.
type Relay struct {
	url    string
	logger *zap.Logger
	dialer *websocket.Dialer

	cmu  sync.RWMutex
	conn *websocket.Conn

	mu    sync.Mutex
	subs  map[string]*subscription             // активные подписки, переотправляются после реконнекта
	okCbs map[string]func(ok bool, msg string) // ожидание OK по id события

	closed    atomic.Bool
	connected atomic.Bool
	stop      chan struct{}
	loopDone  chan struct{}

	wmu          sync.Mutex // сериализует запись в websocket
	pmu          sync.Mutex
	pingStop     chan struct{}
	lastActivity atomic.Int64 // unix nanos последнего принятого сообщения

	// События. Заполняются до Connect.
	OnConnecting   func()
	OnConnected    func()
	OnEvent        func(subID string, ev *Event)
	OnEOSE         func(subID string)
	OnNotice       func(msg string)
	OnClosed       func(subID, msg string)
	OnDisconnected func()
	OnError        func(error)
}

func NewRelay(url string, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		url:    url,
		logger: logger.With(zap.String("relay", url)),
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		},
		subs:  make(map[string]*subscription),
		okCbs: make(map[string]func(bool, string)),
	}
}

func (r *Relay) URL() string { return r.url }

// Connect устанавливает соединение и запускает readLoop.
// Отмена ctx закрывает соединение и останавливает реконнекты.
func (r *Relay) Connect(ctx context.Context) error {
	if r.OnConnecting != nil {
		r.OnConnecting()
	}
	conn, err := r.dialAndSetup(ctx)
	if err != nil {
		return fmt.Errorf("%s: dial: %w", r.url, err)
	}
	r.closed.Store(false)
	r.setConn(conn)
	r.connected.Store(true)
	r.resubscribe()
	if r.OnConnected != nil {
		r.OnConnected()
	}

	stop, done := make(chan struct{}), make(chan struct{})
	r.mu.Lock()
	r.stop, r.loopDone = stop, done
	r.mu.Unlock()
	go func() {
		defer close(done)
		r.readLoop(ctx, stop)
	}()
	return nil
}

// Disconnect закрывает соединение и ждёт завершения readLoop.
func (r *Relay) Disconnect() {
	r.closed.Store(true)
	r.closeConn()

	r.mu.Lock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	done := r.loopDone
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *Relay) IsConnected() bool {
	return r.connected.Load() && !r.closed.Load()
}

// Publish отправляет событие, не дожидаясь OK.
func (r *Relay) Publish(ev *Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return r.write(data)
}

// PublishWait отправляет событие и ждёт ответа OK от реле.
func (r *Relay) PublishWait(ctx context.Context, ev *Event) error {
	type result struct {
		ok  bool
		msg string
	}
	resCh := make(chan result, 1)

	r.mu.Lock()
	r.okCbs[ev.ID] = func(ok bool, msg string) { resCh <- result{ok, msg} }
	r.mu.Unlock()
	drop := func() {
		r.mu.Lock()
		delete(r.okCbs, ev.ID)
		r.mu.Unlock()
	}

	if err := r.Publish(ev); err != nil {
		drop()
		return err
	}

	select {
	case res := <-resCh:
		if !res.ok {
			return fmt.Errorf("%w: %s: %s", ErrRejected, r.url, res.msg)
		}
		return nil
	case <-ctx.Done():
		drop()
		return fmt.Errorf("%s: waiting for OK: %w", r.url, ctx.Err())
	}
}

// Subscribe регистрирует подписку под новым id. Если соединения сейчас нет,
// REQ уйдёт при следующем подключении.
func (r *Relay) Subscribe(filters ...Filter) (string, error) {
	id := uuid.NewString()
	return id, r.SubscribeWithID(id, filters...)
}

func (r *Relay) SubscribeWithID(id string, filters ...Filter) error {
	r.mu.Lock()
	r.subs[id] = newSubscription(filters)
	r.mu.Unlock()

	if !r.IsConnected() {
		return nil
	}
	return r.sendReq(id, filters)
}

func (r *Relay) Unsubscribe(id string) error {
	r.mu.Lock()
	_, ok := r.subs[id]
	delete(r.subs, id)
	r.mu.Unlock()

	if !ok || !r.IsConnected() {
		return nil
	}
	data, err := encodeClose(id)
	if err != nil {
		return err
	}
	return r.write(data)
}

func (r *Relay) sendReq(id string, filters []Filter) error {
	data, err := encodeReq(id, filters)
	if err != nil {
		return err
	}
	return r.write(data)
}

func (r *Relay) resubscribe() {
	r.mu.Lock()
	subs := make(map[string][]Filter, len(r.subs))
	for id, sub := range r.subs {
		subs[id] = sub.advance()
	}
	r.mu.Unlock()

	for id, filters := range subs {
		if err := r.sendReq(id, filters); err != nil {
			r.reportError(fmt.Errorf("%s: resubscribe %s: %w", r.url, id, err))
		}
	}
}

func (r *Relay) subscription(id string) ([]Filter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, false
	}
	return sub.filters, true
}

// deliver: false, если подписки уже нет или событие по ней уже отдавали.
func (r *Relay) deliver(subID string, ev *Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[subID]
	return ok && sub.deliver(ev)
}

// dispatch разбирает одно сообщение от реле.
func (r *Relay) dispatch(data []byte) {
	env, err := parseEnvelope(data)
	if err != nil {
		r.reportError(fmt.Errorf("%s: %w", r.url, err))
		return
	}

	switch env.Label {
	case labelEvent:
		filters, ok := r.subscription(env.SubID)
		if !ok {
			return // подписка уже закрыта
		}
		if err := env.Event.Verify(); err != nil {
			r.reportError(fmt.Errorf("%s: event %s: %w", r.url, env.Event.ID, err))
			return
		}
		if !matchesAny(filters, env.Event) || !r.deliver(env.SubID, env.Event) {
			return
		}
		if r.OnEvent != nil {
			r.OnEvent(env.SubID, env.Event)
		}

	case labelOK:
		r.mu.Lock()
		cb, ok := r.okCbs[env.EventID]
		delete(r.okCbs, env.EventID)
		r.mu.Unlock()
		if ok {
			cb(env.OK, env.Message)
		} else if !env.OK {
			r.logger.Warn("event rejected", zap.String("event", env.EventID), zap.String("reason", env.Message))
		}

	case labelEOSE:
		if r.OnEOSE != nil {
			r.OnEOSE(env.SubID)
		}

	case labelNotice:
		r.logger.Info("notice", zap.String("message", env.Message))
		if r.OnNotice != nil {
			r.OnNotice(env.Message)
		}

	case labelClosed:
		r.mu.Lock()
		delete(r.subs, env.SubID)
		r.mu.Unlock()
		r.logger.Warn("subscription closed by relay", zap.String("sub", env.SubID), zap.String("reason", env.Message))
		if r.OnClosed != nil {
			r.OnClosed(env.SubID, env.Message)
		}
	}
}

func (r *Relay) reportError(err error) {
	if r.OnError != nil {
		r.OnError(err)
		return
	}
	r.logger.Warn("relay error", zap.Error(err))
}
