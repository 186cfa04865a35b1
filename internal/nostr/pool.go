package nostr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EgorLis/bitacbot/internal/dedup"
)

// Pool: набор реле. Публикует во все, события от всех сводит в один
// поток без дублей.
type Pool struct {
	relays []*Relay
	seen   *dedup.Set
	logger *zap.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc

	// OnEvent вызывается из горутины чтения реле; долгую работу выносить наружу.
	OnEvent func(relayURL string, ev *Event)
	// OnConnectionChange получает число подключённых реле после каждого изменения.
	OnConnectionChange func(connected int)
}

func NewPool(urls []string, seen *dedup.Set, logger *zap.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoRelays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if seen == nil {
		seen = dedup.New(0, 0)
	}
	p := &Pool{seen: seen, logger: logger}
	for _, u := range urls {
		if err := ValidateRelayURL(u); err != nil {
			return nil, err
		}
		p.relays = append(p.relays, NewRelay(u, logger))
	}
	return p, nil
}

func ValidateRelayURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("nostr: relay url %q: %w", raw, err)
	}
	if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("nostr: relay url %q: want ws:// or wss://", raw)
	}
	return nil
}

func (p *Pool) Relays() []*Relay { return p.relays }

// Connect подключается ко всем реле параллельно. Достаточно одного успешного;
// остальные продолжают попытки в фоне.
func (p *Pool) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	for _, r := range p.relays {
		p.wire(r)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(p.relays))
	for i, r := range p.relays {
		i, r := i, r
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.Connect(ctx)
		}()
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		p.logger.Warn("relay connect failed, retrying in background", zap.Error(err))
		p.wg.Add(1)
		go p.retryConnect(ctx, p.relays[i])
	}
	if failed == len(p.relays) {
		return fmt.Errorf("%w: %w", ErrNotConnected, errors.Join(errs...))
	}
	return nil
}

func (p *Pool) retryConnect(ctx context.Context, r *Relay) {
	defer p.wg.Done()
	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		err := r.Connect(ctx)
		if err == nil {
			return
		}
		p.logger.Debug("relay still unreachable", zap.String("relay", r.URL()), zap.Error(err))
		backoff = min(backoff*2, maxBackoff)
	}
}

func (p *Pool) wire(r *Relay) {
	relayURL := r.URL()
	log := p.logger.With(zap.String("relay", relayURL))

	r.OnConnected = func() {
		log.Info("connected")
		p.connectionChanged()
	}
	r.OnDisconnected = func() {
		log.Info("disconnected")
		p.connectionChanged()
	}
	r.OnError = func(err error) { log.Warn("relay error", zap.Error(err)) }
	r.OnEvent = func(_ string, ev *Event) {
		if !p.seen.Add(ev.ID) {
			return
		}
		if p.OnEvent != nil {
			p.OnEvent(relayURL, ev)
		}
	}
}

func (p *Pool) connectionChanged() {
	if p.OnConnectionChange != nil {
		p.OnConnectionChange(p.Connected())
	}
}

func (p *Pool) Connected() int {
	n := 0
	for _, r := range p.relays {
		if r.IsConnected() {
			n++
		}
	}
	return n
}

// Publish пишет событие во все подключённые реле. Ошибка: только если
// не удалось записать ни в одно.
func (p *Pool) Publish(ctx context.Context, ev *Event) error {
	var errs []error
	sent := 0
	for _, r := range p.relays {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.Publish(ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.URL(), err))
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("%w: %w", ErrNotConnected, errors.Join(errs...))
	}
	return nil
}

// PublishWait ждёт OK от каждого подключённого реле. Возвращает число
// принявших реле; ошибка: если не принял никто.
func (p *Pool) PublishWait(ctx context.Context, ev *Event) (int, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		errs     []error
	)
	for _, r := range p.relays {
		if !r.IsConnected() {
			continue
		}
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.PublishWait(ctx, ev)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			accepted++
		}()
	}
	wg.Wait()
	if accepted == 0 {
		if len(errs) == 0 {
			return 0, ErrNotConnected
		}
		return 0, errors.Join(errs...)
	}
	return accepted, nil
}

// Subscribe открывает одну и ту же подписку на всех реле.
func (p *Pool) Subscribe(filters ...Filter) (string, error) {
	id := uuid.NewString()
	var errs []error
	for _, r := range p.relays {
		if err := r.SubscribeWithID(id, filters...); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.URL(), err))
		}
	}
	if len(errs) == len(p.relays) {
		return "", errors.Join(errs...)
	}
	return id, nil
}

func (p *Pool) Unsubscribe(id string) {
	for _, r := range p.relays {
		if err := r.Unsubscribe(id); err != nil {
			p.logger.Debug("unsubscribe", zap.String("relay", r.URL()), zap.Error(err))
		}
	}
}

func (p *Pool) Close() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	for _, r := range p.relays {
		r.Disconnect()
	}
}
