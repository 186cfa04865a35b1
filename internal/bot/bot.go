package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/bitacbot/internal/config"
	"github.com/EgorLis/bitacbot/internal/nostr"
)

// Bot отвечает на упоминания в Nostr. Состояния между запросами не держит:
// каждое событие обрабатывается независимо.
type Bot struct {
	keys     *nostr.Keys
	balances BalanceSource
	commands Commands
	logger   *zap.Logger
	metrics  *Metrics
	pool     *nostr.Pool
	profile  config.Profile

	mu       sync.Mutex
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	subID    string
	stopping bool
}

func New(keys *nostr.Keys, balances BalanceSource, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		keys:     keys,
		balances: balances,
		logger:   logger,
	}
	b.commands.Register(Command{Trigger: HelpTrigger, Description: "what this bot does", Handler: helpHandler})
	b.commands.Register(Command{Description: "balance of the first bitcoin address in the note", Handler: b.balanceHandler})
	return b
}

func (b *Bot) SetPool(p *nostr.Pool)       { b.pool = p }
func (b *Bot) SetMetrics(m *Metrics)       { b.metrics = m }
func (b *Bot) SetProfile(p config.Profile) { b.profile = p }
func (b *Bot) Commands() *Commands         { return &b.commands }
func (b *Bot) PublicKey() string           { return b.keys.PublicKey() }

// HandleEvent разбирает упоминание и возвращает подписанный ответ.
// nil без ошибки: отвечать не нужно.
func (b *Bot) HandleEvent(ctx context.Context, relayURL string, ev *nostr.Event) (*nostr.Event, error) {
	if ev.PubKey == b.keys.PublicKey() || ev.Kind != nostr.KindTextNote {
		return nil, nil
	}
	cmd := b.commands.Lookup(ev.Content)
	if cmd == nil {
		return nil, nil
	}
	label := commandLabel(cmd)
	b.metrics.event(label)
	b.logger.Info("mention",
		zap.String("relay", relayURL),
		zap.String("event", ev.ID),
		zap.String("from", ev.PubKey),
		zap.String("command", label),
	)

	content := b.run(ctx, cmd, ev)
	if content == "" {
		return nil, nil
	}
	reply, err := Reply(b.keys, ev, content)
	if err != nil {
		return nil, fmt.Errorf("reply to %s: %w", ev.ID, err)
	}
	return reply, nil
}

func (b *Bot) run(ctx context.Context, cmd *Command, ev *nostr.Event) (content string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic",
				zap.String("event", ev.ID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			content = BalanceErrorReply
		}
	}()
	return cmd.Handler(ctx, ev)
}

func (b *Bot) Start(ctx context.Context) error {
	if b == nil {
		return errors.New("bot: not initialized")
	}
	if b.pool == nil {
		return errors.New("bot: relay pool not set")
	}

	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return errors.New("bot: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	b.ctx, b.cancel, b.stopping = ctx, cancel, false
	b.mu.Unlock()

	b.pool.OnEvent = b.onEvent
	b.pool.OnConnectionChange = b.metrics.SetRelaysConnected

	if err := b.pool.Connect(ctx); err != nil {
		b.pool.Close()
		b.reset()
		return err
	}
	b.metrics.SetRelaysConnected(b.pool.Connected())

	if err := b.publishProfile(ctx); err != nil {
		b.logger.Warn("publish profile", zap.Error(err))
	}
	if b.profile.Announce && b.profile.IntroMessage != "" {
		if err := b.publishNote(ctx, b.profile.IntroMessage); err != nil {
			b.logger.Warn("publish intro", zap.Error(err))
		}
	}

	id, err := b.pool.Subscribe(nostr.Filter{
		Kinds: []int{nostr.KindTextNote},
		Tags:  map[string][]string{"p": {b.keys.PublicKey()}},
		Since: time.Now().Unix(),
	})
	if err != nil {
		b.pool.Close()
		b.reset()
		return fmt.Errorf("bot: subscribe: %w", err)
	}
	b.mu.Lock()
	b.subID = id
	b.mu.Unlock()

	b.logger.Info("bot started",
		zap.String("npub", b.keys.Npub()),
		zap.Int("relays", b.pool.Connected()),
	)
	return nil
}

// Stop закрывает подписку, дожидается ответов в работе и отключает реле.
// Повторный вызов ничего не делает.
func (b *Bot) Stop() {
	b.mu.Lock()
	if b.cancel == nil || b.stopping {
		b.mu.Unlock()
		return
	}
	b.stopping = true
	subID := b.subID
	b.mu.Unlock()

	if subID != "" {
		b.pool.Unsubscribe(subID)
	}
	b.wg.Wait()
	b.pool.Close()
	b.reset()
	b.logger.Info("bot stopped")
}

func (b *Bot) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.ctx, b.cancel, b.subID = nil, nil, ""
}

// onEvent вызывается из горутины чтения реле, поэтому сразу уходит в свою горутину.
func (b *Bot) onEvent(relayURL string, ev *nostr.Event) {
	b.mu.Lock()
	if b.stopping || b.ctx == nil {
		b.mu.Unlock()
		return
	}
	ctx := b.ctx
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		reply, err := b.HandleEvent(ctx, relayURL, ev)
		if err != nil {
			b.logger.Error("handle event", zap.String("event", ev.ID), zap.Error(err))
			return
		}
		if reply == nil {
			return
		}
		if err := b.pool.Publish(ctx, reply); err != nil {
			b.logger.Warn("publish reply", zap.String("event", ev.ID), zap.Error(err))
			return
		}
		b.logger.Debug("replied", zap.String("event", ev.ID), zap.String("reply", reply.ID))
	}()
}

type metadata struct {
	Name    string `json:"name,omitempty"`
	About   string `json:"about,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func (b *Bot) publishProfile(ctx context.Context) error {
	content, err := json.Marshal(metadata{
		Name:    b.profile.Name,
		About:   b.profile.About,
		Picture: b.profile.Picture,
	})
	if err != nil {
		return err
	}
	ev := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindMetadata,
		Content:   string(content),
	}
	if err := ev.Sign(b.keys); err != nil {
		return err
	}
	return b.pool.Publish(ctx, ev)
}

func (b *Bot) publishNote(ctx context.Context, text string) error {
	ev := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindTextNote,
		Content:   text,
	}
	if err := ev.Sign(b.keys); err != nil {
		return err
	}
	return b.pool.Publish(ctx, ev)
}
