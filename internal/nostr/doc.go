// Package nostr реализует минимальный клиент протокола Nostr (NIP-01) поверх
// WebSocket: события и их подпись (BIP-340 Schnorr), ключи в формате NIP-19
// (nsec/npub), фильтры подписок, соединение с реле и пул реле.
//
// Relay держит одно соединение: пинги, дедлайны чтения, запись под мьютексом,
// реконнект с экспоненциальной задержкой (1s..30s) и повторная отправка
// активных подписок после переподключения. Входящие события проверяются
// (id и подпись) и сверяются с фильтрами подписки.
//
// События (колбэки-поля Relay):
//   - OnConnecting, OnConnected, OnEvent, OnEOSE, OnNotice, OnClosed,
//     OnDisconnected, OnError.
//
// Пример:
//
//	keys, _ := nostr.ParseSecretKey("nsec1...")
//	pool, _ := nostr.NewPool([]string{"wss://relay.damus.io"}, nil, logger)
//	pool.OnEvent = func(relay string, ev *nostr.Event) { ... }
//	if err := pool.Connect(ctx); err != nil { log.Fatal(err) }
//	defer pool.Close()
//
//	_, _ = pool.Subscribe(nostr.Filter{
//	    Kinds: []int{nostr.KindTextNote},
//	    Tags:  map[string][]string{"p": {keys.PublicKey()}},
//	})
package nostr
