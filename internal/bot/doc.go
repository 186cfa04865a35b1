// Package bot склеивает nostr.Pool и explorer.Client: бот отвечает
// на упоминания в Nostr балансом биткоин-адреса. Бот:
//   - подписывается на заметки (kind 1) с тегом p = свой pubkey;
//   - выбирает команду по первому слову после упоминаний (!help или
//     команда по умолчанию: поиск баланса);
//   - берёт первый адрес из текста, спрашивает баланс у Esplora-эксплорера
//     и отвечает "₿ 1.23456789" или "丰 123 456";
//   - публикует профиль (kind 0) и, по желанию, приветственную заметку;
//   - считает метрики Prometheus (см. Metrics).
//
// Жизненный цикл:
//   - Создать бота через New(keys, explorerClient, logger).
//   - Передать пул: SetPool(...), (опционально) SetMetrics(...), SetProfile(...).
//   - Запустить Start(ctx) и остановить Stop().
//
// Пример:
//
//	client, _ := explorer.NewClient(explorer.Config{})
//	b := bot.New(keys, client, logger)
//	b.SetPool(pool)
//	b.SetProfile(cfg.Profile)
//
//	if err := b.Start(ctx); err != nil { log.Fatal(err) }
//	defer b.Stop()
//	<-ctx.Done()
//
// Ошибки эксплорера наружу не уходят: пользователь получает
// "Error getting balance.", подробности пишутся в лог.
package bot
