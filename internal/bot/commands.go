package bot

import (
	"context"
	"regexp"
	"strings"

	"github.com/EgorLis/bitacbot/internal/nostr"
)

const (
	HelpTrigger = "!help"
	HelpText    = "Send me a bitcoin address and I'll tell you how much bitcoin it has."
)

// Handler возвращает текст ответа; пустая строка: не отвечать.
type Handler func(ctx context.Context, ev *nostr.Event) string

// Command связывает триггер с обработчиком. Пустой Trigger означает команду по умолчанию.
type Command struct {
	Trigger     string
	Description string
	Handler     Handler
}

// Commands хранит команды в порядке регистрации.
type Commands struct {
	list []Command
	def  *Command
}

func (c *Commands) Register(cmd Command) {
	if cmd.Trigger == "" {
		c.def = &cmd
		return
	}
	cmd.Trigger = strings.ToLower(cmd.Trigger)
	for i := range c.list {
		if c.list[i].Trigger == cmd.Trigger {
			c.list[i] = cmd
			return
		}
	}
	c.list = append(c.list, cmd)
}

func (c *Commands) List() []Command {
	out := make([]Command, len(c.list))
	copy(out, c.list)
	return out
}

// Lookup находит команду по первому слову сообщения. Без совпадения
// возвращается команда по умолчанию (или nil, если её нет).
func (c *Commands) Lookup(content string) *Command {
	word := strings.ToLower(firstWord(content))
	if word != "" {
		for i := range c.list {
			if c.list[i].Trigger == word {
				return &c.list[i]
			}
		}
	}
	return c.def
}

// упоминания в начале заметки: nostr:npub…, nostr:nprofile…, @name, #[0]
var reMention = regexp.MustCompile(`^(?:nostr:(?:npub|nprofile)1[02-9ac-hj-np-z]+|@\S+|#\[\d+\])$`)

func firstWord(content string) string {
	for _, f := range strings.Fields(content) {
		if reMention.MatchString(f) {
			continue
		}
		return f
	}
	return ""
}

// commandLabel: значение метки command в метриках.
func commandLabel(cmd *Command) string {
	if cmd.Trigger == "" {
		return "default"
	}
	return strings.TrimPrefix(cmd.Trigger, "!")
}

func helpHandler(context.Context, *nostr.Event) string { return HelpText }
