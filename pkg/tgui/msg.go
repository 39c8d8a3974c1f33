package tgui

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"reminderbot/internal/transport"
)

// Message is rendered text plus its send options.
type Message struct {
	Text string
	Opt  *transport.SendOptions
}

func (m Message) Send(ctx context.Context, ad transport.Adapter, to transport.ChatTarget) (transport.MessageRef, error) {
	return ad.SendText(ctx, to, m.Text, m.options())
}

func (m Message) Edit(ctx context.Context, ad transport.Adapter, ref transport.MessageRef) error {
	return ad.EditText(ctx, ref, m.Text, m.options())
}

func (m Message) options() *transport.SendOptions {
	if m.Opt == nil {
		return &transport.SendOptions{}
	}
	return m.Opt
}

// Builder assembles an HTML message line by line. Defaults: HTML parse mode,
// link previews disabled.
type Builder struct {
	lines   []string
	rm      *tele.ReplyMarkup
	replyTo int
}

func New() *Builder { return &Builder{} }

// Title adds a bold heading, optionally led by an emoji.
func (b *Builder) Title(emoji, title string) *Builder {
	t := strings.TrimSpace(title)
	if t == "" {
		return b
	}
	line := string(B(t))
	if e := strings.TrimSpace(emoji); e != "" {
		line = string(Esc(e)) + " " + line
	}
	b.lines = append(b.lines, line)
	return b
}

// Line adds escaped text.
func (b *Builder) Line(s string) *Builder {
	b.lines = append(b.lines, string(Esc(s)))
	return b
}

// HTML adds pre-escaped content.
func (b *Builder) HTML(h H) *Builder {
	b.lines = append(b.lines, string(h))
	return b
}

func (b *Builder) Blank() *Builder {
	b.lines = append(b.lines, "")
	return b
}

// KV adds a "Key: value" line with a bold key.
func (b *Builder) KV(key, value string) *Builder {
	return b.KVH(key, Esc(value))
}

// KVH is KV with a pre-escaped value.
func (b *Builder) KVH(key string, value H) *Builder {
	key = strings.TrimSpace(key)
	if key == "" {
		return b
	}
	b.lines = append(b.lines, string(B(key))+": "+string(value))
	return b
}

func (b *Builder) Inline(kb *Inline) *Builder {
	if kb == nil || kb.Rows() == 0 {
		b.rm = nil
		return b
	}
	b.rm = kb.Markup()
	return b
}

// ReplyTo threads the message under another message id.
func (b *Builder) ReplyTo(messageID int) *Builder {
	b.replyTo = messageID
	return b
}

func (b *Builder) Build() Message {
	opt := &transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyTo: b.replyTo}
	if b.rm != nil {
		opt.ReplyMarkupAdapter = b.rm
	}
	return Message{Text: strings.Trim(strings.Join(b.lines, "\n"), "\n"), Opt: opt}
}
