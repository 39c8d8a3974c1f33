package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"reminderbot/internal/metrics"
	"reminderbot/internal/transport"
	logx "reminderbot/pkg/logx"
	"reminderbot/pkg/tgui"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

// UserError is an error whose message is meant for the person who sent the
// command. It is replied to, not logged as a failure.
type UserError interface {
	error
	UserMessage() string
}

type titledError interface {
	UserTitle() string
}

// Fail returns a UserError with a title and a message.
func Fail(title, message string) error {
	return &failure{title: title, message: message}
}

type failure struct {
	title   string
	message string
}

func (f *failure) Error() string       { return f.title + ": " + f.message }
func (f *failure) UserMessage() string { return f.message }
func (f *failure) UserTitle() string   { return f.title }

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && !req.Logger.IsZero() {
						logger = req.Logger
					}
					logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.Stack(string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			logger := log
			if !req.Logger.IsZero() {
				logger = req.Logger
			}
			err := next(ctx, req)
			d := time.Since(start)

			fields := []logx.Field{
				logx.String("kind", string(req.Update.Kind)),
				logx.Int64("chat_id", req.Chat.ChatID),
				logx.Int("thread_id", req.Chat.ThreadID),
				logx.Int64("from_id", req.FromID),
				logx.String("cmd", req.Command),
				logx.Duration("dur", d),
			}
			if err != nil {
				logger.Warn("request failed", append(fields, logx.Err(err))...)
			} else if d >= 750*time.Millisecond {
				logger.Info("request ok", fields...)
			} else {
				logger.Debug("request ok", fields...)
			}
			return err
		}
	}
}

// MWReplyErrors answers failed commands. UserErrors are shown verbatim and
// swallowed; other errors get a generic reply and keep propagating.
func MWReplyErrors() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			err := next(ctx, req)
			if err == nil {
				return nil
			}
			var ue UserError
			if errors.As(err, &ue) {
				title := "Error!"
				if t, ok := ue.(titledError); ok && t.UserTitle() != "" {
					title = t.UserTitle()
				}
				msg := tgui.New().Title("❌", title).Line(ue.UserMessage()).Build()
				req.reply(context.WithoutCancel(ctx), msg)
				return nil
			}
			msg := tgui.New().Title("⚠️", "Something went wrong!").
				Line("The command failed, please try again later.").Build()
			req.reply(context.WithoutCancel(ctx), msg)
			return err
		}
	}
}

// MWMetrics counts commands by outcome and observes handler latency.
func MWMetrics() Middleware {
	m := metrics.Default()
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			result := "ok"
			var ue UserError
			switch {
			case errors.As(err, &ue):
				result = "user_error"
			case err != nil:
				result = "error"
			}
			m.Commands.WithLabelValues(req.Command, result).Inc()
			m.CommandDuration.WithLabelValues(req.Command).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Reply sends msg as an answer to the request, threaded under the command
// message when there is one.
func (r *Request) Reply(ctx context.Context, msg tgui.Message) (transport.MessageRef, error) {
	if r.Message != nil && msg.Opt != nil {
		msg.Opt.ReplyTo = r.Message.ID
	}
	return msg.Send(ctx, r.Adapter, r.Chat)
}

func (r *Request) reply(ctx context.Context, msg tgui.Message) {
	if _, err := r.Reply(ctx, msg); err != nil {
		r.Logger.Debug("reply failed", logx.Err(err))
	}
}
