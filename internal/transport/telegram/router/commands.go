package router

import (
	"context"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"reminderbot/internal/transport"
	logx "reminderbot/pkg/logx"
	"reminderbot/pkg/tgui"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	// Route is a space-separated command path, e.g. "remind".
	Route       string
	Aliases     []string
	Description string
	Usage       string // without prefix, e.g. "remind <duration...> [#here|#topic] <text>"
	Access      Access
	// GroupOnly commands are refused in private chats.
	GroupOnly bool

	Timeout time.Duration // optional per-command override
	Handle  HandlerFunc
}

type CallbackHandlerFunc func(ctx context.Context, req *Request, payload string) error

// CallbackAccess controls who can trigger an inline-button callback.
// Default is owner-only; public UI sets CallbackAccessEveryone and checks
// the requester itself.
type CallbackAccess int

const (
	CallbackAccessOwnerOnly CallbackAccess = iota
	CallbackAccessEveryone
)

type CallbackRoute struct {
	Namespace   string
	Action      string
	Description string
	Access      CallbackAccess
	Timeout     time.Duration
	Handle      CallbackHandlerFunc
}

type Request struct {
	Update   transport.Update
	Message  *transport.Message // nil for callbacks
	Callback *transport.Callback
	Chat     transport.ChatTarget
	FromID   int64
	Command  string   // route or "cb:<ns>:<action>"
	Prefix   string   // prefix the command was invoked with
	Args     []string // tokenized ArgText
	ArgText  string   // raw text after the command word
	Payload  string   // callback payload
	ReqID    string

	Adapter      transport.Adapter
	Logger       logx.Logger
	OwnerUserIDs []int64
}

// IsPrivate reports whether the request came from a private chat.
func (r *Request) IsPrivate() bool {
	if r.Message != nil {
		return r.Message.ChatKind == transport.ChatPrivate
	}
	return r.Chat.ChatID > 0
}

// IsOwner reports whether the requester is a bot owner.
func (r *Request) IsOwner() bool { return isOwner(r.FromID, r.OwnerUserIDs) }

// PrefixSource resolves the custom prefix of a chat.
type PrefixSource interface {
	For(chatID int64) string
}

// Identity is the bot account, used to recognize mentions.
type Identity interface {
	Self() transport.User
}

type Options struct {
	Log      logx.Logger
	Adapter  transport.Adapter
	Identity Identity
	Prefixes PrefixSource
	Owners   []int64
	Workers  int
	// QueueSize bounds pending commands; 0 means 256.
	QueueSize int
	// Timeout applies to commands without their own.
	Timeout time.Duration
	// Supervisors receives the dispatcher's supervisor while it runs.
	Supervisors *SupervisorRegistry
	// AppSupervisor runs background calls such as the menu update.
	AppSupervisor *Supervisor
}

type CommandManager struct {
	mu sync.RWMutex

	root  *cmdNode
	alias map[string]*cmdNode // alias -> leaf node

	cbMu      sync.RWMutex
	callbacks map[string]map[string]CallbackRoute // namespace -> action -> route

	owners []int64

	log      logx.Logger
	adapter  transport.Adapter
	identity Identity
	prefixes PrefixSource
	workers  int
	timeout  time.Duration
	sups     *SupervisorRegistry
	appSup   *Supervisor

	runMu   sync.Mutex
	running bool
	sup     *Supervisor

	jobs chan func()
}

func NewCommandManager(opt Options) *CommandManager {
	log := opt.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = 256
	}
	return &CommandManager{
		root:      newRoot(),
		alias:     map[string]*cmdNode{},
		callbacks: map[string]map[string]CallbackRoute{},
		owners:    append([]int64(nil), opt.Owners...),
		log:       log.With(logx.String("comp", "telegram.router")),
		adapter:   opt.Adapter,
		identity:  opt.Identity,
		prefixes:  opt.Prefixes,
		workers:   opt.Workers,
		timeout:   opt.Timeout,
		sups:      opt.Supervisors,
		appSup:    opt.AppSupervisor,
		jobs:      make(chan func(), opt.QueueSize),
	}
}

// Supervisor returns the dispatcher's supervisor, nil when not running.
func (m *CommandManager) Supervisor() *Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return nil
	}
	return m.sup
}

func (m *CommandManager) setSupervisor(sup *Supervisor, running bool) {
	m.runMu.Lock()
	m.sup = sup
	m.running = running
	m.runMu.Unlock()
}

// tryEnqueue is a panic-safe enqueue (the jobs channel may be closed).
func (m *CommandManager) tryEnqueue(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// SetOwners updates the owner list used for AccessOwnerOnly checks. Safe
// during hot reload.
func (m *CommandManager) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

// SetAppSupervisor sets the supervisor used for background calls such as
// the menu update.
func (m *CommandManager) SetAppSupervisor(sup *Supervisor) {
	m.mu.Lock()
	m.appSup = sup
	m.mu.Unlock()
}

func (m *CommandManager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

func (m *CommandManager) ownersSnapshot() []int64 {
	m.mu.RLock()
	cp := append([]int64(nil), m.owners...)
	m.mu.RUnlock()
	return cp
}

// SetRegistry installs the command and callback tables. A help command is
// always added.
func (m *CommandManager) SetRegistry(cmds []Command, cbs []CallbackRoute) {
	helper := Command{
		Route:       "help",
		Aliases:     []string{"h"},
		Description: "Show the command list or help for one command",
		Usage:       "help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			text := m.helpText(req.Args, m.prefixFor(req.Chat.ChatID))
			_, err := req.Reply(ctx, tgui.Message{Text: text, Opt: &transport.SendOptions{DisablePreview: true, ParseMode: "HTML"}})
			return err
		},
	}
	cmds = append(cmds, helper)

	root := newRoot()
	alias := map[string]*cmdNode{}

	for _, c := range cmds {
		route := splitRoute(c.Route)
		if len(route) == 0 || c.Handle == nil {
			continue
		}
		root.add(route, c)

		leaf := root.find(route)
		// Multi-word routes get their menu name ("a_b") as an alias so the
		// client's "/" menu can reach them.
		if len(route) > 1 {
			if menu := sanitizeTelegramCommand(strings.Join(route, "_")); menu != "" {
				if _, exists := alias[menu]; !exists {
					alias[menu] = leaf
				}
			}
		}
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			alias[a] = leaf
			if sa := sanitizeTelegramCommand(a); sa != "" {
				if _, exists := alias[sa]; !exists {
					alias[sa] = leaf
				}
			}
		}
	}

	cb := map[string]map[string]CallbackRoute{}
	for _, r := range cbs {
		ns := strings.TrimSpace(r.Namespace)
		a := strings.TrimSpace(r.Action)
		if ns == "" || a == "" || r.Handle == nil {
			continue
		}
		if cb[ns] == nil {
			cb[ns] = map[string]CallbackRoute{}
		}
		cb[ns][a] = r
	}

	m.mu.Lock()
	m.root = root
	m.alias = alias
	appSup := m.appSup
	m.mu.Unlock()

	m.cbMu.Lock()
	m.callbacks = cb
	m.cbMu.Unlock()

	if up, ok := m.adapter.(transport.CommandMenuUpdater); ok {
		menu := buildMenu(root)
		run := func(parent context.Context) error {
			ctx, cancel := context.WithTimeout(parent, 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(ctx, menu); err != nil {
				m.log.Warn("menu update failed", logx.Err(err))
			}
			return nil
		}
		if appSup != nil {
			appSup.Go("telegram.menu.update", run)
		} else {
			go func() { _ = run(context.Background()) }()
		}
	}
}

func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	workers := m.workers

	sup := NewSupervisor(ctx,
		WithLogger(m.log),
		WithCancelOnError(false),
	)
	m.setSupervisor(sup, true)
	m.sups.Set("telegram.router", sup)

	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	var closeOnce sync.Once
	closeJobs := func() {
		closeOnce.Do(func() {
			m.setSupervisor(sup, false)
			close(m.jobs)
		})
	}

	for i := 0; i < workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			WithPublishFirstError(true),
			WithStopOnCleanExit(true),
		)
	}

	defer func() {
		closeJobs()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.sups.Delete("telegram.router")
		m.setSupervisor(nil, false)
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.routeUpdate(ctx, up)
		}
	}
}

func (m *CommandManager) routeUpdate(root context.Context, up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		m.routeMessage(root, up)
	case transport.UpdateCallback:
		m.routeCallback(root, up)
	}
}

func (m *CommandManager) botUsername() string {
	if m.identity == nil {
		return ""
	}
	return m.identity.Self().Username
}

func (m *CommandManager) prefixFor(chatID int64) string {
	if m.prefixes == nil {
		return ""
	}
	return m.prefixes.For(chatID)
}

// prefixesFor lists every accepted prefix in a chat: "/", the chat's custom
// prefix and the bot mention.
func (m *CommandManager) prefixesFor(chatID int64) []string {
	out := []string{"/"}
	if p := m.prefixFor(chatID); p != "" {
		out = append(out, p)
	}
	if u := m.botUsername(); u != "" {
		out = append(out, "@"+u)
	}
	return out
}

func (m *CommandManager) routeMessage(root context.Context, up transport.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	target := transport.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	if isMentionOnly(msg.Text, m.botUsername()) {
		m.replyPinged(root, msg, target)
		return
	}

	inv, ok := matchCommand(msg.Text, m.prefixesFor(msg.ChatID), m.botUsername())
	if !ok {
		return
	}
	args := tokenizeCommandLine(inv.rest)

	m.mu.RLock()
	rootNode := m.root
	aliasMap := m.alias
	m.mu.RUnlock()

	if leaf, ok := aliasMap[inv.word]; ok && leaf != nil && leaf.cmd != nil {
		m.enqueueCommand(root, up, *leaf.cmd, inv, args)
		return
	}

	cur, ok := rootNode.child(inv.word)
	if !ok {
		// Custom prefixes like "$" collide with ordinary chat, so unknown
		// commands only get an answer in private chats.
		if msg.ChatKind == transport.ChatPrivate {
			m.sendText(root, target, msg.ID, "Unknown command. Try /help")
		}
		return
	}
	rest := inv.rest
	for len(args) > 0 {
		child, ok := cur.child(strings.ToLower(args[0]))
		if !ok {
			break
		}
		cur = child
		rest = strings.TrimLeft(strings.TrimPrefix(rest, args[0]), " \t\n\r")
		args = args[1:]
	}
	inv.rest = rest

	if cur.cmd == nil {
		return
	}
	m.enqueueCommand(root, up, *cur.cmd, inv, args)
}

func (m *CommandManager) replyPinged(ctx context.Context, msg *transport.Message, to transport.ChatTarget) {
	b := tgui.New().Title("👋", "Pinged!")
	if p := m.prefixFor(msg.ChatID); p != "" && p != "/" {
		b.HTML("The current prefixes are " + tgui.Code(p) + ", " + tgui.Code("/") + " and " + tgui.Esc("@"+m.botUsername()))
	} else {
		b.HTML("The current prefixes are " + tgui.Code("/") + " and " + tgui.Esc("@"+m.botUsername()))
	}
	out := b.ReplyTo(msg.ID).Build()
	if _, err := out.Send(ctx, m.adapter, to); err != nil {
		m.log.Debug("ping reply failed", logx.Err(err))
	}
}

func (m *CommandManager) sendText(ctx context.Context, to transport.ChatTarget, replyTo int, text string) {
	if _, err := m.adapter.SendText(ctx, to, text, &transport.SendOptions{ReplyTo: replyTo}); err != nil {
		m.log.Debug("send failed", logx.Err(err))
	}
}

func (m *CommandManager) middleware(timeout time.Duration) []Middleware {
	if timeout <= 0 {
		m.mu.RLock()
		timeout = m.timeout
		m.mu.RUnlock()
	}
	return []Middleware{
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWReplyErrors(),
		MWMetrics(),
		MWTimeout(timeout),
	}
}

func (m *CommandManager) enqueueCommand(root context.Context, up transport.Update, cmd Command, inv invocation, args []string) {
	msg := up.Message
	to := transport.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	owners := m.ownersSnapshot()
	if cmd.Access == AccessOwnerOnly && !isOwner(msg.FromID, owners) {
		return
	}
	if cmd.GroupOnly && !msg.IsGroup() {
		m.sendText(root, to, msg.ID, "This command only works in groups!")
		return
	}

	rid := newReqID()
	req := &Request{
		Update:  up,
		Message: msg,
		Chat:    to,
		FromID:  msg.FromID,
		Command: cmd.Route,
		Prefix:  inv.prefix,
		Args:    args,
		ArgText: inv.rest,
		ReqID:   rid,
		Adapter: m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Route),
		),
		OwnerUserIDs: owners,
	}

	final := Chain(cmd.Handle, m.middleware(cmd.Timeout)...)
	if !m.tryEnqueue(func() { _ = final(root, req) }) {
		m.sendText(root, to, msg.ID, "Busy, try again in a moment.")
	}
}

func (m *CommandManager) routeCallback(root context.Context, up transport.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	ns, action, payload, ok := tgui.ParseData(cb.Data)
	if !ok {
		return
	}

	m.cbMu.RLock()
	route, ok := m.callbacks[ns][action]
	m.cbMu.RUnlock()
	if !ok {
		_ = m.adapter.AnswerCallback(root, cb.ID, "")
		return
	}

	owners := m.ownersSnapshot()
	if route.Access == CallbackAccessOwnerOnly && !isOwner(cb.FromID, owners) {
		_ = m.adapter.AnswerCallback(root, cb.ID, "forbidden")
		return
	}

	rid := newReqID()
	command := "cb:" + ns + ":" + action
	req := &Request{
		Update:   up,
		Callback: cb,
		Chat:     transport.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID},
		FromID:   cb.FromID,
		Command:  command,
		Payload:  payload,
		ReqID:    rid,
		Adapter:  m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", cb.ChatID),
			logx.Int64("from_id", cb.FromID),
			logx.String("cmd", command),
		),
		OwnerUserIDs: owners,
	}

	h := func(ctx context.Context, r *Request) error { return route.Handle(ctx, r, payload) }
	final := Chain(h, m.middleware(route.Timeout)...)

	if !m.tryEnqueue(func() {
		_ = final(root, req)
		// Stops the client's loading indicator; handlers that answered
		// with text already did so.
		_ = m.adapter.AnswerCallback(root, cb.ID, "")
	}) {
		_ = m.adapter.AnswerCallback(root, cb.ID, "busy")
	}
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
