// Package menu routes decoded interaction tokens to Docker operations and
// produces the next screen to render.
//
// The router is stateless by design: every rendered screen embeds the tokens
// for its legal next transitions, so an inbound event alone reconstructs all
// context. Requests are independent units of work and may be handled
// concurrently; no per-container locking is attempted, the remote engine
// serializes its own state transitions.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mkravets/shipmate/internal/docker"
	apperrors "github.com/mkravets/shipmate/internal/errors"
	"github.com/mkravets/shipmate/internal/token"
	"go.uber.org/zap"
)

// stderrSnippetLimit caps how much captured stderr is shown to the user on a
// failed action.
const stderrSnippetLimit = 300

// Event is one inbound interaction from the transport.
type Event struct {
	Caller string // opaque caller identity, checked against the access gate
	Token  string // raw token produced by a previous render
}

// Choice is one selectable affordance on a screen.
type Choice struct {
	Label string
	Token string
}

// Render is the outbound instruction handed back to the transport: screen
// text plus the ordered choices to offer next.
type Render struct {
	Text    string
	Choices []Choice
}

// Gate decides whether a caller may interact at all. Consulted once per
// event, before anything else happens.
type Gate interface {
	IsAllowed(caller string) bool
}

// AllowList is a Gate backed by a fixed set of caller identities. An empty
// list permits everyone; restricting access is opt-in.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from configured identities.
func NewAllowList(callers []string) AllowList {
	list := make(AllowList, len(callers))
	for _, c := range callers {
		list[c] = struct{}{}
	}
	return list
}

// IsAllowed implements Gate.
func (a AllowList) IsAllowed(caller string) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[caller]
	return ok
}

// DockerService is the slice of the docker facade the router needs.
type DockerService interface {
	ListContainers(ctx context.Context) ([]docker.Container, error)
	ListImages(ctx context.Context) ([]docker.Image, error)
	ContainerByName(ctx context.Context, name string) (docker.Container, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Logs(ctx context.Context, name string) (string, error)
	Stats(ctx context.Context) ([]docker.StatsSample, error)
}

// Compile-time verification that the facade satisfies DockerService
var _ DockerService = (*docker.Facade)(nil)

// AlertSink receives operator diagnostics for transport-level failures.
type AlertSink interface {
	Alert(text string) error
}

// Router maps decoded tokens to facade calls and next screens.
type Router struct {
	svc   DockerService
	gate  Gate
	alert AlertSink
	log   *zap.Logger
}

// NewRouter builds a Router. gate and alert may be nil, meaning open access
// and no operator alerts.
func NewRouter(svc DockerService, gate Gate, alert AlertSink, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{svc: svc, gate: gate, alert: alert, log: log}
}

// Handle processes one inbound event and always produces a screen: every
// failure path ends in a rendered message, never a propagated fault.
func (r *Router) Handle(ctx context.Context, ev Event) Render {
	if r.gate != nil && !r.gate.IsAllowed(ev.Caller) {
		r.log.Warn("access denied", zap.String("caller", ev.Caller))
		return Render{
			Text: "❌ Access denied.",
		}
	}

	t, err := token.Decode(ev.Token)
	if err != nil {
		r.log.Warn("malformed token",
			zap.String("caller", ev.Caller),
			zap.String("token", ev.Token),
			zap.Error(err))
		return r.unavailableScreen()
	}

	switch t.Kind {
	case token.KindRoot:
		return r.rootScreen()
	case token.KindContainerList:
		return r.containerListScreen(ctx)
	case token.KindImageList:
		return r.imageListScreen(ctx)
	case token.KindStats:
		return r.statsScreen(ctx)
	case token.KindContainerDetail:
		return r.containerDetailScreen(ctx, t.ID, "")
	case token.KindAction:
		return r.actionScreen(ctx, t)
	}

	r.log.Warn("unhandled token kind", zap.Int("kind", int(t.Kind)))
	return r.unavailableScreen()
}

func (r *Router) rootScreen() Render {
	return Render{
		Text: "🐳 Shipmate\n\nChoose an action:",
		Choices: []Choice{
			{Label: "📋 Containers", Token: mustEncode(token.ContainerList())},
			{Label: "💿 Images", Token: mustEncode(token.ImageList())},
			{Label: "📊 Stats", Token: mustEncode(token.Stats())},
		},
	}
}

func (r *Router) containerListScreen(ctx context.Context) Render {
	containers, err := r.svc.ListContainers(ctx)
	if err != nil {
		return r.failureScreen(err)
	}
	if len(containers) == 0 {
		return Render{
			Text:    "📋 No containers found.",
			Choices: []Choice{backChoice(token.Root())},
		}
	}

	var sb strings.Builder
	sb.WriteString("📋 Containers:\n\n")
	choices := make([]Choice, 0, len(containers)+1)
	for _, c := range containers {
		fmt.Fprintf(&sb, "%s %s\n    %s — %s\n", stateEmoji(c), c.Name, c.Status, c.Image)

		tok, err := token.Encode(token.ContainerDetail(c.Name))
		if err != nil {
			// A name outside the encodable set stays visible in the text but
			// gets no button.
			r.log.Warn("container name not encodable", zap.String("name", c.Name), zap.Error(err))
			continue
		}
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s %s", actionEmoji(c), c.Name),
			Token: tok,
		})
	}
	choices = append(choices, backChoice(token.Root()))

	return Render{Text: sb.String(), Choices: choices}
}

func (r *Router) imageListScreen(ctx context.Context) Render {
	images, err := r.svc.ListImages(ctx)
	if err != nil {
		return r.failureScreen(err)
	}

	var sb strings.Builder
	if len(images) == 0 {
		sb.WriteString("💿 No images found.")
	} else {
		sb.WriteString("💿 Images:\n\n")
		for _, img := range images {
			fmt.Fprintf(&sb, "• %s:%s\n    %s, created %s\n", img.Repository, img.Tag, img.Size, img.Created)
		}
	}

	return Render{Text: sb.String(), Choices: []Choice{backChoice(token.Root())}}
}

func (r *Router) statsScreen(ctx context.Context) Render {
	containers, err := r.svc.ListContainers(ctx)
	if err != nil {
		return r.failureScreen(err)
	}
	samples, err := r.svc.Stats(ctx)
	if err != nil {
		return r.failureScreen(err)
	}

	running := 0
	for _, c := range containers {
		if c.Running() {
			running++
		}
	}

	var sb strings.Builder
	sb.WriteString("📊 Host stats:\n\n")
	fmt.Fprintf(&sb, "🌐 Containers running: %d/%d\n\n", running, len(containers))
	for _, s := range samples {
		fmt.Fprintf(&sb, "🟢 %s\n    CPU: %.1f%%  Mem: %.1f%% (%s)\n", s.Name, s.CPUPercent, s.MemPercent, s.MemUsage)
	}

	return Render{Text: sb.String(), Choices: []Choice{backChoice(token.Root())}}
}

// containerDetailScreen fetches a fresh status snapshot for id and renders
// action choices conditioned on it. note, when non-empty, is shown above the
// detail, which is how a just-performed action reports its outcome.
func (r *Router) containerDetailScreen(ctx context.Context, id, note string) Render {
	c, err := r.svc.ContainerByName(ctx, id)
	if err != nil {
		return r.failureScreen(err)
	}

	var sb strings.Builder
	if note != "" {
		sb.WriteString(note)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "🐳 %s\n\nStatus: %s\nImage: %s\nID: %s\n", c.Name, c.Status, c.Image, c.ID)

	var choices []Choice
	if c.Running() {
		choices = append(choices,
			Choice{Label: "⏹️ Stop", Token: mustEncode(token.Action(token.VerbStop, c.Name))},
			Choice{Label: "🔄 Restart", Token: mustEncode(token.Action(token.VerbRestart, c.Name))},
		)
	} else {
		choices = append(choices,
			Choice{Label: "▶️ Start", Token: mustEncode(token.Action(token.VerbStart, c.Name))},
		)
	}
	choices = append(choices,
		Choice{Label: "📝 Logs", Token: mustEncode(token.Action(token.VerbLogs, c.Name))},
		backChoice(token.ContainerList()),
	)

	return Render{Text: sb.String(), Choices: choices}
}

// actionScreen performs the side-effecting call, then re-renders the detail
// screen from a fresh status fetch. The action's whole point was to change
// that status, so nothing cached would do.
func (r *Router) actionScreen(ctx context.Context, t token.Token) Render {
	switch t.Verb {
	case token.VerbLogs:
		return r.logsScreen(ctx, t.ID)
	case token.VerbStart:
		if err := r.svc.Start(ctx, t.ID); err != nil {
			return r.failureScreen(err)
		}
		return r.containerDetailScreen(ctx, t.ID, "▶️ Start issued for "+t.ID)
	case token.VerbStop:
		if err := r.svc.Stop(ctx, t.ID); err != nil {
			return r.failureScreen(err)
		}
		return r.containerDetailScreen(ctx, t.ID, "⏹️ Stop issued for "+t.ID)
	case token.VerbRestart:
		if err := r.svc.Restart(ctx, t.ID); err != nil {
			return r.failureScreen(err)
		}
		return r.containerDetailScreen(ctx, t.ID, "🔄 Restart issued for "+t.ID)
	}

	return r.unavailableScreen()
}

func (r *Router) logsScreen(ctx context.Context, id string) Render {
	logs, err := r.svc.Logs(ctx, id)
	if err != nil {
		return r.failureScreen(err)
	}
	if strings.TrimSpace(logs) == "" {
		logs = "(no log output)"
	}

	return Render{
		Text:    fmt.Sprintf("📝 Logs for %s:\n\n%s", id, logs),
		Choices: []Choice{backChoice(token.ContainerDetail(id))},
	}
}

// failureScreen maps an error to a user-facing screen per the propagation
// policy: remote command failures surface their stderr because it is
// actionable, transport failures and timeouts are logged in full and pushed
// to the operator channel while the user sees only a generic message.
func (r *Router) failureScreen(err error) Render {
	var cmdErr *apperrors.RemoteCommandError
	if errors.As(err, &cmdErr) {
		snippet := cmdErr.Stderr
		if len(snippet) > stderrSnippetLimit {
			// Back up to a rune boundary; daemon errors may be localized.
			cut := stderrSnippetLimit
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			snippet = snippet[:cut] + "…"
		}
		text := fmt.Sprintf("❌ Docker reported an error (%s):\n%s", cmdErr.Op, snippet)
		if snippet == "" {
			text = fmt.Sprintf("❌ Docker command %s failed.", cmdErr.Op)
		}
		return Render{Text: text, Choices: []Choice{backChoice(token.Root())}}
	}

	if errors.Is(err, docker.ErrNotFound) {
		return Render{
			Text:    "❌ Container not found. It may have been removed.",
			Choices: []Choice{backChoice(token.ContainerList())},
		}
	}

	var emptyErr *apperrors.EmptyResultError
	if errors.As(err, &emptyErr) {
		r.log.Warn("remote command failed silently", zap.Error(err))
		return r.unavailableScreen()
	}

	// A caller-supplied identifier failing validation is an input problem,
	// never retried and not worth an operator alert.
	var invalidErr *apperrors.InvalidIdentifierError
	if errors.As(err, &invalidErr) {
		r.log.Warn("invalid identifier", zap.Error(err))
		return r.unavailableScreen()
	}

	// Transport failures and timeouts: full detail to the operator, generic
	// screen to the user.
	r.log.Error("executor failure", zap.Error(err))
	if r.alert != nil {
		if alertErr := r.alert.Alert(err.Error()); alertErr != nil {
			r.log.Warn("operator alert failed", zap.Error(alertErr))
		}
	}
	return r.unavailableScreen()
}

func (r *Router) unavailableScreen() Render {
	return Render{
		Text:    "⚠️ Action unavailable. Please try again.",
		Choices: []Choice{backChoice(token.Root())},
	}
}

// stateEmoji marks a container's state in listing text.
func stateEmoji(c docker.Container) string {
	if c.Running() {
		return "🟢"
	}
	return "🔴"
}

// actionEmoji hints at the primary action a detail view will offer.
func actionEmoji(c docker.Container) string {
	if c.Running() {
		return "⏹️"
	}
	return "▶️"
}

func backChoice(t token.Token) Choice {
	return Choice{Label: "🔙 Back", Token: mustEncode(t)}
}

// mustEncode is for tokens built from compile-time kinds and already
// validated identifiers; encoding them cannot fail.
func mustEncode(t token.Token) string {
	s, err := token.Encode(t)
	if err != nil {
		panic(fmt.Sprintf("unencodable token %+v: %v", t, err))
	}
	return s
}
