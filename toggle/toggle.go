// Package toggle implements the reaction toggle shown next to a message: it
// derives the badge count and reacted state for one react kind from a
// message's react list, and flips the current user's reaction on click.
package toggle

import (
	"context"
	"errors"
	"fmt"
	"slackr-server/models"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Kind identifies which reaction a toggle controls. It is a lookup key into
// a message's react list and carries no meaning of its own.
type Kind int

// State is what a toggle shows for its kind.
type State struct {
	Count   int  `json:"count"`
	Reacted bool `json:"is_reacted"`
}

// Derive looks up kind in reacts. The first matching entry wins; a missing
// kind means nobody has reacted yet.
func Derive(reacts models.ReactionList, kind Kind) State {
	for _, r := range reacts {
		if r.ReactID == int(kind) {
			return State{Count: len(r.UIDs), Reacted: r.IsThisUserReacted}
		}
	}
	return State{}
}

var ErrInvalidMessageID = errors.New("invalid message id")

// ParseMessageID coerces a message id received as text.
func ParseMessageID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMessageID, s)
	}
	return id, nil
}

type Action int

const (
	ActionAdd Action = iota
	ActionRemove
)

// ActionFor returns the request a click issues given the current state.
func ActionFor(reacted bool) Action {
	if reacted {
		return ActionRemove
	}
	return ActionAdd
}

func (a Action) String() string {
	if a == ActionRemove {
		return "unreact"
	}
	return "react"
}

// AuthProvider supplies the token sent with every mutation.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is an AuthProvider that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("no auth token")
	}
	return string(t), nil
}

// AuthFunc adapts a function to AuthProvider.
type AuthFunc func(ctx context.Context) (string, error)

func (f AuthFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// RefreshFunc asks the owner of the react list to fetch it again.
type RefreshFunc func()

// Mutator sends add and remove requests for the current user's reaction.
type Mutator interface {
	React(ctx context.Context, token string, messageID, reactID int) error
	Unreact(ctx context.Context, token string, messageID, reactID int) error
}

type Toggle struct {
	kind    Kind
	auth    AuthProvider
	mutator Mutator
	refresh RefreshFunc
	onError func(Action, error)
	styles  Styles
}

type Option func(*Toggle)

// WithRefresh sets the callback run once after every successful mutation.
func WithRefresh(fn RefreshFunc) Option {
	return func(t *Toggle) { t.refresh = fn }
}

// WithErrorHandler sets a callback for failed mutations. The error is also
// returned to the caller.
func WithErrorHandler(fn func(Action, error)) Option {
	return func(t *Toggle) { t.onError = fn }
}

// WithStyles replaces the display catalog.
func WithStyles(styles Styles) Option {
	return func(t *Toggle) { t.styles = styles }
}

func New(kind Kind, auth AuthProvider, mutator Mutator, opts ...Option) *Toggle {
	t := &Toggle{
		kind:    kind,
		auth:    auth,
		mutator: mutator,
		styles:  DefaultStyles,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Toggle) Kind() Kind {
	return t.kind
}

func (t *Toggle) State(reacts models.ReactionList) State {
	return Derive(reacts, t.kind)
}

// View renders the toggle for reacts using the configured style catalog.
func (t *Toggle) View(reacts models.ReactionList) View {
	return t.styles.View(t.kind, Derive(reacts, t.kind))
}

// Mutate issues exactly one request: unreact when reacted is true, react
// otherwise. Refresh runs only when the request succeeds. Failures are not
// retried.
func (t *Toggle) Mutate(ctx context.Context, messageID int, reacted bool) error {
	action := ActionFor(reacted)
	logger := zerolog.Ctx(ctx).With().
		Int("message_id", messageID).
		Int("react_id", int(t.kind)).
		Str("action", action.String()).
		Logger()

	err := t.mutate(ctx, action, messageID)
	if err != nil {
		logger.Warn().Err(err).Msg("reaction toggle failed")
		if t.onError != nil {
			t.onError(action, err)
		}
		return err
	}

	logger.Debug().Msg("reaction toggled")
	if t.refresh != nil {
		t.refresh()
	}
	return nil
}

func (t *Toggle) mutate(ctx context.Context, action Action, messageID int) error {
	if t.auth == nil {
		return errors.New("toggle: no auth provider")
	}
	if t.mutator == nil {
		return errors.New("toggle: no mutator")
	}
	token, err := t.auth.Token(ctx)
	if err != nil {
		return fmt.Errorf("get auth token: %w", err)
	}

	if action == ActionRemove {
		err = t.mutator.Unreact(ctx, token, messageID, int(t.kind))
	} else {
		err = t.mutator.React(ctx, token, messageID, int(t.kind))
	}
	if err != nil {
		return fmt.Errorf("%s message %d: %w", action, messageID, err)
	}
	return nil
}

// Click derives the current state from reacts and flips it in the
// background. Overlapping clicks are not coalesced: each one sends its own
// request based on the react list it was given.
func (t *Toggle) Click(ctx context.Context, messageID int, reacts models.ReactionList) *Task {
	state := Derive(reacts, t.kind)
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{
		action: ActionFor(state.Reacted),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(task.done)
		defer cancel()
		task.err = t.Mutate(ctx, messageID, state.Reacted)
	}()

	return task
}
