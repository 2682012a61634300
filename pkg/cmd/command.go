// Package cmd is a transport-agnostic command core. A command has a name,
// a description and Run; adapters (Discord, CLI) decide how it is
// registered and what Invocation.Data carries.
package cmd

import "context"

// Invocation is what an adapter hands to Run. Data holds the adapter's
// own context, e.g. a Discord interaction.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Middleware wraps a command. The first middleware passed to Apply is the
// innermost one.
type Middleware func(Command) Command

func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}

// Unwrappable lets adapters reach the command under a middleware, e.g. to
// type-assert provider interfaces.
type Unwrappable interface {
	Command
	Unwrap() Command
}

type wrapped struct {
	inner Command
	run   func(ctx context.Context, inv *Invocation) error
}

func (w *wrapped) Name() string        { return w.inner.Name() }
func (w *wrapped) Description() string { return w.inner.Description() }
func (w *wrapped) Unwrap() Command     { return w.inner }

func (w *wrapped) Run(ctx context.Context, inv *Invocation) error {
	return w.run(ctx, inv)
}

// Wrap returns c with Run replaced by run.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &wrapped{inner: c, run: run}
}

// Root unwraps c down to the command that was registered.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}

// As finds the first command in the wrap chain implementing T.
func As[T any](c Command) (T, bool) {
	for {
		if t, ok := c.(T); ok {
			return t, true
		}
		u, ok := c.(Unwrappable)
		if !ok {
			var zero T
			return zero, false
		}
		c = u.Unwrap()
	}
}
