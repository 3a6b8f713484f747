// Package latest implements a latest-wins guard for asynchronous work whose
// results may arrive out of order. Every invocation is stamped with a token
// from a monotonically increasing counter; a result is only worth applying
// when its token is still the most recently issued one.
package latest

import (
	"context"
	"sync/atomic"
)

// Token identifies one issued invocation. The zero Token is never issued.
type Token uint64

// Guard tracks the current token epoch. Issue and Invalidate both advance the
// epoch; only Issue counts as an invocation.
type Guard struct {
	epoch     atomic.Uint64
	issued    atomic.Uint64
	discarded atomic.Uint64
}

// Issue stamps a new invocation and supersedes every earlier one.
func (g *Guard) Issue() Token {
	g.issued.Add(1)
	return Token(g.epoch.Add(1))
}

// Invalidate supersedes every outstanding invocation without starting a new one.
func (g *Guard) Invalidate() {
	g.epoch.Add(1)
}

// Current reports whether t is the latest issued token.
func (g *Guard) Current(t Token) bool {
	return t != 0 && uint64(t) == g.epoch.Load()
}

// Accept is Current plus bookkeeping: a stale token is counted as discarded.
func (g *Guard) Accept(t Token) bool {
	if g.Current(t) {
		return true
	}
	g.discarded.Add(1)
	return false
}

// Issued counts calls to Issue. Invalidations are not included.
func (g *Guard) Issued() uint64 {
	return g.issued.Load()
}

func (g *Guard) Discarded() uint64 {
	return g.discarded.Load()
}

// Outcome carries the result of one guarded invocation back to the place
// where it is applied.
type Outcome[T any] struct {
	Token Token
	Key   string
	Value T
	Err   error
}

// Call runs produce and stamps the outcome with token and key. It does not
// consult the guard; the receiver decides with Accept once the outcome is back
// on the goroutine that owns the visible state.
func Call[T any](ctx context.Context, token Token, key string, produce func(context.Context) (T, error)) Outcome[T] {
	v, err := produce(ctx)
	return Outcome[T]{Token: token, Key: key, Value: v, Err: err}
}

// Apply hands the outcome to fn only when its token is still current.
func Apply[T any](g *Guard, out Outcome[T], fn func(Outcome[T])) bool {
	if !g.Accept(out.Token) {
		return false
	}
	fn(out)
	return true
}
