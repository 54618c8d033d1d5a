// Package progress implements a hierarchical, weighted progress tree with
// cooperative cancellation. A Node is created Fresh, Begin is called once
// with the weight of each step it will perform, each step is closed with
// Done, and children created mid-step inherit the parent's cancellation
// token. Calling Begin or Done out of turn is a programming error, not a
// recoverable condition: the zif_state equivalent in the original C
// library asserts; here we return a *ziferr.Error of Kind SetupInvalid so
// callers who chain with errors.Wrap still get something loggable, but we
// expect these to never fire in correct code.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/hughsie/zif-sub003/ziferr"
)

type state int

const (
	stateFresh state = iota
	stateBegun
	stateCompleted
)

// ActionKind labels what a Node is currently doing, for status lines in
// logs and UIs. It has no effect on percentage calculation.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionDownloading
	ActionLoadingRepos
	ActionCheckingUpdates
	ActionDownloadingPackages
	ActionWritingConfig
	ActionRunningTransaction
)

// CancelToken is shared down a Node tree: cancelling the root cancels
// every descendant created before or after the call.
type CancelToken struct {
	fired int32
	ch    chan struct{}
	once  sync.Once
}

// NewCancelToken returns a token that has not fired.
func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{})}
}

// Cancel marks the token fired. Safe to call more than once and from any
// goroutine.
func (c *CancelToken) Cancel() {
	c.once.Do(func() {
		atomic.StoreInt32(&c.fired, 1)
		close(c.ch)
	})
}

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool {
	return atomic.LoadInt32(&c.fired) == 1
}

// Done returns a channel that closes when the token fires, for use in
// select statements guarding blocking operations.
func (c *CancelToken) Done() <-chan struct{} { return c.ch }

// Node is one level of a weighted progress tree. The zero value is not
// usable; construct with New.
type Node struct {
	mu sync.Mutex

	state   state
	weights []uint32
	step    int
	percent float64

	action  ActionKind
	subject string

	cancel *CancelToken
	child  *Node
}

// New returns a Fresh root Node with its own cancellation token.
func New() *Node {
	return &Node{cancel: NewCancelToken()}
}

// Cancel fires this node's cancellation token, affecting this node and
// every node descended from it.
func (n *Node) Cancel() { n.cancel.Cancel() }

// CancelToken exposes the node's token so long-running operations (HTTP
// downloads, external process calls) can select on it directly.
func (n *Node) CancelToken() *CancelToken { return n.cancel }

// Cancelled reports whether this node's token has fired.
func (n *Node) Cancelled() bool { return n.cancel.Cancelled() }

// Valid reports whether the node has not yet completed every declared
// step. Cancellation does not change it.
func (n *Node) Valid() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state != stateCompleted
}

// Begin declares the relative weights of the steps this node will
// perform. It may be called exactly once per node, before any Done call.
// weights must be non-empty; each element is the share of this node's
// 0-100% range that the corresponding Done call completes.
func (n *Node) Begin(weights []uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != stateFresh {
		return ziferr.New(ziferr.SetupInvalid, errors.New("progress: Begin called on a non-fresh node"))
	}
	if len(weights) == 0 {
		return ziferr.New(ziferr.SetupInvalid, errors.New("progress: Begin requires at least one weight"))
	}
	var total uint32
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return ziferr.New(ziferr.SetupInvalid, errors.New("progress: weights must sum to more than zero"))
	}

	n.weights = append([]uint32(nil), weights...)
	n.state = stateBegun
	n.step = 0
	return nil
}

// Child returns a new Node sharing this node's cancellation token, for
// delegating a sub-range of work (e.g. one mirror attempt inside a
// download step) to a nested Begin/Done sequence. Child may be called
// freely; it does not itself advance the step counter.
func (n *Node) Child() *Node {
	c := &Node{cancel: n.cancel}
	n.mu.Lock()
	n.child = c
	n.mu.Unlock()
	return c
}

// ActionStart records the kind of work and an optional human-readable
// subject (a filename, a package name) for the current step, surfaced by
// Percent/Action accessors for status lines.
func (n *Node) ActionStart(kind ActionKind, subject string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.action = kind
	n.subject = subject
}

// ActionStop clears the current action.
func (n *Node) ActionStop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.action = ActionUnknown
	n.subject = ""
}

// Action returns the node's current action kind and subject.
func (n *Node) Action() (ActionKind, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.action, n.subject
}

// Done closes out the next declared step, advancing Percent. It is a
// programming error to call Done more times than len(weights) passed to
// Begin, or to call Done before Begin. Once the node's cancellation
// token has fired, every Done returns a Cancelled error without advancing.
func (n *Node) Done() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel.Cancelled() {
		return ziferr.Sentinel(ziferr.Cancelled)
	}
	if n.state != stateBegun {
		return ziferr.New(ziferr.SetupInvalid, errors.New("progress: Done called before Begin or after completion"))
	}
	if n.step >= len(n.weights) {
		return ziferr.New(ziferr.SetupInvalid, errors.Errorf("progress: Done called more times (%d) than Begin declared (%d)", n.step+1, len(n.weights)))
	}

	var total, done uint32
	for i, w := range n.weights {
		total += w
		if i <= n.step {
			done += w
		}
	}
	n.step++
	n.percent = 100 * float64(done) / float64(total)
	if n.step == len(n.weights) {
		n.state = stateCompleted
	}
	return nil
}

// Reset returns the node to its Fresh state so Begin may be called again,
// clearing step count and percent but not the cancellation token.
func (n *Node) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = stateFresh
	n.weights = nil
	n.step = 0
	n.percent = 0
	n.action = ActionUnknown
	n.subject = ""
	n.child = nil
}

// Percent returns the node's current completion percentage, 0-100.
func (n *Node) Percent() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.percent
}

// CheckCancelled returns a *ziferr.Error of Kind Cancelled if this node's
// token has fired, nil otherwise. Long-running loops call this between
// iterations instead of inspecting CancelToken directly.
func (n *Node) CheckCancelled() error {
	if n.Cancelled() {
		return ziferr.Sentinel(ziferr.Cancelled)
	}
	return nil
}
