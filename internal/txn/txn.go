// Package txn runs ledger operations as serialized, all-or-nothing calls.
//
// Every public operation of the auction engine and the token ledgers goes
// through one Executor. The outermost call takes the executor lock and opens a
// frame; calls re-entering with the frame's context (a token hook calling back
// into the engine) run as nested frames without locking. Mutations record undo
// closures in the frame; a failing call (or nested call) replays them in
// reverse, so nothing it did remains visible.
package txn

import (
	"context"
	"fmt"
	"sync"

	"ReliefAuction/internal/storage"
)

// Participant owns state that is persisted when a call commits.
type Participant interface {
	// Stage appends the participant's pending writes to the batch.
	Stage(b *storage.Batch) error

	// Committed runs once the batch is durable (publish events, clear dirty sets).
	Committed()

	// Discarded runs after the outermost call rolled back.
	Discarded()
}

// frameKey scopes a frame to the executor that opened it.
type frameKey struct {
	x *Executor
}

// frame is the undo log of one outermost call.
type frame struct {
	undo  []func() // undo closures in recording order
	depth int      // depth is the current nesting level
}

// Executor serializes calls and applies their effects atomically.
type Executor struct {
	mu           sync.Mutex       // mu serializes outermost calls
	db           *storage.Storage // db persists committed calls; nil keeps state in memory
	participants []Participant    // participants are staged in registration order
}

// New creates an executor persisting to db. A nil db keeps all state in memory.
func New(db *storage.Storage) *Executor {
	return &Executor{db: db}
}

// Register adds a participant. Must be called before the first Run.
func (x *Executor) Register(p Participant) {
	x.participants = append(x.participants, p)
}

// Run executes fn atomically. If ctx already carries a frame of this executor,
// fn runs nested: on error only the changes fn made are undone and the error is
// returned to the enclosing call.
func (x *Executor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if f, ok := ctx.Value(frameKey{x}).(*frame); ok {
		return x.runNested(ctx, f, fn)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	f := &frame{}
	ctx = context.WithValue(ctx, frameKey{x}, f)

	persisted := false
	defer func() {
		// A panicking call must not leave its half-applied state behind.
		if r := recover(); r != nil {
			if !persisted {
				f.rollback(0)
				x.discard()
			}
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		f.rollback(0)
		x.discard()
		return err
	}

	if err := x.persist(); err != nil {
		f.rollback(0)
		x.discard()
		return fmt.Errorf("persist call:\n%w", err)
	}
	persisted = true

	for _, p := range x.participants {
		p.Committed()
	}

	return nil
}

// View runs a read-only fn under the executor lock, or directly when already
// inside a frame of this executor.
func (x *Executor) View(ctx context.Context, fn func()) {
	if _, ok := ctx.Value(frameKey{x}).(*frame); ok {
		fn()
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	fn()
}

// runNested executes fn inside an existing frame with a savepoint.
func (x *Executor) runNested(ctx context.Context, f *frame, fn func(ctx context.Context) error) error {
	mark := len(f.undo)
	f.depth++
	defer func() { f.depth-- }()

	if err := fn(ctx); err != nil {
		f.rollback(mark)
		return err
	}

	return nil
}

// persist stages every participant into one batch and commits it.
func (x *Executor) persist() error {
	if x.db == nil {
		return nil
	}

	batch := x.db.NewBatch()

	for _, p := range x.participants {
		if err := p.Stage(batch); err != nil {
			batch.Discard()
			return err
		}
	}

	return batch.Commit()
}

// discard notifies participants of a rollback.
func (x *Executor) discard() {
	for _, p := range x.participants {
		p.Discarded()
	}
}

// rollback replays undo closures down to mark, newest first.
func (f *frame) rollback(mark int) {
	for i := len(f.undo) - 1; i >= mark; i-- {
		f.undo[i]()
	}

	f.undo = f.undo[:mark]
}

// Record registers undo to run if the current call (or nested call) fails.
// Panics when ctx carries no frame: mutations outside Run are a programming error.
func Record(ctx context.Context, x *Executor, undo func()) {
	f, ok := ctx.Value(frameKey{x}).(*frame)
	if !ok {
		panic("txn: mutation outside Run")
	}

	f.undo = append(f.undo, undo)
}

// Depth returns the nesting level of the current call: 0 for the outermost
// call, -1 outside any call.
func Depth(ctx context.Context, x *Executor) int {
	f, ok := ctx.Value(frameKey{x}).(*frame)
	if !ok {
		return -1
	}

	return f.depth
}

// Put sets m[k] = v and journals the previous entry (or its absence).
func Put[K comparable, V any](ctx context.Context, x *Executor, m map[K]V, k K, v V) {
	old, existed := m[k]
	Record(ctx, x, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})

	m[k] = v
}

// Assign sets *p = v and journals the previous value.
func Assign[T any](ctx context.Context, x *Executor, p *T, v T) {
	old := *p
	Record(ctx, x, func() { *p = old })

	*p = v
}

// Mark adds k to a participant's dirty set. The mark is journaled, so keys
// touched only by a rolled-back nested call are not staged.
func Mark[K comparable](ctx context.Context, x *Executor, set map[K]struct{}, k K) {
	if _, ok := set[k]; ok {
		return
	}

	Put(ctx, x, set, k, struct{}{})
}

// Flag sets a journaled dirty flag.
func Flag(ctx context.Context, x *Executor, flag *bool) {
	if !*flag {
		Assign(ctx, x, flag, true)
	}
}
