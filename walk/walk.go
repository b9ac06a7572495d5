// Package walk enumerates a hierarchical key space for batch transfer
// operations.
//
// Two traversal orders are provided: top-down yields a container before any of
// its descendants (create parents first), bottom-up yields every descendant
// before its container (delete children first). Both walkers are lazy: a
// container's children are listed only when the traversal reaches it. The key
// space is treated as a tree; a listing that introduces cycles violates the
// Lister contract and is not guarded against here.
package walk

import (
	"context"
	"errors"

	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
)

// Done is returned by Next once a walk has yielded every reachable entry.
var Done = errors.New("walk: no more entries")

// Entry is one node of the key space.
type Entry struct {
	// Key is the node's full key (path)
	Key string

	// Dir reports whether the node is a container
	Dir bool
}

// Lister provides the listing capability a walker traverses. List returns the
// immediate children of a container key.
type Lister interface {
	List(ctx context.Context, key string) ([]Entry, error)
}

// Walker produces a lazy, finite sequence of entries. A walker is single-use;
// restart a traversal by constructing a new walker from the root.
type Walker interface {
	Next(ctx context.Context) (Entry, error)
}

// NewTopDown creates a walker that yields containers before their descendants,
// starting with the root container itself. Sibling order follows the Lister's
// order.
func NewTopDown(lister Lister, root string) Walker {
	return &topDownWalker{
		lister: lister,
		stack:  []Entry{{Key: root, Dir: true}},
	}
}

// NewBottomUp creates a walker that yields all descendants of a container
// before the container itself; the root container comes last.
func NewBottomUp(lister Lister, root string) Walker {
	return &bottomUpWalker{
		lister: lister,
		stack:  []*frame{{entry: Entry{Key: root, Dir: true}}},
	}
}

// WalkAll drains a walker into a slice. Intended for small trees and tests;
// large key spaces should consume the walker incrementally.
func WalkAll(ctx context.Context, w Walker) ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := w.Next(ctx)
		if errors.Is(err, Done) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

type topDownWalker struct {
	lister Lister
	stack  []Entry
}

func (w *topDownWalker) Next(ctx context.Context) (Entry, error) {
	if len(w.stack) == 0 {
		return Entry{}, Done
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	entry := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]

	if entry.Dir {
		children, err := w.lister.List(ctx, entry.Key)
		if err != nil {
			return Entry{}, transfererrors.NewPathError("walk", entry.Key, err)
		}
		// Push in reverse so the Lister's order is preserved on pop.
		for i := len(children) - 1; i >= 0; i-- {
			w.stack = append(w.stack, children[i])
		}
	}

	return entry, nil
}

// frame tracks one container on the bottom-up traversal path. A container is
// expanded (children listed and pushed) the first time it is reached and
// yielded when it is reached again with every child already consumed.
type frame struct {
	entry    Entry
	expanded bool
}

type bottomUpWalker struct {
	lister Lister
	stack  []*frame
}

func (w *bottomUpWalker) Next(ctx context.Context) (Entry, error) {
	for {
		if len(w.stack) == 0 {
			return Entry{}, Done
		}
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}

		top := w.stack[len(w.stack)-1]

		if !top.entry.Dir || top.expanded {
			w.stack = w.stack[:len(w.stack)-1]
			return top.entry, nil
		}

		children, err := w.lister.List(ctx, top.entry.Key)
		if err != nil {
			return Entry{}, transfererrors.NewPathError("walk", top.entry.Key, err)
		}
		top.expanded = true
		// Push in reverse so children are yielded in the Lister's order.
		for i := len(children) - 1; i >= 0; i-- {
			w.stack = append(w.stack, &frame{entry: children[i]})
		}
	}
}
