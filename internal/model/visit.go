package model

import (
	"context"
	"errors"
	"iter"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
)

// ErrDisposed is returned when a traversal reaches a model whose module has
// been disposed. No partial result is reported.
var ErrDisposed = errors.New("model: module disposed")

// Walk visits every model reachable from roots exactly once, depth first in
// dependency order. visit returning false stops the whole walk and Walk
// reports false. The walk checks ctx before each model.
func Walk(ctx context.Context, mc *Context, roots []Model, visit func(Model) bool) (bool, error) {
	w := walker{ctx: ctx, mc: mc, seen: make(map[ID]struct{})}
	for _, r := range roots {
		ok, err := w.walk(r, visit)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

type walker struct {
	ctx  context.Context
	mc   *Context
	seen map[ID]struct{}
}

func (w *walker) walk(m Model, visit func(Model) bool) (bool, error) {
	if m == nil {
		return true, nil
	}
	if _, ok := w.seen[m.ID()]; ok {
		return true, nil
	}
	if err := w.ctx.Err(); err != nil {
		return false, err
	}
	if w.mc.Disposed(m.Module()) {
		return false, ErrDisposed
	}
	w.seen[m.ID()] = struct{}{}
	if !visit(m) {
		return false, nil
	}
	for _, dep := range m.Dependencies() {
		target, ok := w.mc.Get(dep.Model)
		if !ok {
			continue
		}
		ok, err := w.walk(target, visit)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// Step is one edge seen by WalkRelated. Revisit is set when the target was
// already expanded through another path or is part of a cycle; its
// dependencies are not walked again.
type Step struct {
	From    Model
	Dep     Dependency
	To      Model
	Depth   int
	Revisit bool
}

// WalkRelated reports every edge reachable from roots, including edges that
// re-enter already expanded models. Roots are reported with a nil From.
// visit returning false stops the walk.
func WalkRelated(ctx context.Context, mc *Context, roots []Model, visit func(Step) bool) (bool, error) {
	w := walker{ctx: ctx, mc: mc, seen: make(map[ID]struct{})}
	for _, r := range roots {
		ok, err := w.related(Step{To: r}, visit)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

func (w *walker) related(s Step, visit func(Step) bool) (bool, error) {
	if err := w.ctx.Err(); err != nil {
		return false, err
	}
	if w.mc.Disposed(s.To.Module()) {
		return false, ErrDisposed
	}
	_, s.Revisit = w.seen[s.To.ID()]
	if !visit(s) {
		return false, nil
	}
	if s.Revisit {
		return true, nil
	}
	w.seen[s.To.ID()] = struct{}{}
	for _, dep := range s.To.Dependencies() {
		target, ok := w.mc.Get(dep.Model)
		if !ok {
			continue
		}
		ok, err := w.related(Step{From: s.To, Dep: dep, To: target, Depth: s.Depth + 1}, visit)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// Models yields the models reachable from roots in walk order. A cancelled
// or disposed walk ends the sequence with a nil model and the error; callers
// that must not report partial results drop what they collected.
func Models(ctx context.Context, mc *Context, roots ...Model) iter.Seq2[Model, error] {
	return func(yield func(Model, error) bool) {
		stopped := false
		_, err := Walk(ctx, mc, roots, func(m Model) bool {
			if !yield(m, nil) {
				stopped = true
			}
			return !stopped
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

// Beans yields the local beans of every reachable model that pass the
// model's profile gate, in walk order then declaration order. The same bean
// may be yielded once per model that declares it. Errors end the sequence as
// in Models.
func Beans(ctx context.Context, mc *Context, roots ...Model) iter.Seq2[*bean.Pointer, error] {
	return func(yield func(*bean.Pointer, error) bool) {
		for m, err := range Models(ctx, mc, roots...) {
			if err != nil {
				yield(nil, err)
				return
			}
			active := profilesOf(m)
			for _, p := range m.LocalBeans() {
				if p.Descriptor().Profiles.Accepts(active) && !yield(p, nil) {
					return
				}
			}
		}
	}
}
