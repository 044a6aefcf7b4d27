// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package boxcheck defines an Analyzer that checks the ownership discipline
// of code.hybscloud.com/offheap boxes and pool capabilities.
//
// A *offheap.Box value held in a local variable or parameter must be
// consumed exactly once on every path: passed to a call (other than
// offheap.Adopt), returned, stored, sent, or captured by a closure.
// A pool capability received by a With or Try body, or produced by
// Pool.Dup, must be discarded exactly once on every path that returns
// normally.
//
// The analysis is intra-procedural and path-sensitive over if, switch,
// select and loop statements. Comparisons against nil narrow a box to the
// empty reference on the matching branch.
package boxcheck

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"maps"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

const offheapPath = "code.hybscloud.com/offheap"

const doc = `check ownership of offheap boxes and pool capabilities

Reports use of a consumed box or discarded pool capability, boxes consumed
inside a loop they were not allocated in, boxes discarded or overwritten
while owned, and boxes or capabilities still owned when a function returns.`

// Analyzer reports violations of the box and pool ownership discipline.
var Analyzer = &analysis.Analyzer{
	Name:     "boxcheck",
	Doc:      doc,
	URL:      "https://pkg.go.dev/code.hybscloud.com/offheap/passes/boxcheck",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

type kind uint8

const (
	notTracked kind = iota
	boxKind
	poolKind
)

// Ownership facts, joined as a bit set across paths.
const (
	empty    uint8 = 1 << iota // holds the nil reference
	owned                      // owns a box or a live capability
	consumed                   // moved out or discarded
)

// state maps tracked variables to their ownership facts on one path.
// A nil state marks an unreachable path.
type state map[*types.Var]uint8

func join(a, b state) state {
	if a == nil {
		return maps.Clone(b)
	}
	if b == nil {
		return maps.Clone(a)
	}
	out := maps.Clone(a)
	for v, f := range b {
		if g, ok := out[v]; ok {
			out[v] = g | f
		} else {
			// Declared on one path only.
			out[v] = f | consumed
		}
	}
	for v, f := range a {
		if _, ok := b[v]; !ok {
			out[v] = f | consumed
		}
	}
	return out
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg.Path() == offheapPath {
		return nil, nil
	}
	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	// Bodies passed to offheap.With and offheap.Try own their capability.
	scopes := make(map[*ast.FuncLit]bool)
	ins.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		name := offheapFunc(pass, call)
		if (name == "With" || name == "Try") && len(call.Args) > 0 {
			if lit, ok := ast.Unparen(call.Args[0]).(*ast.FuncLit); ok {
				scopes[lit] = name == "Try"
			}
		}
	})

	ins.Preorder([]ast.Node{(*ast.FuncDecl)(nil), (*ast.FuncLit)(nil)}, func(n ast.Node) {
		var (
			ftype *ast.FuncType
			body  *ast.BlockStmt
		)
		switch fn := n.(type) {
		case *ast.FuncDecl:
			ftype, body = fn.Type, fn.Body
		case *ast.FuncLit:
			ftype, body = fn.Type, fn.Body
		}
		if body == nil {
			return
		}
		c := &checker{
			pass:       pass,
			kinds:      make(map[*types.Var]kind),
			consumedAt: make(map[*types.Var]token.Pos),
			reported:   make(map[diagnostic]bool),
		}
		lit, _ := n.(*ast.FuncLit)
		isTry, isScope := scopes[lit]
		c.tryBody = isScope && isTry
		c.function(ftype, body, isScope)
	})
	return nil, nil
}

// offheapFunc returns the name of the package-level offheap function call
// invokes, or "".
func offheapFunc(pass *analysis.Pass, call *ast.CallExpr) string {
	fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != offheapPath {
		return ""
	}
	if sig, ok := fn.Type().(*types.Signature); ok && sig.Recv() != nil {
		return ""
	}
	return fn.Name()
}

// classify reports whether t is *offheap.Box[T] or *offheap.Pool.
func classify(t types.Type) kind {
	if t == nil {
		return notTracked
	}
	ptr, ok := types.Unalias(t).(*types.Pointer)
	if !ok {
		return notTracked
	}
	named, ok := types.Unalias(ptr.Elem()).(*types.Named)
	if !ok {
		return notTracked
	}
	obj := named.Origin().Obj()
	if obj.Pkg() == nil || obj.Pkg().Path() != offheapPath {
		return notTracked
	}
	switch obj.Name() {
	case "Box":
		return boxKind
	case "Pool":
		return poolKind
	}
	return notTracked
}

// flow collects the states leaving a loop, switch or select.
type flow struct {
	loop      bool
	breaks    []state
	continues []state
}

type checker struct {
	pass       *analysis.Pass
	kinds      map[*types.Var]kind
	consumedAt map[*types.Var]token.Pos
	reported   map[diagnostic]bool
	flows      []*flow
	tryBody    bool
}

type diagnostic struct {
	pos token.Pos
	msg string
}

func (c *checker) report(pos token.Pos, format string, args ...any) {
	d := diagnostic{pos, fmt.Sprintf(format, args...)}
	if c.reported[d] {
		return
	}
	c.reported[d] = true
	c.pass.Report(analysis.Diagnostic{Pos: pos, Message: d.msg})
}

func (c *checker) function(ftype *ast.FuncType, body *ast.BlockStmt, scope bool) {
	st := make(state)
	if ftype.Params != nil {
		for _, field := range ftype.Params.List {
			for _, name := range field.Names {
				v, ok := c.pass.TypesInfo.Defs[name].(*types.Var)
				if !ok {
					continue
				}
				switch classify(v.Type()) {
				case boxKind:
					c.kinds[v] = boxKind
					st[v] = owned
				case poolKind:
					if scope {
						c.kinds[v] = poolKind
						st[v] = owned
					}
				}
			}
		}
	}
	st = c.stmts(body.List, st)
	if st != nil {
		c.leaks(body.Rbrace, st)
	}
}

// tracked returns the tracked variable e names, if any.
func (c *checker) tracked(e ast.Expr) (*types.Var, kind) {
	id, ok := ast.Unparen(e).(*ast.Ident)
	if !ok {
		return nil, notTracked
	}
	return c.trackedIdent(id)
}

func (c *checker) trackedIdent(id *ast.Ident) (*types.Var, kind) {
	v, ok := c.pass.TypesInfo.ObjectOf(id).(*types.Var)
	if !ok {
		return nil, notTracked
	}
	return v, c.kinds[v]
}

// leaks reports every box or capability still owned at pos.
func (c *checker) leaks(pos token.Pos, st state) {
	for v, f := range st {
		if f&owned == 0 {
			continue
		}
		definite := f == owned
		switch c.kinds[v] {
		case boxKind:
			if definite {
				c.report(pos, "box %s is not consumed before return", v.Name())
			} else {
				c.report(pos, "box %s is not consumed before return on some paths", v.Name())
			}
		case poolKind:
			if definite {
				c.report(pos, "pool capability %s is not discarded before return", v.Name())
			} else {
				c.report(pos, "pool capability %s is not discarded before return on some paths", v.Name())
			}
		}
	}
}

func (c *checker) stmts(list []ast.Stmt, st state) state {
	for _, s := range list {
		if st == nil {
			return nil
		}
		st = c.stmt(s, st)
	}
	return st
}

func (c *checker) stmt(s ast.Stmt, st state) state {
	switch s := s.(type) {
	case *ast.BlockStmt:
		return c.stmts(s.List, st)
	case *ast.LabeledStmt:
		return c.stmt(s.Stmt, st)
	case *ast.ExprStmt:
		call, ok := ast.Unparen(s.X).(*ast.CallExpr)
		if ok && isPanic(c.pass, call) {
			c.expr(s.X, st, false)
			return nil
		}
		c.expr(s.X, st, false)
		if ok && classify(c.pass.TypesInfo.TypeOf(call)) == boxKind {
			c.report(call.Pos(), "box returned by call is discarded")
		}
		return st
	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			return st
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			lhs := make([]ast.Expr, len(vs.Names))
			for i, n := range vs.Names {
				lhs[i] = n
			}
			c.assign(lhs, vs.Values, true, st)
		}
		return st
	case *ast.AssignStmt:
		if s.Tok != token.ASSIGN && s.Tok != token.DEFINE {
			for _, e := range s.Lhs {
				c.expr(e, st, false)
			}
			for _, e := range s.Rhs {
				c.expr(e, st, false)
			}
			return st
		}
		c.assign(s.Lhs, s.Rhs, s.Tok == token.DEFINE, st)
		return st
	case *ast.IncDecStmt:
		c.expr(s.X, st, false)
		return st
	case *ast.SendStmt:
		c.expr(s.Chan, st, false)
		c.expr(s.Value, st, true)
		return st
	case *ast.GoStmt:
		c.expr(s.Call, st, false)
		return st
	case *ast.DeferStmt:
		c.expr(s.Call, st, false)
		return st
	case *ast.ReturnStmt:
		for _, e := range s.Results {
			c.expr(e, st, true)
		}
		if !c.errorReturn(s) {
			c.leaks(s.Pos(), st)
		}
		return nil
	case *ast.BranchStmt:
		return c.branch(s, st)
	case *ast.IfStmt:
		if s.Init != nil {
			st = c.stmt(s.Init, st)
		}
		then, els := c.cond(s.Cond, st)
		then = c.stmts(s.Body.List, then)
		if s.Else != nil {
			els = c.stmt(s.Else, els)
		}
		return join(then, els)
	case *ast.ForStmt:
		return c.forStmt(s, st)
	case *ast.RangeStmt:
		return c.rangeStmt(s, st)
	case *ast.SwitchStmt:
		if s.Init != nil {
			st = c.stmt(s.Init, st)
		}
		if s.Tag != nil {
			c.expr(s.Tag, st, false)
		}
		return c.clauses(s.Body, st)
	case *ast.TypeSwitchStmt:
		if s.Init != nil {
			st = c.stmt(s.Init, st)
		}
		st = c.stmt(s.Assign, st)
		return c.clauses(s.Body, st)
	case *ast.SelectStmt:
		return c.clauses(s.Body, st)
	}
	return st
}

// errorReturn reports whether s leaves a Try body with a possibly non-nil
// error, in which case the scope's teardown releases what it still owns.
func (c *checker) errorReturn(s *ast.ReturnStmt) bool {
	if !c.tryBody || len(s.Results) == 0 {
		return false
	}
	id, ok := ast.Unparen(s.Results[len(s.Results)-1]).(*ast.Ident)
	return !ok || id.Name != "nil"
}

func (c *checker) branch(s *ast.BranchStmt, st state) state {
	switch s.Tok {
	case token.BREAK:
		if n := len(c.flows); n > 0 {
			f := c.flows[n-1]
			f.breaks = append(f.breaks, maps.Clone(st))
		}
	case token.CONTINUE:
		for i := len(c.flows) - 1; i >= 0; i-- {
			if f := c.flows[i]; f.loop {
				f.continues = append(f.continues, maps.Clone(st))
				break
			}
		}
	case token.FALLTHROUGH:
		return st
	}
	return nil
}

// clauses analyzes the bodies of a switch or select from the same entry.
func (c *checker) clauses(body *ast.BlockStmt, st state) state {
	f := &flow{}
	c.flows = append(c.flows, f)
	defer func() { c.flows = c.flows[:len(c.flows)-1] }()

	var out state
	exhaustive := false
	for _, cl := range body.List {
		in := maps.Clone(st)
		var list []ast.Stmt
		switch cl := cl.(type) {
		case *ast.CaseClause:
			for _, e := range cl.List {
				c.expr(e, in, false)
			}
			if cl.List == nil {
				exhaustive = true
			}
			list = cl.Body
		case *ast.CommClause:
			if cl.Comm != nil {
				in = c.stmt(cl.Comm, in)
			}
			exhaustive = true
			list = cl.Body
		}
		out = join(out, c.stmts(list, in))
	}
	if !exhaustive {
		out = join(out, st)
	}
	for _, b := range f.breaks {
		out = join(out, b)
	}
	return out
}

func (c *checker) forStmt(s *ast.ForStmt, st state) state {
	if s.Init != nil {
		st = c.stmt(s.Init, st)
	}
	in, out := st, state(nil)
	if s.Cond != nil {
		in, out = c.cond(s.Cond, st)
	}
	f := &flow{loop: true}
	c.flows = append(c.flows, f)
	end := c.stmts(s.Body.List, maps.Clone(in))
	for _, k := range f.continues {
		end = join(end, k)
	}
	if end != nil && s.Post != nil {
		end = c.stmt(s.Post, end)
	}
	c.flows = c.flows[:len(c.flows)-1]

	end = c.carried(s.Pos(), st, end)
	if end != nil && s.Cond != nil {
		_, exit := c.cond(s.Cond, end)
		out = join(out, exit)
	}
	for _, b := range f.breaks {
		out = join(out, b)
	}
	return out
}

func (c *checker) rangeStmt(s *ast.RangeStmt, st state) state {
	c.expr(s.X, st, false)
	in := maps.Clone(st)
	for _, e := range []ast.Expr{s.Key, s.Value} {
		if e == nil {
			continue
		}
		if v, k := c.define(e); k != notTracked {
			in[v] = owned
		}
	}
	f := &flow{loop: true}
	c.flows = append(c.flows, f)
	end := c.stmts(s.Body.List, in)
	for _, k := range f.continues {
		end = join(end, k)
	}
	c.flows = c.flows[:len(c.flows)-1]

	end = c.carried(s.Pos(), st, end)
	out := join(st, end)
	for _, b := range f.breaks {
		out = join(out, b)
	}
	return out
}

// carried reports boxes and capabilities owned before the loop at pos and
// consumed by its body without being replaced, which a second iteration
// would consume again.
func (c *checker) carried(pos token.Pos, entry, end state) state {
	if end == nil {
		return nil
	}
	for v, f := range entry {
		if f != owned || v.Pos() >= pos || end[v]&consumed == 0 {
			continue
		}
		at := c.consumedAt[v]
		if !at.IsValid() {
			at = pos
		}
		switch c.kinds[v] {
		case boxKind:
			c.report(at, "box %s is consumed inside a loop", v.Name())
		case poolKind:
			c.report(at, "pool capability %s is discarded inside a loop", v.Name())
		}
		// One diagnostic per variable.
		delete(c.kinds, v)
	}
	return end
}

// cond evaluates a condition and returns the states on its true and false
// branches, narrowing boxes compared against nil.
func (c *checker) cond(e ast.Expr, st state) (state, state) {
	c.expr(e, st, false)
	t, f := maps.Clone(st), maps.Clone(st)
	bin, ok := ast.Unparen(e).(*ast.BinaryExpr)
	if !ok || (bin.Op != token.EQL && bin.Op != token.NEQ) {
		return t, f
	}
	x := bin.X
	if isNil(c.pass, x) {
		x = bin.Y
	} else if !isNil(c.pass, bin.Y) {
		return t, f
	}
	v, k := c.tracked(x)
	if k != boxKind {
		return t, f
	}
	isNilBranch, notNilBranch := t, f
	if bin.Op == token.NEQ {
		isNilBranch, notNilBranch = f, t
	}
	isNilBranch[v] = empty
	if g := notNilBranch[v] &^ empty; g != 0 {
		notNilBranch[v] = g
	}
	return t, f
}

// define registers the variable declared or assigned by e, if it is a box
// or a capability produced by Dup, and returns it.
func (c *checker) define(e ast.Expr) (*types.Var, kind) {
	id, ok := ast.Unparen(e).(*ast.Ident)
	if !ok || id.Name == "_" {
		return nil, notTracked
	}
	if v, ok := c.pass.TypesInfo.Defs[id].(*types.Var); ok && v != nil {
		if classify(v.Type()) == boxKind {
			c.kinds[v] = boxKind
			return v, boxKind
		}
		return v, notTracked
	}
	return c.tracked(id)
}

func (c *checker) assign(lhs, rhs []ast.Expr, define bool, st state) {
	// x, y := p.Dup()
	if len(rhs) == 1 && len(lhs) > 1 {
		call, _ := ast.Unparen(rhs[0]).(*ast.CallExpr)
		dup := call != nil && c.isPoolMethod(call, "Dup")
		c.expr(rhs[0], st, false)
		for _, e := range lhs {
			if dup {
				if id, ok := ast.Unparen(e).(*ast.Ident); ok && id.Name != "_" {
					if v, ok := c.pass.TypesInfo.ObjectOf(id).(*types.Var); ok {
						c.kinds[v] = poolKind
						c.overwrite(id, v, st)
						st[v] = owned
						continue
					}
				}
				c.report(e.Pos(), "pool capability returned by Dup is discarded")
				continue
			}
			c.target(e, define, st, true)
		}
		return
	}
	for i, e := range lhs {
		if i >= len(rhs) {
			// var b *offheap.Box[T]
			if v, k := c.define(e); k == boxKind {
				st[v] = empty
			}
			continue
		}
		r := rhs[i]
		if id, ok := ast.Unparen(e).(*ast.Ident); ok && id.Name == "_" {
			c.expr(r, st, true)
			if classify(c.pass.TypesInfo.TypeOf(r)) == boxKind {
				c.report(r.Pos(), "box is discarded by assignment to _")
			}
			continue
		}
		if _, k := c.trackedTarget(e); k == notTracked {
			// Stores into fields, slices, maps and untracked variables move boxes.
			c.expr(e, st, false)
			c.expr(r, st, true)
			continue
		}
		c.expr(r, st, true)
		c.target(e, define, st, !isNil(c.pass, r))
	}
}

// trackedTarget is define without side effects, for deciding how to evaluate
// the right-hand side.
func (c *checker) trackedTarget(e ast.Expr) (*types.Var, kind) {
	id, ok := ast.Unparen(e).(*ast.Ident)
	if !ok || id.Name == "_" {
		return nil, notTracked
	}
	if v, ok := c.pass.TypesInfo.Defs[id].(*types.Var); ok && v != nil {
		return v, classify(v.Type())
	}
	return c.tracked(id)
}

// target records an assignment of a box (or nil) to a tracked variable.
func (c *checker) target(e ast.Expr, define bool, st state, holds bool) {
	id, ok := ast.Unparen(e).(*ast.Ident)
	if !ok {
		c.expr(e, st, false)
		return
	}
	v, k := c.define(id)
	if k != boxKind {
		return
	}
	if _, isNew := c.pass.TypesInfo.Defs[id]; !isNew || !define {
		c.overwrite(id, v, st)
	}
	if holds {
		st[v] = owned
	} else {
		st[v] = empty
	}
}

func (c *checker) overwrite(id *ast.Ident, v *types.Var, st state) {
	if st[v]&owned == 0 {
		return
	}
	switch c.kinds[v] {
	case boxKind:
		c.report(id.Pos(), "box %s is overwritten while still owned", v.Name())
	case poolKind:
		c.report(id.Pos(), "pool capability %s is overwritten while still owned", v.Name())
	}
}

// use checks that a tracked variable still owns something and, when move
// is set, records that it no longer does.
func (c *checker) use(id *ast.Ident, v *types.Var, k kind, st state, move bool) {
	f, ok := st[v]
	if !ok {
		return
	}
	if f&consumed != 0 {
		switch {
		case k == boxKind && f == consumed:
			c.report(id.Pos(), "use of consumed box %s", v.Name())
		case k == boxKind:
			c.report(id.Pos(), "box %s may have been consumed", v.Name())
		case f == consumed:
			c.report(id.Pos(), "use of discarded pool capability %s", v.Name())
		default:
			c.report(id.Pos(), "pool capability %s may have been discarded", v.Name())
		}
	}
	if move && f&owned != 0 {
		st[v] = f&^owned | consumed
		c.consumedAt[v] = id.Pos()
	}
}

func (c *checker) isPoolMethod(call *ast.CallExpr, name string) bool {
	sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}
	return classify(c.pass.TypesInfo.TypeOf(sel.X)) == poolKind
}

// expr walks e. move marks e as a consuming position: the value flows into
// a call, a return, a store or a send.
func (c *checker) expr(e ast.Expr, st state, move bool) {
	switch e := e.(type) {
	case nil:
	case *ast.Ident:
		if v, k := c.tracked(e); k != notTracked {
			c.use(e, v, k, st, move && k == boxKind)
		}
	case *ast.ParenExpr:
		c.expr(e.X, st, move)
	case *ast.CallExpr:
		c.call(e, st)
	case *ast.SelectorExpr:
		c.expr(e.X, st, false)
	case *ast.CompositeLit:
		for _, elt := range e.Elts {
			c.expr(elt, st, true)
		}
	case *ast.KeyValueExpr:
		c.expr(e.Key, st, false)
		c.expr(e.Value, st, move)
	case *ast.UnaryExpr:
		c.expr(e.X, st, false)
	case *ast.BinaryExpr:
		// Comparisons against nil inspect no contents.
		if isNil(c.pass, e.X) || isNil(c.pass, e.Y) {
			return
		}
		c.expr(e.X, st, false)
		c.expr(e.Y, st, false)
	case *ast.StarExpr:
		c.expr(e.X, st, false)
	case *ast.IndexExpr:
		c.expr(e.X, st, false)
		c.expr(e.Index, st, false)
	case *ast.IndexListExpr:
		c.expr(e.X, st, false)
	case *ast.SliceExpr:
		c.expr(e.X, st, false)
		c.expr(e.Low, st, false)
		c.expr(e.High, st, false)
		c.expr(e.Max, st, false)
	case *ast.TypeAssertExpr:
		c.expr(e.X, st, false)
	case *ast.FuncLit:
		c.capture(e, st)
	}
}

func (c *checker) call(call *ast.CallExpr, st state) {
	if tv, ok := c.pass.TypesInfo.Types[call.Fun]; ok && tv.IsType() {
		// Conversion.
		for _, a := range call.Args {
			c.expr(a, st, false)
		}
		return
	}
	if sel, ok := ast.Unparen(call.Fun).(*ast.SelectorExpr); ok {
		if id, ok := ast.Unparen(sel.X).(*ast.Ident); ok {
			if v, k := c.trackedIdent(id); k == poolKind {
				c.use(id, v, k, st, false)
				if sel.Sel.Name == "Discard" || sel.Sel.Name == "Dup" {
					st[v] = st[v]&^owned | consumed
					c.consumedAt[v] = sel.Sel.Pos()
				}
				return
			}
		}
	}
	c.expr(call.Fun, st, false)
	borrow := offheapFunc(c.pass, call) == "Adopt"
	for _, a := range call.Args {
		c.expr(a, st, !borrow)
	}
}

// capture treats every box a closure refers to as moved into it.
// Capabilities are borrowed.
func (c *checker) capture(lit *ast.FuncLit, st state) {
	seen := make(map[*types.Var]bool)
	ast.Inspect(lit.Body, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		if v, k := c.trackedIdent(id); k != notTracked && !seen[v] {
			seen[v] = true
			c.use(id, v, k, st, k == boxKind)
		}
		return true
	})
}

func isNil(pass *analysis.Pass, e ast.Expr) bool {
	tv, ok := pass.TypesInfo.Types[e]
	return ok && tv.IsNil()
}

func isPanic(pass *analysis.Pass, call *ast.CallExpr) bool {
	id, ok := ast.Unparen(call.Fun).(*ast.Ident)
	if !ok {
		return false
	}
	b, ok := pass.TypesInfo.Uses[id].(*types.Builtin)
	return ok && b.Name() == "panic"
}
