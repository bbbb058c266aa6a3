// Package flatten reconstructs nested parent objects from flat, ordered
// multi-level left-join row streams.
//
// Input rows must arrive sorted ascending by parent id, then by immediate
// child id. The fold keeps a single current parent and a last-seen id per
// nesting level; a parent is emitted when the stream moves to the next
// parent id, so output preserves first-appearance order.
package flatten

// Spec describes how one joined row shape folds into nested parents.
//
// R is the decoded row, P the assembled parent object, PID/CID/GID the
// comparable key types of the three nesting levels. ChildID reports ok=false
// when the left join matched no child (all child columns NULL); such rows
// still produce a parent with an empty child list. GrandchildID may be nil
// for two-level joins.
type Spec[R any, P any, PID comparable, CID comparable, GID comparable] struct {
	ParentID  func(R) PID
	NewParent func(R) P

	ChildID  func(R) (CID, bool)
	AddChild func(*P, R)

	GrandchildID  func(R) (GID, bool)
	AddGrandchild func(*P, R)
}

// Accumulator folds rows pushed one at a time. The zero value is not usable;
// construct with New.
type Accumulator[R any, P any, PID comparable, CID comparable, GID comparable] struct {
	spec Spec[R, P, PID, CID, GID]

	cur    *P
	curID  PID
	hasCur bool

	lastChild CID
	hasChild  bool

	lastGrand GID
	hasGrand  bool

	out []P
}

// New returns an empty accumulator for the given fold spec.
func New[R any, P any, PID comparable, CID comparable, GID comparable](
	spec Spec[R, P, PID, CID, GID],
) *Accumulator[R, P, PID, CID, GID] {
	return &Accumulator[R, P, PID, CID, GID]{spec: spec}
}

// Push consumes the next row of the ordered stream.
func (a *Accumulator[R, P, PID, CID, GID]) Push(row R) {
	pid := a.spec.ParentID(row)
	if !a.hasCur || pid != a.curID {
		a.flush()
		p := a.spec.NewParent(row)
		a.cur = &p
		a.curID = pid
		a.hasCur = true
		a.hasChild = false
		a.hasGrand = false
	}

	cid, ok := a.spec.ChildID(row)
	if ok {
		if !a.hasChild || cid != a.lastChild {
			a.spec.AddChild(a.cur, row)
			a.lastChild = cid
			a.hasChild = true
			a.hasGrand = false
		}
	}

	if a.spec.GrandchildID == nil {
		return
	}
	gid, ok := a.spec.GrandchildID(row)
	if !ok {
		return
	}
	// A grandchild without a child row is a malformed join: it cannot be
	// attributed to anything, so it is dropped.
	if !a.hasChild {
		return
	}
	if a.hasGrand && gid == a.lastGrand {
		return
	}
	a.spec.AddGrandchild(a.cur, row)
	a.lastGrand = gid
	a.hasGrand = true
}

// Done flushes the final parent and returns all assembled objects.
// A zero-row stream yields an empty (nil) slice.
func (a *Accumulator[R, P, PID, CID, GID]) Done() []P {
	a.flush()
	return a.out
}

func (a *Accumulator[R, P, PID, CID, GID]) flush() {
	if !a.hasCur {
		return
	}
	a.out = append(a.out, *a.cur)
	a.cur = nil
	a.hasCur = false
}

// Fold runs the whole fold over a row slice.
func Fold[R any, P any, PID comparable, CID comparable, GID comparable](
	spec Spec[R, P, PID, CID, GID], rows []R,
) []P {
	acc := New(spec)
	for _, r := range rows {
		acc.Push(r)
	}
	return acc.Done()
}
