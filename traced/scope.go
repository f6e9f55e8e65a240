package traced

import "github.com/tracekit/trackevent/internal/assert"

// checkedScope enforces the write discipline over a tree of nested value
// writers: at any instant exactly one node along a root-to-leaf path may
// write. Creating a child deactivates the parent; resetting the child
// reactivates it. Reset is idempotent, and a reset scope fails loudly if
// written through again.
//
// The guard only exists under strict mode. With strict mode off, enterScope
// returns nil and every method is a nil-receiver no-op; the real discipline
// is carried by the consume-once shape of the writer API.
type checkedScope struct {
	parent  *checkedScope
	active  bool
	deleted bool
}

// enterScope activates a new scope as a child of parent. The parent, if any,
// must currently be the active scope.
func enterScope(parent *checkedScope) *checkedScope {
	if !assert.Enabled() {
		return nil
	}
	if parent != nil {
		assert.That(!parent.deleted, "write scope created under a destroyed scope")
		assert.That(parent.active, "write scope created under an inactive scope; finish the current nested writer first")
		parent.active = false
	}
	return &checkedScope{parent: parent, active: true}
}

// check asserts that this scope is the one currently allowed to write.
func (s *checkedScope) check() {
	if s == nil {
		return
	}
	assert.That(!s.deleted, "write through a destroyed scope")
	assert.That(s.active, "write outside the active scope; a nested writer is still open")
}

// reset deactivates this scope and reactivates the parent. Safe to call more
// than once.
func (s *checkedScope) reset() {
	if s == nil || s.deleted {
		return
	}
	s.deleted = true
	s.active = false
	if s.parent != nil {
		s.parent.active = true
	}
}
