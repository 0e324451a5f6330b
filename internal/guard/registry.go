package guard

import "github.com/mcoot/hardcorelimbo/internal/model"

// Registry tracks in-flight transitions so that repeated or self-caused
// events are absorbed rather than acted on twice.
//
// A Registry is not safe for concurrent use. It must only be touched from the
// timeline goroutine that owns it.
type Registry struct {
	pendingTransfer map[model.PlayerID]struct{}
	selfStateChange map[model.PlayerID]struct{}
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		pendingTransfer: make(map[model.PlayerID]struct{}),
		selfStateChange: make(map[model.PlayerID]struct{}),
	}
}

// MarkPendingTransfer records that id is scheduled for transfer.
// It returns false if a transfer was already pending.
func (r *Registry) MarkPendingTransfer(id model.PlayerID) bool {
	if _, ok := r.pendingTransfer[id]; ok {
		return false
	}
	r.pendingTransfer[id] = struct{}{}
	return true
}

// IsPendingTransfer reports whether a transfer is scheduled for id
func (r *Registry) IsPendingTransfer(id model.PlayerID) bool {
	_, ok := r.pendingTransfer[id]
	return ok
}

// ClearPendingTransfer drops the scheduled transfer mark for id
func (r *Registry) ClearPendingTransfer(id model.PlayerID) {
	delete(r.pendingTransfer, id)
}

// ExpectStateChange records that the next mode change for id is our own doing
func (r *Registry) ExpectStateChange(id model.PlayerID) {
	r.selfStateChange[id] = struct{}{}
}

// ConsumeExpectedStateChange reports whether a mode change was expected for id,
// removing the expectation so later changes are treated as external.
func (r *Registry) ConsumeExpectedStateChange(id model.PlayerID) bool {
	if _, ok := r.selfStateChange[id]; !ok {
		return false
	}
	delete(r.selfStateChange, id)
	return true
}

// Clear drops every entry for id
func (r *Registry) Clear(id model.PlayerID) {
	delete(r.pendingTransfer, id)
	delete(r.selfStateChange, id)
}

// Len returns the number of identities with any entry
func (r *Registry) Len() int {
	n := len(r.pendingTransfer)
	for id := range r.selfStateChange {
		if _, ok := r.pendingTransfer[id]; !ok {
			n++
		}
	}
	return n
}
