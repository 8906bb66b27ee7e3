package queue

import "errors"

// ErrClaimLost indicates a write-back arrived after the item's lock was
// reclaimed or taken over by another worker. The caller must treat its work
// as if it never started; the item will be retried under its new owner.
var ErrClaimLost = errors.New("claim lost")

// ErrNotFound indicates the requested item does not exist.
var ErrNotFound = errors.New("queue item not found")

// ErrInvalidTransition indicates an operator action targeted an item whose
// current status does not permit it.
var ErrInvalidTransition = errors.New("invalid status transition")
