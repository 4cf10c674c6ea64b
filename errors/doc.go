/*
Package errors provides semantic error types for the tablestore library.

The package defines common failure scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound      = errors.New("row not found")
	    ErrAlreadyExists = errors.New("row already exists")
	    ErrInvalidInput  = errors.New("invalid input")
	    ErrPrecondition  = errors.New("precondition violated")
	    ErrStoreClosed   = errors.New("store closed")
	)

Usage:

	n, err := store.ExecuteTransaction(ctx, entries, logger)
	if err != nil {
	    if errors.IsNotFound(err) {
	        // a Modified or Deleted entry targeted a row that is gone
	    }
	    return n, err
	}

Backends return these errors from Table operations; the registry wraps them
with the entity type and lifecycle state of the failing entry. A
PreconditionError is never returned: the registry panics with it, since it
signals a bug in the calling change-tracking layer.
*/
package errors
