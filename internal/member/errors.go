package member

import "errors"

// Sentinel errors for membership mutations. The API layer matches these
// with errors.Is to pick an HTTP status and machine code.
var (
	ErrCannotModifySelf = errors.New("cannot modify your own membership")
	ErrCannotRemoveSelf = errors.New("cannot remove yourself from the organization")
	ErrMemberNotFound   = errors.New("member not found in organization")
	ErrLastOwner        = errors.New("organization must keep at least one active owner")
	ErrPermissionDenied = errors.New("insufficient permissions for this action")
	ErrNotImplemented   = errors.New("operation is not implemented")
)
