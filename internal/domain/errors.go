package domain

import "errors"

// Membership engine failures. These are plain return values so adapters
// can map them to protocol responses without unwrapping chains.
var (
	ErrAlreadyMember     = errors.New("already a member")
	ErrBanned            = errors.New("banned from this room")
	ErrInvalidInvite     = errors.New("invalid invite code")
	ErrAlreadyRequested  = errors.New("join request already pending")
	ErrNoSuchRequest     = errors.New("no pending request found")
	ErrForbidden         = errors.New("not authorized")
	ErrCannotRemoveAdmin = errors.New("cannot remove admin, transfer admin rights first")
	ErrTransferRequired  = errors.New("transfer admin rights before leaving")
	ErrNotAMember        = errors.New("not a member of this room")
	ErrNameEmpty         = errors.New("room name empty")
)

// Storage-level failures surfaced by the repositories.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateName   = errors.New("room name already taken")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrVersionConflict = errors.New("room was modified concurrently")
)
