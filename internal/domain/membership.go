package domain

import "strings"

// JoinStatus is the outcome of a successful Join call.
type JoinStatus int

const (
	JoinStatusJoined JoinStatus = iota
	JoinStatusPending
)

func (s JoinStatus) String() string {
	if s == JoinStatusPending {
		return "pending"
	}
	return "joined"
}

// Join applies the join rules for user against this room. A valid invite
// code admits directly even when the room is approval-gated; without one
// an approval-gated room queues the user instead.
func (r *Room) Join(user Identity, inviteCode string) (JoinStatus, error) {
	if r.IsMember(user.UserID) {
		return 0, ErrAlreadyMember
	}
	if r.IsBanned(user.UserID) {
		return 0, ErrBanned
	}
	if r.IsPrivate && inviteCode != r.InviteCode {
		return 0, ErrInvalidInvite
	}
	validInvite := inviteCode != "" && inviteCode == r.InviteCode
	if r.Settings.RequireApproval && !validInvite {
		if r.isPending(user.UserID) {
			return 0, ErrAlreadyRequested
		}
		r.PendingRequests = append(r.PendingRequests, PendingRequest{
			UserID:      user.UserID,
			Username:    user.Username,
			RequestedAt: nowUTC(),
		})
		return JoinStatusPending, nil
	}
	r.addMember(user.UserID, user.Username, RoleMember)
	return JoinStatusJoined, nil
}

// ApproveRequest moves target from the pending queue into the membership
// list. Returns the approved user's display name for notifications.
func (r *Room) ApproveRequest(actor, target UserID) (string, error) {
	if !r.CanModerate(actor) {
		return "", ErrForbidden
	}
	for _, p := range r.PendingRequests {
		if p.UserID == target {
			r.removePending(target)
			r.addMember(p.UserID, p.Username, RoleMember)
			return p.Username, nil
		}
	}
	return "", ErrNoSuchRequest
}

// RejectRequest drops target's pending request. Absence is not an error;
// the returned name falls back to "User" when nothing better is known.
func (r *Room) RejectRequest(actor, target UserID) (string, error) {
	if !r.CanModerate(actor) {
		return "", ErrForbidden
	}
	username := "User"
	for _, p := range r.PendingRequests {
		if p.UserID == target {
			username = p.Username
			break
		}
	}
	r.removePending(target)
	return username, nil
}

// RemoveMember removes target from the room. The admin may remove anyone
// but themselves; anyone may remove themselves. An admin leaving as the
// last member signals room deletion via the returned flag; otherwise the
// admin must transfer rights first.
func (r *Room) RemoveMember(actor, target UserID) (roomDeleted bool, err error) {
	isAdmin := actor == r.AdminID
	isSelf := actor == target
	if !isAdmin && !isSelf {
		return false, ErrForbidden
	}
	if target == r.AdminID && !isSelf {
		return false, ErrCannotRemoveAdmin
	}
	if isSelf && isAdmin {
		if len(r.Members) == 1 {
			return true, nil
		}
		return false, ErrTransferRequired
	}
	r.removeMember(target)
	return false, nil
}

// BanUser removes target from the room and records the ban. Idempotent:
// banning an already banned user changes nothing. The pending queue is
// cleared too so banned and pending stay disjoint. The admin cannot be
// banned, not even by themselves; that would leave the room headless.
func (r *Room) BanUser(actor, target UserID) error {
	if actor != r.AdminID {
		return ErrForbidden
	}
	if target == r.AdminID {
		return ErrCannotRemoveAdmin
	}
	r.removeMember(target)
	r.removePending(target)
	if !r.IsBanned(target) {
		r.BannedUsers = append(r.BannedUsers, target)
	}
	return nil
}

// TransferAdmin hands the admin seat to an existing member. The former
// admin drops to plain member; every other role is untouched.
func (r *Room) TransferAdmin(actor, newAdmin UserID) error {
	if actor != r.AdminID {
		return ErrForbidden
	}
	if !r.IsMember(newAdmin) {
		return ErrNotAMember
	}
	r.AdminID = newAdmin
	for i := range r.Members {
		switch r.Members[i].UserID {
		case newAdmin:
			r.Members[i].Role = RoleAdmin
		case actor:
			r.Members[i].Role = RoleMember
		}
	}
	return nil
}

// UpdateDetails applies only the supplied fields. A supplied name must be
// non-empty after trimming.
func (r *Room) UpdateDetails(actor UserID, name, description *string) error {
	if actor != r.AdminID {
		return ErrForbidden
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return ErrNameEmpty
		}
		r.Name = trimmed
	}
	if description != nil {
		r.Description = *description
	}
	return nil
}
