package domain

import "errors"

// Domain errors. Services wrap these with context; callers match with errors.Is.
var (
	ErrPermissionDenied       = errors.New("permission denied")
	ErrUnknownRole            = errors.New("unknown role")
	ErrOwnerImmutable         = errors.New("owner membership cannot be changed")
	ErrDuplicateMember        = errors.New("identity is already a member")
	ErrAlreadyMember          = errors.New("email already belongs to a member")
	ErrDuplicatePendingInvite = errors.New("a pending invitation already exists for this email")
	ErrInvitationNotPending   = errors.New("invitation is not pending")
	ErrInvitationExpired      = errors.New("invitation has expired")
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
)

// IsDomainError reports whether err is one of the typed domain failures
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrPermissionDenied, ErrUnknownRole, ErrOwnerImmutable, ErrDuplicateMember,
		ErrAlreadyMember, ErrDuplicatePendingInvite, ErrInvitationNotPending,
		ErrInvitationExpired, ErrNotFound, ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
