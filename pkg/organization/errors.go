package organization

import "errors"

var (
	ErrInvalidMembershipStatus = errors.New("invalid membership status")
	ErrInvalidEmail            = errors.New("invitation email is required")

	ErrOrganizationNotFound = errors.New("organization not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrInvitationNotFound   = errors.New("invitation not found")

	ErrInvitationExpired = errors.New("invitation has expired")
	ErrPermissionDenied  = errors.New("permission denied")

	ErrEmptyTokenSecret       = errors.New("invitation token secret is required")
	ErrInvalidInvitationToken = errors.New("invalid invitation token")
)
