package organization

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. All returned records are copies; mutating them does not
// affect stored state.
type MemoryRepository struct {
	mu            sync.RWMutex
	organizations map[string]Organization
	memberships   map[string]Membership
	invitations   map[string]Invitation
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		organizations: make(map[string]Organization),
		memberships:   make(map[string]Membership),
		invitations:   make(map[string]Invitation),
	}
}

// SaveOrganization inserts or replaces an organization record. Not part of
// the Repository interface; organizations are provisioned outside the
// membership lifecycle.
func (r *MemoryRepository) SaveOrganization(_ context.Context, org *Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.organizations[org.ID] = copyOrganization(*org)
	return nil
}

func (r *MemoryRepository) GetOrganization(_ context.Context, organizationID string) (*Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.organizations[organizationID]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	org = copyOrganization(org)
	return &org, nil
}

func (r *MemoryRepository) GetMembership(_ context.Context, organizationID, userID string) (*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.memberships[membershipKey(organizationID, userID)]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	m = copyMembership(m)
	return &m, nil
}

func (r *MemoryRepository) SaveMembership(_ context.Context, membership *Membership) (*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyMembership(*membership)
	if stored.ID == "" {
		stored.ID = newMembershipID()
	}
	r.memberships[membershipKey(stored.OrganizationID, stored.UserID)] = stored

	stored = copyMembership(stored)
	return &stored, nil
}

func (r *MemoryRepository) DeleteMembership(_ context.Context, organizationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.memberships, membershipKey(organizationID, userID))
	return nil
}

func (r *MemoryRepository) CountActiveMembers(_ context.Context, organizationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, m := range r.memberships {
		if m.OrganizationID == organizationID && m.ConsumesSeat() {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) CreateInvitation(_ context.Context, invitation *Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invitations[invitation.Token] = *invitation
	return nil
}

func (r *MemoryRepository) GetInvitation(_ context.Context, token string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invitations[token]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	return &inv, nil
}

func (r *MemoryRepository) DeleteInvitation(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invitations, token)
	return nil
}

func membershipKey(organizationID, userID string) string {
	return organizationID + "|" + userID
}

func newMembershipID() string {
	id := uuid.New()
	return "mem_" + hex.EncodeToString(id[:])
}

func copyOrganization(org Organization) Organization {
	if org.PolicyFlags.RetentionDays != nil {
		days := *org.PolicyFlags.RetentionDays
		org.PolicyFlags.RetentionDays = &days
	}
	return org
}

func copyMembership(m Membership) Membership {
	m.InvitedAt = copyTime(m.InvitedAt)
	m.AcceptedAt = copyTime(m.AcceptedAt)
	m.RevokedAt = copyTime(m.RevokedAt)
	return m
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
