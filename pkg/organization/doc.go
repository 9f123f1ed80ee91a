// Package organization manages organizations, their memberships, and the
// invitation lifecycle for seat-based team plans.
//
// Membership changes ripple into two neighboring systems: entitlement
// caches must be invalidated so role and plan changes take effect
// immediately, and billing must be told to reconcile purchased seats
// against the active member count. The service owns those triggers so
// callers cannot forget them.
//
// # Core Components
//
//   - Service: invitation, acceptance, removal, and role-change flows with
//     role hierarchy enforcement (member < admin < owner).
//   - Repository: persistence contract, with PostgreSQL and in-memory
//     implementations.
//   - SignedTokenGenerator: HMAC-signed invitation tokens.
//   - ReconcilingSeatPublisher: bridges membership changes to billing seat
//     reconciliation.
//
// # Quick Start
//
//	repo := organization.NewPostgresRepository(pool)
//	tokens, err := organization.NewSignedTokenGenerator(cfg.InviteTokenSecret)
//	if err != nil {
//		return err
//	}
//	seats := organization.NewReconcilingSeatPublisher(repo, reconcile, logger)
//	svc := organization.NewService(repo, organization.NewSlogAuditLogger(logger), seats, tokens, entitlements)
//
//	invitation, err := svc.InviteMember(ctx, organization.InviteInput{
//		OrganizationID: "org_1",
//		InviterID:      "user_1",
//		Email:          "new.member@example.com",
//		Role:           entitlement.RoleMember,
//	})
//
// # Role Rules
//
// Inviters assign roles at or below their own rank. Owners can only be
// removed or re-roled by other owners, and only owners promote to owner.
// Members may always remove themselves. Removal revokes the membership
// rather than deleting it, so the audit trail keeps the full history.
//
// # Error Handling
//
// Operations return sentinel errors usable with errors.Is:
// ErrOrganizationNotFound, ErrMembershipNotFound, ErrInvitationNotFound
// for missing records; ErrPermissionDenied for role rule violations;
// ErrInvitationExpired for stale tokens.
package organization
