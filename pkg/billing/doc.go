// Package billing manages the purchase lifecycle for Shelfmark subscriptions:
// checkout sessions, provider webhooks, invoices, payment grace periods, and
// seat reconciliation for per-seat team plans.
//
// The package never talks to a payment provider UI itself. It hands customers
// to a hosted checkout or portal through the Provider interface and keeps a
// normalized local mirror of subscription state that the entitlement package
// reads. Every state change invalidates the affected entitlement cache
// entries so feature access reflects billing reality within one cache round
// trip.
//
// # Core Components
//
// Service orchestrates all billing flows. Repository persists purchase
// intents, subscriptions, invoices, and webhook receipts (PostgresRepository
// for production, MemoryRepository for tests). Provider abstracts the payment
// processor (PaddleProvider, or SandboxProvider for local development).
// Notifier delivers payment-failure and cancellation notices. GraceSweeper
// cancels subscriptions whose past-due grace period has lapsed.
//
// # Quick Start
//
//	repo := billing.NewPostgresRepository(pool)
//	provider, err := billing.NewPaddleProvider(cfg.Paddle)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc := billing.NewService(repo, provider,
//		billing.NewLogNotifier(logger),
//		billing.NewSlogEventLogger(logger),
//		entitlements,
//	)
//
//	session, err := svc.CreateCheckoutSession(ctx, billing.CheckoutInput{
//		CustomerType:    billing.CustomerUser,
//		CustomerID:      userID,
//		PlanKey:         entitlement.PlanIndividualPro,
//		BillingInterval: entitlement.BillingIntervalMonthly,
//		SeatQuantity:    1,
//	})
//	if err != nil {
//		return err
//	}
//	http.Redirect(w, r, session.CheckoutURL, http.StatusSeeOther)
//
// Webhook deliveries are idempotent: each event ID is recorded once and
// replays are absorbed without reprocessing.
//
//	if err := svc.HandleWebhook(ctx, event); err != nil {
//		// Return a non-2xx status so the provider retries.
//	}
//
// # Error Handling
//
// The package uses sentinel errors for expected failures:
//
//	_, err := svc.ReconcileSeats(ctx, subscriptionID, memberCount)
//	switch {
//	case errors.Is(err, billing.ErrSubscriptionNotFound):
//		// unknown subscription
//	case errors.Is(err, billing.ErrInvalidMemberCount):
//		// negative member count
//	}
package billing
