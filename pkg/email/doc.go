// Package email sends transactional email behind the EmailSender interface,
// so billing notifications do not care which provider delivers them.
//
// Two implementations ship with the service. PostmarkClient delivers through
// the Postmark API (github.com/mrz1836/postmark) and is the production
// sender; DevSender writes each message as timestamped HTML and JSON files
// to a local directory, which is enough to inspect dunning and seat-overage
// emails during development without a provider account.
//
//	client, err := email.NewPostmarkClient(email.Config{
//	    PostmarkServerToken:  serverToken,
//	    PostmarkAccountToken: accountToken,
//	    SenderEmail:          "noreply@shelfmark.app",
//	    SupportEmail:         "support@shelfmark.app",
//	})
//	if err != nil {
//	    return err
//	}
//	err = client.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   member.Email,
//	    Subject:  "Payment failed",
//	    BodyHTML: body,
//	    Tag:      "billing-payment-failed",
//	})
//
// Both senders validate SendEmailParams before doing any work. Failures wrap
// ErrInvalidConfig, ErrInvalidParams, or ErrFailedToSendEmail so callers can
// branch with errors.Is. MustNewPostmarkClient panics on bad configuration
// for use during startup wiring.
package email
