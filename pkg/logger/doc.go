// Package logger builds configured *slog.Logger instances for the service.
//
// New assembles a text or JSON handler from functional options, wraps it in
// LogHandlerDecorator so registered ContextExtractor callbacks can pull
// values (such as the request ID) out of context.Context on every record,
// and returns a ready-to-use logger. Environment presets — WithDevelopment,
// WithStaging, WithProduction — bundle the format, level, and standard
// service attributes each environment expects, and WithEnvironment picks
// the preset from a runtime environment string.
//
// Attribute constructors in attr.go (Error, UserID, OrganizationID,
// Duration, Component, and friends) keep key naming consistent across
// packages. Error and Errors return an empty attribute for nil errors, so
// they can be passed unconditionally:
//
//	log := logger.New(
//		logger.WithProduction("shelfmarkd"),
//		logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "webhook processed",
//		logger.EventType(evt.Type),
//		logger.Duration(time.Since(start)),
//	)
package logger
