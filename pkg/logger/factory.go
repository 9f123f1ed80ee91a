package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shelfmark/shelfmark/pkg/environment"
)

// Format selects the handler's output encoding.
type Format string

const (
	// FormatJSON emits one JSON object per record, for log aggregation.
	FormatJSON Format = "json"
	// FormatText emits key=value lines, for reading during development.
	FormatText Format = "text"
)

type config struct {
	level          slog.Level
	format         Format
	output         io.Writer
	attrs          []slog.Attr
	handlerOptions *slog.HandlerOptions
	extractors     []ContextExtractor
}

// Option configures the logger built by New.
type Option func(*config)

// WithLevel sets the minimum record level.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output encoding. Unknown formats panic: a
// misconfigured logger should stop startup, not silently log wrong.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("logger: unknown format %q (want %q or %q)", f, FormatJSON, FormatText))
		}
	}
}

// WithTextFormatter selects key=value output.
func WithTextFormatter() Option {
	return func(c *config) { c.format = FormatText }
}

// WithJSONFormatter selects JSON output.
func WithJSONFormatter() Option {
	return func(c *config) { c.format = FormatJSON }
}

// WithOutput redirects records to w. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithHandlerOptions passes raw slog.HandlerOptions through to the handler,
// replacing the level configured by WithLevel. Nil is ignored.
func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(c *config) {
		if opts != nil {
			c.handlerOptions = opts
		}
	}
}

// WithAttr attaches static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		if len(attrs) > 0 {
			c.attrs = append(c.attrs, attrs...)
		}
	}
}

// WithContextExtractors registers callbacks that pull request-scoped
// attributes out of the context on every log call. Nil extractors are
// dropped.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithContextValue registers an extractor that logs the context value under
// key as the attribute name.
func WithContextValue(name string, key any) Option {
	return func(c *config) {
		if name == "" || key == nil {
			return
		}
		c.extractors = append(c.extractors, func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(key); v != nil {
				return slog.Any(name, v), true
			}
			return slog.Attr{}, false
		})
	}
}

// WithDevelopment presets text output at debug level and tags records with
// the service name and environment.
func WithDevelopment(service string) Option {
	return presetOption(service, slog.LevelDebug, FormatText, environment.Development)
}

// WithStaging presets JSON output at info level.
func WithStaging(service string) Option {
	return presetOption(service, slog.LevelInfo, FormatJSON, environment.Staging)
}

// WithProduction presets JSON output at info level.
func WithProduction(service string) Option {
	return presetOption(service, slog.LevelInfo, FormatJSON, environment.Production)
}

// WithEnvironment picks the preset matching an APP_ENV value; anything
// unrecognized gets the development preset.
func WithEnvironment(env string, service string) Option {
	switch env {
	case string(environment.Production), "prod":
		return WithProduction(service)
	case string(environment.Staging), "stage":
		return WithStaging(service)
	default:
		return WithDevelopment(service)
	}
}

func presetOption(service string, level slog.Level, format Format, env environment.Environment) Option {
	return func(c *config) {
		if service == "" {
			return
		}
		c.level = level
		c.format = format
		if c.output == nil {
			c.output = os.Stdout
		}
		c.attrs = append(c.attrs,
			slog.String("service", service),
			slog.String("env", string(env)),
		)
	}
}

// SetAsDefault installs l as the process-wide slog default.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// New builds a *slog.Logger: a text or JSON handler per the options,
// wrapped in the context-extractor decorator. Defaults are JSON at info
// level on stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := cfg.handlerOptions
	if handlerOpts == nil {
		handlerOpts = &slog.HandlerOptions{Level: cfg.level}
	}

	var handler slog.Handler
	switch cfg.format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}
	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}

	return slog.New(NewLogHandlerDecorator(handler, cfg.extractors...))
}
