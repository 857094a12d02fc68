package providers

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/features"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/routing"
	"github.com/km-arc/go-kernel/framework/transformers"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env and
// binds it into the container as "config".
//
// Bound abstracts:
//   - "config"         → *config.Config
//   - "configuration"  → alias of "config"
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	app.Instance("config", config.Load(p.EnvFiles...))
	app.Alias("config", "configuration")
	return nil
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider builds the structured logger from LOG_LEVEL.
//
// Bound abstracts:
//   - "log"  → *slog.Logger
type LogServiceProvider struct {
	container.BaseProvider
}

func (p *LogServiceProvider) Register(app *container.Container) error {
	cfg := container.Resolve[*config.Config](app, "config")
	level, err := parseLogLevel(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("app", cfg.App.Name, "env", cfg.App.Env)
	app.Instance("log", logger)
	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}

// ── FeaturesServiceProvider ───────────────────────────────────────────────────

// FeaturesServiceProvider declares the feature gates listed in the
// configuration. A broken feature file fails registration.
//
// Bound abstracts:
//   - "features"  → *features.Set
type FeaturesServiceProvider struct {
	container.BaseProvider
}

func (p *FeaturesServiceProvider) Register(app *container.Container) error {
	cfg := container.Resolve[*config.Config](app, "config")
	set, err := features.FromConfig(cfg.Features, features.WithLogger(logger(app, "features")))
	if err != nil {
		return err
	}
	app.Instance("features", set)
	return nil
}

// ── TransformersServiceProvider ───────────────────────────────────────────────

// TransformersServiceProvider registers the transformer registry and the
// engine that resolves against it. The engine wires every produced instance
// through the container and asks "features" about gates.
//
// Bound abstracts:
//   - "transformers.registry"  → *transformers.Registry
//   - "transformers"           → *transformers.Engine
//
// Application providers add adapters in their own Register:
//
//	registry := container.Resolve[*transformers.Registry](app, "transformers.registry")
//	return transformers.RegisterAuto(registry, transformers.Declaration{}, NewInvoice)
type TransformersServiceProvider struct {
	container.BaseProvider
}

func (p *TransformersServiceProvider) Register(app *container.Container) error {
	app.Singleton("transformers.registry", func(c *container.Container) any {
		return transformers.NewRegistry(
			transformers.WithFeatureCatalog(featureSet(c)),
			transformers.WithRegistryLogger(logger(c, "transformers")),
		)
	})
	app.Singleton("transformers", func(c *container.Container) any {
		return transformers.NewEngine(
			container.Resolve[*transformers.Registry](c, "transformers.registry"),
			transformers.WithWirer(c),
			transformers.WithFeatures(featureSet(c)),
			transformers.WithLogger(logger(c, "transformers")),
		)
	})
	app.Alias("transformers", "transformer.engine")
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router and, on boot, the
// read-only kernel introspection routes.
//
// Bound abstracts:
//   - "router"  → *routing.Router
//
// Routes:
//   - GET /_kernel/transformers
//   - GET /_kernel/features
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	app.Singleton("router", func(c *container.Container) any {
		return routing.New()
	})
	return nil
}

func (p *RoutingServiceProvider) Boot(app *container.Container) error {
	router := container.Resolve[*routing.Router](app, "router")
	registry, ok := container.MustResolve[*transformers.Registry](app, "transformers.registry")
	if !ok {
		return fmt.Errorf("[transformers.registry] is not a *transformers.Registry")
	}
	set := featureSet(app)

	router.Prefix("/_kernel", func(k *routing.Router) {
		k.Get("/transformers", gohttp.TransformersHandler(registry, set))
		k.Get("/features", gohttp.FeaturesHandler(set))
	})
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func logger(c *container.Container, component string) *slog.Logger {
	if l, err := c.TryMake("log"); err == nil {
		if l, ok := l.(*slog.Logger); ok {
			return l.With("component", component)
		}
	}
	return slog.Default().With("component", component)
}

// featureSet returns the bound feature set, or an empty one when the
// application runs without FeaturesServiceProvider.
func featureSet(c *container.Container) *features.Set {
	if s, err := c.TryMake("features"); err == nil {
		if s, ok := s.(*features.Set); ok {
			return s
		}
	}
	return features.New(nil)
}
