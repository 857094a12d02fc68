// Package container provides the IoC (Inversion of Control) container and
// Service Provider system the kernel is assembled with.
//
// # Overview
//
// The container manages the instantiation and lifecycle of the application's
// dependencies. It supports transient bindings, singletons, pre-built
// instances and aliases, and it can wire an object built elsewhere.
//
// Because Go has no runtime constructor reflection, auto-wiring of
// constructors is replaced by explicit factory functions; existing objects
// are wired through `inject` struct tags.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()        — safe to resolve everything after this
//  4. Serve requests
//
// # Bindings
//
//	// Transient — new instance every Make()
//	c.Bind("report", func(c *container.Container) any { return &Report{} })
//
//	// Singleton — created once, reused
//	c.Singleton("mailer", func(c *container.Container) any {
//	    cfg := container.Resolve[*config.Config](c, "config")
//	    return mail.NewSMTP(cfg)
//	})
//
//	// Pre-built value
//	c.Instance("config", myConfig)
//
//	// Alias
//	c.Alias("config", "configuration")
//
// # Resolving
//
//	raw := c.Make("mailer")                                  // panics if unbound
//	raw, err := c.TryMake("mailer")                          // ErrNotBound if unbound
//	mailer := container.Resolve[*SMTPMailer](c, "mailer")   // typed
//
// # Wiring
//
//	type Invoice struct {
//	    Mailer Mailer `inject:"mailer"`     // named abstract
//	    Clock  *Clock `inject:""`           // TypeKey of *Clock
//	    Audit  Audit  `inject:",optional"`  // left zero when unbound
//	}
//
//	inv, err := c.Wire(&Invoice{})
//
// Wire only fills zero-valued fields, so wiring an object twice is harmless.
// The transformers engine uses it to wire every instance it produces.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    app.Singleton("mailer", func(c *container.Container) any { return mail.NewSMTP() })
//	    return nil
//	}
//
//	registry := container.NewProviderRegistry(c)
//	if err := registry.Register(&AppServiceProvider{}); err != nil { ... }
//	if err := registry.Boot(); err != nil { ... }
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool   { return true }
//	func (p *HeavyProvider) Provides() []string { return []string{"heavy"} }
//	func (p *HeavyProvider) Register(app *container.Container) error {
//	    app.Singleton("heavy", func(c *container.Container) any {
//	        return heavySetup() // only called on first app.Make("heavy")
//	    })
//	    return nil
//	}
package container
