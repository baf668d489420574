package services

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/imamik/tradefleet/internal/provisioning"
)

// Factory builds deployers for one service kind.
type Factory struct {
	def       definition
	connector Connector
	logger    *slog.Logger
}

var _ provisioning.ServiceFactory = (*Factory)(nil)

// Kind returns the service kind.
func (f *Factory) Kind() string {
	return f.def.kind
}

// Defaults returns a copy of the kind's default settings.
func (f *Factory) Defaults() map[string]any {
	return provisioning.MergeSettings(f.def.defaults, nil)
}

// New validates the merged settings and returns a deployer.
func (f *Factory) New(cfg provisioning.ServiceConfig) (provisioning.ServiceDeployer, error) {
	if cfg.Kind != "" && cfg.Kind != f.def.kind {
		return nil, fmt.Errorf("factory for %s cannot deploy %s", f.def.kind, cfg.Kind)
	}
	image, err := stringSetting(cfg.Settings, "image")
	if err != nil {
		return nil, err
	}
	if image == "" {
		return nil, fmt.Errorf("%s requires an image", f.def.kind)
	}
	if strings.ContainsAny(image, "\r\n") {
		return nil, fmt.Errorf("setting %q: value contains a line break", "image")
	}
	port, err := intSetting(cfg.Settings, "port")
	if err != nil {
		return nil, err
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("setting %q out of range: %d", "port", port)
	}
	env, err := envFile(cfg.Settings, "image")
	if err != nil {
		return nil, fmt.Errorf("invalid %s settings: %w", f.def.kind, err)
	}

	return &UnitDeployer{
		def:       f.def,
		cfg:       cfg,
		image:     image,
		port:      port,
		env:       env,
		connector: f.connector,
		logger:    f.logger,
	}, nil
}

// Registry resolves service kinds to factories. Its table is built from
// the compile-time definitions only.
type Registry struct {
	factories map[string]*Factory
	kinds     []string
}

var _ provisioning.ServiceRegistry = (*Registry)(nil)

// NewRegistry returns a registry for every known service kind.
func NewRegistry(connector Connector, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{factories: make(map[string]*Factory, len(definitions))}
	for _, def := range definitions {
		r.factories[def.kind] = &Factory{def: def, connector: connector, logger: logger}
		r.kinds = append(r.kinds, def.kind)
	}
	return r
}

// Lookup returns the factory for kind.
func (r *Registry) Lookup(kind string) (provisioning.ServiceFactory, bool) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, false
	}
	return f, true
}

// Kinds returns the registered kinds in table order.
func (r *Registry) Kinds() []string {
	return append([]string(nil), r.kinds...)
}
