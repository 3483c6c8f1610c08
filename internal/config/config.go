// Package config loads the CUE configuration of a mulchledger deployment:
// administrator identity, alert threshold, replacement cost, follow-on
// quota and rules, seed rate profiles, and storage.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/monitor"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// Environment overrides, applied after the file is loaded.
const (
	EnvStorageDriver = "MULCHLEDGER_STORAGE_DRIVER"
	EnvDSN           = "MULCHLEDGER_DSN"
	EnvAdmin         = "MULCHLEDGER_ADMIN"
)

// DefaultAdmin is the administrator of a deployment without a config file.
const DefaultAdmin = "admin"

// Config is a validated configuration.
type Config struct {
	Admin       string                `json:"admin"`
	Threshold   int64                 `json:"threshold"`
	CostPerUnit int64                 `json:"cost_per_unit"`
	MaxSteps    int                   `json:"max_steps"`
	Storage     Storage               `json:"storage"`
	Profiles    []monitor.RateProfile `json:"profiles"`
	Rules       []engine.Rule         `json:"rules"`

	// rulesSet distinguishes an explicit empty rule list from an absent one.
	rulesSet bool
}

// Storage selects the transition log backend.
type Storage struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Error is a configuration error, positioned when CUE knows where.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	loc := ""
	if e.Pos.IsValid() {
		loc = fmt.Sprintf("%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Path != "" {
		return fmt.Sprintf("%s%s: %s", loc, e.Path, e.Message)
	}
	return loc + e.Message
}

// Load reads, validates and decodes the file at path, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, errs := Parse(path, data)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used without a config file: the
// schema defaults, DefaultAdmin, and environment overrides.
func Default() (*Config, error) {
	cfg, errs := Parse("default.cue", []byte(fmt.Sprintf("admin: %q\n", DefaultAdmin)))
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unifies data with the schema and decodes it. All errors found are
// returned, so a validate run reports every problem at once.
func Parse(filename string, data []byte) (*Config, []error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{fmt.Errorf("compile embedded schema: %w", err)}
	}

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return nil, convertCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, convertCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, convertCUEError(err)
	}
	cfg.rulesSet = v.LookupPath(cue.ParsePath("rules")).Exists()

	if errs := cfg.check(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// check applies the rules the schema cannot express: profile validation
// shared with RateModel.setRateProfile and rule dispatchability.
func (c *Config) check() []error {
	var errs []error
	for i, p := range c.Profiles {
		if err := monitor.ValidateProfile(p); err != nil {
			errs = append(errs, &Error{Path: fmt.Sprintf("profiles[%d]", i), Message: err.Error()})
		}
	}
	if c.rulesSet {
		if err := engine.ValidateRules(c.Rules); err != nil {
			errs = append(errs, &Error{Path: "rules", Message: err.Error()})
		}
	}
	return errs
}

func convertCUEError(err error) []error {
	var out []error
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		ce := &Error{Message: fmt.Sprintf(format, args...), Pos: e.Position()}
		ce.Path = strings.Join(e.Path(), ".")
		out = append(out, ce)
	}
	if len(out) == 0 {
		out = append(out, &Error{Message: err.Error()})
	}
	return out
}

// ApplyEnv overrides storage and administrator from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvStorageDriver); v != "" {
		switch v {
		case store.DriverSQLite, store.DriverPostgres:
			c.Storage.Driver = v
		default:
			return fmt.Errorf("%s=%q: want %s or %s", EnvStorageDriver, v, store.DriverSQLite, store.DriverPostgres)
		}
	}
	if v := getenv(EnvDSN); v != "" {
		c.Storage.DSN = v
	}
	if v := getenv(EnvAdmin); v != "" {
		c.Admin = v
	}
	return nil
}

// EngineRules returns the configured follow-on rules, or the engine's
// defaults when the file has no rules field.
func (c *Config) EngineRules() []engine.Rule {
	if !c.rulesSet {
		return engine.DefaultRules()
	}
	return c.Rules
}

// Genesis builds the initial ledger state: empty registries with the
// configured administrator, threshold and cost, plus the seed profiles.
func (c *Config) Genesis() (*engine.State, error) {
	st := engine.NewState(monitor.Options{
		Admin:       ledger.Identity(c.Admin),
		Threshold:   c.Threshold,
		CostPerUnit: c.CostPerUnit,
	})
	for _, p := range c.Profiles {
		if err := st.Monitor.Rates.Seed(p); err != nil {
			return nil, fmt.Errorf("seed profile %q: %w", p.MulchType, err)
		}
	}
	return st, nil
}

// OpenStore opens the configured transition log.
func (c *Config) OpenStore() (*store.Store, error) {
	return store.OpenDriver(c.Storage.Driver, c.Storage.DSN)
}

// NewEngine builds an engine over s from this configuration. The engine
// has not read the log yet; call Rebuild to resume.
func (c *Config) NewEngine(s *store.Store, flowGen engine.FlowTokenGenerator) (*engine.Engine, error) {
	genesis, err := c.Genesis()
	if err != nil {
		return nil, err
	}
	e := engine.New(s, genesis, flowGen, engine.WithMaxSteps(c.MaxSteps))
	if err := e.RegisterRules(c.EngineRules()); err != nil {
		return nil, fmt.Errorf("register rules: %w", err)
	}
	return e, nil
}
