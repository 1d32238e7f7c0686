package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"rtgen/internal/diag"
	"rtgen/internal/layout"
)

// ManifestName is the project manifest looked up by Discover.
const ManifestName = "rtgen.toml"

// Config is the decoded rtgen.toml.
type Config struct {
	Target TargetConfig `toml:"target"`
	Emit   EmitConfig   `toml:"emit"`
	Units  []string     `toml:"units" validate:"dive,required"`
}

type TargetConfig struct {
	Triple  string `toml:"triple" validate:"required"`
	PtrSize int    `toml:"ptr_size" validate:"oneof=4 8"`
}

type EmitConfig struct {
	Linkage string `toml:"linkage" validate:"oneof=linkonce_odr weak_odr external internal"`
	Jobs    int    `toml:"jobs" validate:"gte=0,lte=256"` // 0 means one per CPU
	Cache   *bool  `toml:"cache"`
	Out     string `toml:"out" validate:"required"`
}

// Default returns the configuration used without a manifest.
func Default() Config {
	return Config{
		Target: TargetConfig{Triple: "x86_64-linux-gnu", PtrSize: 8},
		Emit:   EmitConfig{Linkage: "linkonce_odr", Out: "build"},
	}
}

// LayoutTarget returns the ABI target the configuration selects.
func (c Config) LayoutTarget() layout.Target {
	return layout.TargetFor(c.Target.Triple, c.Target.PtrSize)
}

// CacheEnabled reports whether the build cache is on; it defaults to true.
func (c Config) CacheEnabled() bool {
	return c.Emit.Cache == nil || *c.Emit.Cache
}

// JobCount resolves Jobs to a positive worker count.
func (c Config) JobCount() int {
	if c.Emit.Jobs > 0 {
		return c.Emit.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

var validate = validator.New()

// Validate checks field constraints and returns a *Error listing every
// violation.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: ErrInvalid, Err: err}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &Error{Kind: ErrInvalid, Problems: problems}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

// Load decodes path over the defaults and validates the result. Unknown
// keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, &Error{Kind: ErrParse, Path: path, Err: err}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, &Error{Kind: ErrParse, Path: path, Problems: []string{"unknown keys: " + strings.Join(keys, ", ")}}
	}
	if err := cfg.Validate(); err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// ErrorKind classifies configuration failures.
type ErrorKind uint8

const (
	ErrParse ErrorKind = iota + 1
	ErrInvalid
	ErrNotFound
)

// Error is a configuration failure.
type Error struct {
	Kind     ErrorKind
	Path     string
	Problems []string
	Err      error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	switch e.Kind {
	case ErrParse:
		sb.WriteString("failed to parse TOML")
	case ErrInvalid:
		sb.WriteString("invalid configuration")
	case ErrNotFound:
		sb.WriteString(ManifestName + " not found")
	}
	if len(e.Problems) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Problems, "; "))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Code maps the failure to its diagnostic code.
func (e *Error) Code() diag.Code {
	switch e.Kind {
	case ErrParse:
		return diag.CfgParse
	case ErrNotFound:
		return diag.CfgNotFound
	default:
		return diag.CfgInvalid
	}
}
