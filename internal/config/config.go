// Package config parses moose.config.toml, the per-project configuration
// file that names the OLAP/BUS endpoints and dev-mode knobs the rest of the
// reconciliation core reads. Parsing uses github.com/pelletier/go-toml/v2,
// validation uses github.com/go-playground/validator/v10, the same
// "parse-then-validate" shape pkg/config.CUEParser.Validate follows for CUE
// sources in the teacher codebase.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// OLAPConfig names the analytical store dev mode talks to.
type OLAPConfig struct {
	Host string `toml:"host" validate:"required"`
	Port int    `toml:"port" validate:"required,gt=0,lt=65536"`
	DB   string `toml:"database" validate:"required"`
}

// BUSConfig names the streaming broker dev mode talks to.
type BUSConfig struct {
	Brokers []string `toml:"brokers" validate:"required,min=1"`
}

// Features toggles behavior that changed across the reference
// implementation's history. LegacyApply documents the resolution of the
// core_v2 Open Question (§9): this repo always plans before applying, so
// the flag is carried for compatibility but never branches behavior.
type Features struct {
	LegacyApply bool `toml:"legacy_apply"`
}

// Project is the decoded, validated contents of moose.config.toml.
type Project struct {
	Name            string     `toml:"name" validate:"required"`
	ModelsDir       string     `toml:"models_dir" validate:"required"`
	IsProduction    bool       `toml:"is_production"`
	AllowDestructive bool      `toml:"allow_destructive"`
	OLAP            OLAPConfig `toml:"olap" validate:"required"`
	BUS             BUSConfig  `toml:"bus" validate:"required"`
	Features        Features   `toml:"features"`
}

var validate = validator.New()

// Load reads and validates moose.config.toml at path.
func Load(path string) (*Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var p Project
	if err := toml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return &p, nil
}
