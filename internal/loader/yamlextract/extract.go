// Package yamlextract implements core.ModelExtractor over plain YAML model
// declarations, for projects that don't want a CUE toolchain. Accepts the
// same fields as cueextract, serialized as YAML instead of CUE.
package yamlextract

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dcmcore/dcm/internal/core"
)

type modelFile struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Columns []struct {
		Name     string `yaml:"name"`
		Type     string `yaml:"type"`
		Nullable bool   `yaml:"nullable"`
		Primary  bool   `yaml:"primary"`
	} `yaml:"columns"`
}

// Extractor implements core.ModelExtractor for .yaml/.yml model declarations.
type Extractor struct{}

// New returns a YAML-backed extractor.
func New() *Extractor { return &Extractor{} }

// CanHandle reports whether path is a YAML source file.
func (e *Extractor) CanHandle(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

// Extract parses the YAML file at path and decodes it into a FrameworkObject.
func (e *Extractor) Extract(_ context.Context, path string) (*core.FrameworkObject, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewConfigError("read model file", err).WithResource(path)
	}

	var mf modelFile
	if err := yaml.Unmarshal(content, &mf); err != nil {
		return nil, core.NewConfigError("parse model yaml", err).WithResource(path)
	}
	if mf.Name == "" {
		return nil, core.NewConfigError("missing required field \"name\"", nil).WithResource(path)
	}

	version, err := parseVersion(mf.Version)
	if err != nil {
		return nil, core.NewConfigError(err.Error(), nil).WithResource(path)
	}

	var columns []core.Column
	rank := 1
	for _, c := range mf.Columns {
		col := core.Column{Name: c.Name, Type: core.ColumnType(c.Type), Nullable: c.Nullable}
		if c.Primary {
			col.IsPrimary = true
			col.PrimaryRank = rank
			rank++
		}
		columns = append(columns, col)
	}

	obj := &core.FrameworkObject{
		Name:             mf.Name,
		Version:          version,
		Columns:          columns,
		IngestionTopic:   fmt.Sprintf("%s_%s", mf.Name, mf.Version),
		DestinationTable: fmt.Sprintf("%s_%s", strings.ToLower(mf.Name), strings.ReplaceAll(mf.Version, ".", "_")),
	}
	obj.SchemaHash = core.HashColumns(columns)
	return obj, nil
}

func parseVersion(s string) (core.Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return core.Version{}, fmt.Errorf("version %q must have form major.minor.patch", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return core.Version{}, fmt.Errorf("version %q has non-numeric component %q", s, p)
		}
		nums[i] = n
	}
	return core.Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}
