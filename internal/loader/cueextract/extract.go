// Package cueextract implements core.ModelExtractor over CUE schema files,
// the way pkg/config.CUEParser walks a cue.Value in the teacher codebase.
// A model declaration looks like:
//
//	name:    "PageView"
//	version: "1.2.0"
//	columns: [
//		{name: "event_id", type: "string", primary: true},
//		{name: "user_id", type: "string"},
//		{name: "occurred_at", type: "datetime"},
//	]
package cueextract

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/dcmcore/dcm/internal/core"
)

// Extractor implements core.ModelExtractor for .cue model declarations.
type Extractor struct {
	ctx *cue.Context
}

// New returns a CUE-backed extractor.
func New() *Extractor {
	return &Extractor{ctx: cuecontext.New()}
}

// CanHandle reports whether path is a CUE source file.
func (e *Extractor) CanHandle(path string) bool {
	return strings.HasSuffix(path, ".cue")
}

// Extract parses the CUE file at path and decodes it into a FrameworkObject.
func (e *Extractor) Extract(_ context.Context, path string) (*core.FrameworkObject, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewConfigError("read model file", err).WithResource(path)
	}

	val := e.ctx.CompileString(string(content), cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, core.NewConfigError(errors.Details(err, nil), err).WithResource(path)
	}

	name, err := lookupString(val, "name")
	if err != nil {
		return nil, core.NewConfigError(err.Error(), nil).WithResource(path)
	}

	versionStr, err := lookupString(val, "version")
	if err != nil {
		return nil, core.NewConfigError(err.Error(), nil).WithResource(path)
	}
	version, err := parseVersion(versionStr)
	if err != nil {
		return nil, core.NewConfigError(err.Error(), nil).WithResource(path)
	}

	columns, err := extractColumns(val.LookupPath(cue.ParsePath("columns")))
	if err != nil {
		return nil, core.NewConfigError(err.Error(), nil).WithResource(path)
	}

	obj := &core.FrameworkObject{
		Name:             name,
		Version:          version,
		Columns:          columns,
		IngestionTopic:   fmt.Sprintf("%s_%s", name, versionStr),
		DestinationTable: fmt.Sprintf("%s_%s", strings.ToLower(name), strings.ReplaceAll(versionStr, ".", "_")),
	}
	obj.SchemaHash = core.HashColumns(columns)
	return obj, nil
}

func lookupString(val cue.Value, path string) (string, error) {
	v := val.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return "", fmt.Errorf("missing required field %q", path)
	}
	s, err := v.String()
	if err != nil {
		return "", fmt.Errorf("field %q is not a string: %w", path, err)
	}
	return s, nil
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

func extractColumns(val cue.Value) ([]core.Column, error) {
	if !val.Exists() {
		return nil, fmt.Errorf("missing required field %q", "columns")
	}
	list, err := val.List()
	if err != nil {
		return nil, fmt.Errorf("field %q must be a list: %w", "columns", err)
	}

	var columns []core.Column
	rank := 1
	for list.Next() {
		cv := list.Value()
		name, err := lookupString(cv, "name")
		if err != nil {
			return nil, err
		}
		typeStr, err := lookupString(cv, "type")
		if err != nil {
			return nil, err
		}

		col := core.Column{Name: name, Type: core.ColumnType(typeStr)}

		if nullableVal := cv.LookupPath(cue.ParsePath("nullable")); nullableVal.Exists() {
			col.Nullable, _ = nullableVal.Bool()
		}
		if primaryVal := cv.LookupPath(cue.ParsePath("primary")); primaryVal.Exists() {
			isPrimary, _ := primaryVal.Bool()
			if isPrimary {
				col.IsPrimary = true
				col.PrimaryRank = rank
				rank++
			}
		}

		columns = append(columns, col)
	}
	return columns, nil
}
