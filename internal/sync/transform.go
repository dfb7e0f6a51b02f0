// Package sync implements the Sync Registry (C7): for every VersionSync
// edge in a project, it runs a worker that reads records from the source
// model's ingestion topic, applies the named transform, and writes to the
// target model's destination. Transform scripts are Starlark, evaluated the
// way pkg/config.StarlarkEvaluator evaluates procedural config logic in the
// teacher codebase -- reused here for data transformation instead.
package sync

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/dcmcore/dcm/internal/core"
)

// Transformer evaluates a VersionSync's transform script against one
// record. The empty script name is a passthrough identity transform.
type Transformer struct {
	timeout time.Duration
}

// NewTransformer returns a Transformer bounding each evaluation to timeout.
func NewTransformer(timeout time.Duration) *Transformer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Transformer{timeout: timeout}
}

// Apply runs script against record and returns the transformed record. An
// empty script returns record unchanged.
func (t *Transformer) Apply(ctx context.Context, script string, record map[string]any) (map[string]any, error) {
	if script == "" {
		return record, nil
	}

	resultCh := make(chan map[string]any, 1)
	errCh := make(chan error, 1)

	evalCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	go func() {
		out, err := t.evalSync(script, record)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- out
	}()

	select {
	case <-evalCtx.Done():
		return nil, core.NewApplyError("transform evaluation timed out", evalCtx.Err())
	case err := <-errCh:
		return nil, core.NewApplyError("transform evaluation failed", err)
	case out := <-resultCh:
		return out, nil
	}
}

func (t *Transformer) evalSync(script string, record map[string]any) (map[string]any, error) {
	thread := &starlark.Thread{
		Name:  "versionsync",
		Print: func(*starlark.Thread, string) {},
	}

	predeclared := starlark.StringDict{}
	recordVal, err := toStarlarkValue(record)
	if err != nil {
		return nil, fmt.Errorf("convert input record: %w", err)
	}
	predeclared["record"] = recordVal

	globals, err := starlark.ExecFile(thread, "transform.star", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("execute transform: %w", err)
	}

	out, ok := globals["output"]
	if !ok {
		return nil, fmt.Errorf("transform script did not set a top-level \"output\" variable")
	}
	goVal, err := fromStarlarkValue(out)
	if err != nil {
		return nil, fmt.Errorf("convert transform output: %w", err)
	}
	asMap, ok := goVal.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("transform output must be a record, got %T", goVal)
	}
	return asMap, nil
}

func toStarlarkValue(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}
	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			sv, err := toStarlarkValue(v)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported record field type: %T", v)
	}
}

func fromStarlarkValue(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
