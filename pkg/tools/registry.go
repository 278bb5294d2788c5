// Package tools provides the local capability registry the assistant
// can call into mid-conversation.
package tools

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
)

// Func executes a tool call. The string result is handed back to the
// model verbatim.
type Func func(ctx context.Context, args map[string]any) (string, error)

// Registry maps tool names to their implementations and schemas.
type Registry struct {
	tools  map[string]entry
	logger *zap.Logger
}

type entry struct {
	def assistant.Definition
	fn  Func
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]entry),
		logger: logger,
	}
}

// Register adds a tool. Registering the same name twice replaces the
// earlier entry.
func (r *Registry) Register(def assistant.Definition, fn Func) {
	r.tools[def.Name] = entry{def: def, fn: fn}
}

// Definitions returns every registered tool schema, sorted by name.
func (r *Registry) Definitions() []assistant.Definition {
	defs := make([]assistant.Definition, 0, len(r.tools))
	for _, e := range r.tools {
		defs = append(defs, e.def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Dispatch runs one tool call. Failures never abort the run: unknown
// tools, errors, and panics all come back as the tool's output text so
// the model can react to them.
func (r *Registry) Dispatch(ctx context.Context, call assistant.ToolCall) (out assistant.ToolOutput) {
	out.CallID = call.ID

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked",
				zap.String("tool", call.Name),
				zap.Any("panic", rec),
			)
			out.Output = fmt.Sprintf("error: tool %q panicked", call.Name)
		}
	}()

	e, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn("unknown tool requested", zap.String("tool", call.Name))
		out.Output = fmt.Sprintf("error: unknown tool %q", call.Name)
		return out
	}

	result, err := e.fn(ctx, call.Args)
	if err != nil {
		r.logger.Warn("tool failed",
			zap.String("tool", call.Name),
			zap.Error(err),
		)
		out.Output = "error: " + err.Error()
		return out
	}

	r.logger.Debug("tool completed", zap.String("tool", call.Name))
	out.Output = result
	return out
}

// DispatchAll runs a batch of tool calls in order.
func (r *Registry) DispatchAll(ctx context.Context, calls []assistant.ToolCall) []assistant.ToolOutput {
	outs := make([]assistant.ToolOutput, 0, len(calls))
	for _, call := range calls {
		outs = append(outs, r.Dispatch(ctx, call))
	}
	return outs
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// intArg extracts an optional integer argument (JSON numbers decode as
// float64), falling back to def when absent.
func intArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
	return int(f), nil
}

// stringsArg extracts an optional list-of-strings argument.
func stringsArg(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a list of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}
