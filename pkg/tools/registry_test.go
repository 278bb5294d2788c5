package tools_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/tools"
)

func noopDef(name string) assistant.Definition {
	return assistant.Definition{
		Name:        name,
		Description: "test tool",
		Parameters:  map[string]any{"type": "object"},
	}
}

var _ = Describe("Registry", func() {
	var (
		ctx context.Context
		r   *tools.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		r = tools.NewRegistry(zap.NewNop())
	})

	Describe("Definitions", func() {
		It("returns registered schemas sorted by name", func() {
			r.Register(noopDef("zeta"), func(context.Context, map[string]any) (string, error) { return "", nil })
			r.Register(noopDef("alpha"), func(context.Context, map[string]any) (string, error) { return "", nil })

			defs := r.Definitions()
			Expect(defs).To(HaveLen(2))
			Expect(defs[0].Name).To(Equal("alpha"))
			Expect(defs[1].Name).To(Equal("zeta"))
		})

		It("replaces an entry registered under the same name", func() {
			r.Register(noopDef("echo"), func(context.Context, map[string]any) (string, error) { return "first", nil })
			r.Register(noopDef("echo"), func(context.Context, map[string]any) (string, error) { return "second", nil })

			Expect(r.Definitions()).To(HaveLen(1))
			out := r.Dispatch(ctx, assistant.ToolCall{ID: "c1", Name: "echo"})
			Expect(out.Output).To(Equal("second"))
		})
	})

	Describe("Dispatch", func() {
		It("runs the tool and carries the call id", func() {
			r.Register(noopDef("greet"), func(_ context.Context, args map[string]any) (string, error) {
				return "hello " + args["name"].(string), nil
			})

			out := r.Dispatch(ctx, assistant.ToolCall{
				ID:   "call-1",
				Name: "greet",
				Args: map[string]any{"name": "Nova"},
			})
			Expect(out.CallID).To(Equal("call-1"))
			Expect(out.Output).To(Equal("hello Nova"))
		})

		It("reports unknown tools as output text", func() {
			out := r.Dispatch(ctx, assistant.ToolCall{ID: "call-1", Name: "nope"})
			Expect(out.CallID).To(Equal("call-1"))
			Expect(out.Output).To(Equal(`error: unknown tool "nope"`))
		})

		It("reports tool errors as output text", func() {
			r.Register(noopDef("boom"), func(context.Context, map[string]any) (string, error) {
				return "", errors.New("store unavailable")
			})

			out := r.Dispatch(ctx, assistant.ToolCall{ID: "call-1", Name: "boom"})
			Expect(out.Output).To(Equal("error: store unavailable"))
		})

		It("recovers from a panicking tool", func() {
			r.Register(noopDef("crash"), func(context.Context, map[string]any) (string, error) {
				panic("nil map write")
			})

			out := r.Dispatch(ctx, assistant.ToolCall{ID: "call-1", Name: "crash"})
			Expect(out.CallID).To(Equal("call-1"))
			Expect(out.Output).To(Equal(`error: tool "crash" panicked`))
		})
	})

	Describe("DispatchAll", func() {
		It("keeps outputs aligned with their calls", func() {
			r.Register(noopDef("ok"), func(context.Context, map[string]any) (string, error) { return "fine", nil })

			outs := r.DispatchAll(ctx, []assistant.ToolCall{
				{ID: "c1", Name: "ok"},
				{ID: "c2", Name: "missing"},
			})
			Expect(outs).To(HaveLen(2))
			Expect(outs[0].CallID).To(Equal("c1"))
			Expect(outs[0].Output).To(Equal("fine"))
			Expect(outs[1].CallID).To(Equal("c2"))
			Expect(outs[1].Output).To(ContainSubstring("unknown tool"))
		})
	})
})
