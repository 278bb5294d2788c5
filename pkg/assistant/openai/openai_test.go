package openai_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/assistant/openai"
)

// drain consumes a stream to completion, returning the concatenated
// tokens and any tool-call pause encountered along the way.
func drain(ctx context.Context, c *openai.Client, stream *assistant.Stream) (string, error) {
	var text string
	for {
		evt, ok := stream.Next(ctx)
		if !ok {
			return text, evt.Err
		}
		switch {
		case evt.Err != nil:
			return text, evt.Err
		case evt.Token != "":
			text += evt.Token
		case len(evt.ToolCalls) > 0:
			outputs := make([]assistant.ToolOutput, 0, len(evt.ToolCalls))
			for _, call := range evt.ToolCalls {
				outputs = append(outputs, assistant.ToolOutput{CallID: call.ID, Output: "tool-result"})
			}
			if err := c.SubmitToolOutputs(ctx, evt.RunID, outputs); err != nil {
				return text, err
			}
		case evt.Done:
			return text, nil
		}
	}
}

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		server *httptest.Server
		mux    *http.ServeMux

		mu       sync.Mutex
		requests []string
	)

	record := func(r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.URL.Path)
	}

	requested := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), requests...)
	}

	newClient := func() *openai.Client {
		c, err := openai.NewClient(openai.Config{
			APIKey:      "sk-test",
			AssistantID: "asst_1",
			BaseURL:     server.URL,
			Logger:      zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	BeforeEach(func() {
		ctx = context.Background()
		requests = nil
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)
	})

	Describe("NewClient", func() {
		It("requires an API key", func() {
			_, err := openai.NewClient(openai.Config{AssistantID: "asst_1", Logger: zap.NewNop()})
			Expect(err).To(MatchError(ContainSubstring("API key")))
		})

		It("requires an assistant ID", func() {
			_, err := openai.NewClient(openai.Config{APIKey: "sk-test", Logger: zap.NewNop()})
			Expect(err).To(MatchError(ContainSubstring("assistant ID")))
		})
	})

	Describe("CreateThread", func() {
		It("creates a thread and makes it active", func() {
			var gotAuth, gotBeta string
			mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
				record(r)
				gotAuth = r.Header.Get("Authorization")
				gotBeta = r.Header.Get("OpenAI-Beta")
				fmt.Fprint(w, `{"id":"thread_abc"}`)
			})

			c := newClient()
			id, err := c.CreateThread(ctx, "seed prompt")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("thread_abc"))
			Expect(c.ActiveThread()).To(Equal("thread_abc"))
			Expect(gotAuth).To(Equal("Bearer sk-test"))
			Expect(gotBeta).To(Equal("assistants=v2"))
		})

		It("surfaces API error messages", func() {
			mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
			})

			c := newClient()
			_, err := c.CreateThread(ctx, "")
			Expect(err).To(MatchError(ContainSubstring("Incorrect API key provided")))
		})
	})

	Describe("AddMessage", func() {
		It("fails without an active thread", func() {
			c := newClient()
			Expect(c.AddMessage(ctx, assistant.RoleUser, "hello")).To(HaveOccurred())
		})
	})

	Describe("Chat", func() {
		It("streams message deltas and accumulates usage", func() {
			mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"id":"thread_abc"}`)
			})
			mux.HandleFunc("/threads/thread_abc/messages", func(w http.ResponseWriter, r *http.Request) {
				record(r)
				fmt.Fprint(w, `{}`)
			})
			mux.HandleFunc("/threads/thread_abc/runs", func(w http.ResponseWriter, r *http.Request) {
				record(r)
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "event: thread.message.delta\n"+
					`data: {"delta":{"content":[{"type":"text","text":{"value":"Scout"}}]}}`+"\n\n"+
					"event: thread.message.delta\n"+
					`data: {"delta":{"content":[{"type":"text","text":{"value":" the third base."}}]}}`+"\n\n"+
					"event: thread.run.completed\n"+
					`data: {"id":"run_1","usage":{"prompt_tokens":100,"completion_tokens":20,"total_tokens":120}}`+"\n\n"+
					"data: [DONE]\n\n")
			})

			c := newClient()
			_, err := c.CreateThread(ctx, "seed")
			Expect(err).NotTo(HaveOccurred())

			stream, err := c.Chat(ctx, "what do I do against this?")
			Expect(err).NotTo(HaveOccurred())

			text, err := drain(ctx, c, stream)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Scout the third base."))

			usage, err := c.ThreadUsage(ctx, "thread_abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(usage.TotalTokens).To(Equal(120))

			Expect(requested()).To(ContainElement("/threads/thread_abc/messages"))
			Expect(requested()).To(ContainElement("/threads/thread_abc/runs"))
		})

		It("pauses for tool calls and resumes on the same stream", func() {
			mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"id":"thread_abc"}`)
			})
			mux.HandleFunc("/threads/thread_abc/messages", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			})
			mux.HandleFunc("/threads/thread_abc/runs", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "event: thread.run.requires_action\n"+
					`data: {"id":"run_1","required_action":{"type":"submit_tool_outputs","submit_tool_outputs":{"tool_calls":[{"id":"call_1","function":{"name":"query_replays","arguments":"{\"player_name\":\"Rival\"}"}}]}}}`+"\n\n"+
					"data: [DONE]\n\n")
			})
			mux.HandleFunc("/threads/thread_abc/runs/run_1/submit_tool_outputs", func(w http.ResponseWriter, r *http.Request) {
				record(r)
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "event: thread.message.delta\n"+
					`data: {"delta":{"content":[{"type":"text","text":{"value":"They like roaches."}}]}}`+"\n\n"+
					"event: thread.run.completed\n"+
					`data: {"id":"run_1","usage":{"prompt_tokens":50,"completion_tokens":10,"total_tokens":60}}`+"\n\n"+
					"data: [DONE]\n\n")
			})

			c := newClient()
			_, err := c.CreateThread(ctx, "seed")
			Expect(err).NotTo(HaveOccurred())

			stream, err := c.Chat(ctx, "what does Rival usually open with?")
			Expect(err).NotTo(HaveOccurred())

			text, err := drain(ctx, c, stream)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("They like roaches."))
			Expect(requested()).To(ContainElement("/threads/thread_abc/runs/run_1/submit_tool_outputs"))
		})

		It("surfaces failed runs as stream errors", func() {
			mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"id":"thread_abc"}`)
			})
			mux.HandleFunc("/threads/thread_abc/messages", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			})
			mux.HandleFunc("/threads/thread_abc/runs", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "event: thread.run.failed\n"+
					`data: {"id":"run_1","last_error":{"code":"rate_limit_exceeded","message":"Rate limit reached"}}`+"\n\n"+
					"data: [DONE]\n\n")
			})

			c := newClient()
			_, err := c.CreateThread(ctx, "seed")
			Expect(err).NotTo(HaveOccurred())

			stream, err := c.Chat(ctx, "still with me coach?")
			Expect(err).NotTo(HaveOccurred())

			drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_, err = drain(drainCtx, c, stream)
			Expect(err).To(MatchError(ContainSubstring("Rate limit reached")))
		})
	})

	Describe("StreamThread", func() {
		It("fails without an active thread", func() {
			c := newClient()
			_, err := c.StreamThread(ctx)
			Expect(err).To(HaveOccurred())
		})
	})
})
