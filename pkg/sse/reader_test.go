package sse

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with standard SSE events", func() {
			It("parses a single event", func() {
				r := NewReader(strings.NewReader("data: hello world\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).NotTo(BeNil())
				Expect(ev.Data).To(Equal("hello world"))
				Expect(ev.Type).To(BeEmpty())
			})

			It("parses multiple events in sequence", func() {
				r := NewReader(strings.NewReader("data: one\n\ndata: two\n\n"))

				first, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(first.Data).To(Equal("one"))

				second, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(second.Data).To(Equal("two"))
			})

			It("parses event type and id fields", func() {
				r := NewReader(strings.NewReader("event: thread.message.delta\nid: 42\ndata: {}\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Type).To(Equal("thread.message.delta"))
				Expect(ev.ID).To(Equal("42"))
				Expect(ev.Data).To(Equal("{}"))
			})

			It("joins multiple data lines with a newline", func() {
				r := NewReader(strings.NewReader("data: first\ndata: second\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("first\nsecond"))
			})
		})

		Context("with irregular input", func() {
			It("skips comment lines", func() {
				r := NewReader(strings.NewReader(": keep-alive\ndata: payload\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("payload"))
			})

			It("skips leading blank lines", func() {
				r := NewReader(strings.NewReader("\n\ndata: payload\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("payload"))
			})

			It("yields a trailing event without a final blank line", func() {
				r := NewReader(strings.NewReader("data: tail"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("tail"))
			})

			It("returns nil, nil when the source is exhausted", func() {
				r := NewReader(strings.NewReader(""))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})
		})
	})
})
