package coach

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sc2coach/sc2coach/pkg/cliui"
	"github.com/sc2coach/sc2coach/pkg/speech"
)

// InputReader supplies the student's side of the conversation.
type InputReader interface {
	// ReadLine blocks for the next utterance. It honors ctx deadlines,
	// which the converse loop uses for its idle timeout.
	ReadLine(ctx context.Context) (string, error)
}

// TerminalReader reads typed input from a terminal. A single background
// scanner goroutine feeds a channel so input typed during a timeout is
// not lost.
type TerminalReader struct {
	out   io.Writer
	lines chan string
	errc  chan error
	once  sync.Once
	in    io.Reader
}

// NewTerminalReader creates a reader over in (usually stdin), echoing
// the prompt to out.
func NewTerminalReader(in io.Reader, out io.Writer) *TerminalReader {
	return &TerminalReader{
		in:    in,
		out:   out,
		lines: make(chan string),
		errc:  make(chan error, 1),
	}
}

func (t *TerminalReader) ReadLine(ctx context.Context) (string, error) {
	t.once.Do(func() {
		go func() {
			scanner := bufio.NewScanner(t.in)
			for scanner.Scan() {
				t.lines <- scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				t.errc <- err
				return
			}
			t.errc <- io.EOF
		}()
	})

	fmt.Fprintf(t.out, "%s ", cliui.PromptStyle.Render("you:"))

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return "", ctx.Err()
	case line := <-t.lines:
		return line, nil
	case err := <-t.errc:
		return "", err
	}
}

// VoiceReader captures an utterance and transcribes it.
type VoiceReader struct {
	mic speech.Microphone
	stt speech.Transcriber
}

// NewVoiceReader creates a reader over the given audio collaborators.
func NewVoiceReader(mic speech.Microphone, stt speech.Transcriber) *VoiceReader {
	return &VoiceReader{mic: mic, stt: stt}
}

func (v *VoiceReader) ReadLine(ctx context.Context) (string, error) {
	audio, err := v.mic.Listen(ctx)
	if err != nil {
		return "", err
	}
	return v.stt.Transcribe(ctx, audio)
}
