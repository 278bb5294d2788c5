// Package speech defines the audio I/O contracts a session talks
// through. Real engines live behind these interfaces; the nop
// implementations here back text-only and disabled-audio modes.
package speech

import "context"

// Microphone captures one utterance of raw audio.
type Microphone interface {
	// Listen blocks until an utterance is captured or ctx is done.
	Listen(ctx context.Context) ([]byte, error)
}

// Transcriber turns captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Speaker voices streamed text. Feed accepts partial text as it
// arrives; Stop interrupts mid-sentence.
type Speaker interface {
	Feed(text string)
	Stop()
	Speaking() bool
}

// NopMicrophone never captures audio.
type NopMicrophone struct{}

func (NopMicrophone) Listen(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// NopTranscriber returns empty transcripts.
type NopTranscriber struct{}

func (NopTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return "", nil
}

// NopSpeaker discards text.
type NopSpeaker struct{}

func (NopSpeaker) Feed(string)    {}
func (NopSpeaker) Stop()          {}
func (NopSpeaker) Speaking() bool { return false }
