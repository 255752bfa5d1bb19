// Package stream serializes generation session events into the ordered
// outbound stream consumed by the client: a smoothing pacer re-chunks text
// deltas at word boundaries independent of upstream batch size, and error
// events are replaced with a single generic message while the detail goes to
// the operator log.
package stream

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/logging"
)

// Chunking selects the smoothing policy applied to text deltas.
type Chunking string

const (
	// ChunkingWord re-buffers text deltas and emits whole words, keeping
	// perceived latency stable regardless of how the model batches tokens.
	ChunkingWord Chunking = "word"
	// ChunkingNone forwards text deltas exactly as produced upstream.
	ChunkingNone Chunking = "none"
)

// GenericErrorMessage is the only error text a client ever sees.
const GenericErrorMessage = "Oops, an error occurred!"

// Options configure a Merger.
type Options struct {
	Chunking Chunking
	// ErrorMessage substitutes every upstream error event's message.
	ErrorMessage string
	// Logger receives the detailed upstream error (operator channel).
	Logger logging.Logger
}

// Merger fans session events into one ordered outbound stream.
type Merger struct {
	opts Options
}

// NewMerger constructs a Merger with word chunking by default.
func NewMerger(optFns ...func(o *Options)) *Merger {
	opts := Options{
		Chunking:     ChunkingWord,
		ErrorMessage: GenericErrorMessage,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Merger{opts: opts}
}

// Pipe consumes the session's event channel and returns the outbound stream.
// The returned channel closes once the input closes and all buffered text has
// been flushed. Ordering is preserved: buffered text always flushes before a
// non-text event is forwarded.
func (m *Merger) Pipe(in <-chan core.StreamEvent) <-chan core.StreamEvent {
	out := make(chan core.StreamEvent, 64)

	go func() {
		defer close(out)

		var buf strings.Builder

		flush := func() {
			if buf.Len() == 0 {
				return
			}
			out <- core.NewTextDeltaEvent(buf.String())
			buf.Reset()
		}

		for ev := range in {
			switch ev.Type {
			case core.EventTextDelta:
				if m.opts.Chunking != ChunkingWord {
					out <- ev
					continue
				}
				buf.WriteString(ev.TextDelta)
				for _, word := range splitCompleteWords(&buf) {
					out <- core.NewTextDeltaEvent(word)
				}
			case core.EventError:
				flush()
				m.opts.Logger.Error("stream.error.substituted", "detail", ev.ErrorMessage)
				out <- core.NewErrorEvent(m.opts.ErrorMessage)
			default:
				flush()
				out <- ev
			}
		}

		flush()
	}()

	return out
}

// splitCompleteWords drains every complete word (text up to and including its
// trailing whitespace) from buf, leaving a trailing partial word buffered.
func splitCompleteWords(buf *strings.Builder) []string {
	s := buf.String()

	end := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			end = i + utf8.RuneLen(r)
		}
	}
	if end < 0 {
		return nil
	}

	complete := s[:end]
	rest := s[end:]

	buf.Reset()
	buf.WriteString(rest)

	var words []string
	start := 0
	for i, r := range complete {
		if unicode.IsSpace(r) {
			next := i + utf8.RuneLen(r)
			words = append(words, complete[start:next])
			start = next
		}
	}
	return words
}
