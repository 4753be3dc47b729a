package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	ContentTypeNDJSON = "application/x-ndjson"
	ContentTypeSSE    = "text/event-stream"
)

// Writer frames events onto a transport.
type Writer interface {
	WriteEvent(e Event) error
}

type flusher interface {
	Flush()
}

// NDJSONWriter writes one JSON object per line.
type NDJSONWriter struct {
	w   io.Writer
	enc *json.Encoder
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w, enc: json.NewEncoder(w)}
}

func (n *NDJSONWriter) WriteEvent(e Event) error {
	if err := n.enc.Encode(e); err != nil {
		return err
	}
	flush(n.w)
	return nil
}

// SSEWriter writes "event:" and "data:" lines per event.
type SSEWriter struct {
	w io.Writer
}

func NewSSEWriter(w io.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

func (s *SSEWriter) WriteEvent(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Type, data); err != nil {
		return err
	}
	flush(s.w)
	return nil
}

func flush(w io.Writer) {
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
}

// Pump delivers events from the stream to w until the terminal event. A
// write failure means the consumer is gone: the stream is detached so the
// run can finish without it, and the error is returned.
func Pump(ctx context.Context, s *Stream, w Writer) error {
	for {
		e, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.Detach()
			return err
		}
		if err := w.WriteEvent(e); err != nil {
			slog.Warn("Event delivery failed, detaching consumer", "seq", e.Seq, "type", e.Type, "error", err)
			s.Detach()
			return err
		}
	}
}
