package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/cart0113/mod2doctest/pkg/sink"
)

// RunIDHeader carries the CLI run id on every request.
const RunIDHeader = "X-Mod2doctest-Run-Id"

// Payload is the JSON body posted for a finished document.
type Payload struct {
	RunID       string    `json:"run_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination"`
	Outcome     string    `json:"outcome,omitempty"`
	Document    string    `json:"document"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Sink delivers documents to one webhook endpoint.
type Sink struct {
	client *Client
	opts   SendOptions
	runID  string
	source string
	prior  string
	now    func() time.Time
	last   *Response
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithRunID tags payloads with the run id.
func WithRunID(id string) SinkOption {
	return func(s *Sink) {
		s.runID = id
	}
}

// WithSource records the source file the document was generated from.
func WithSource(path string) SinkOption {
	return func(s *Sink) {
		s.source = path
	}
}

// WithPriorOutcome records what the file sink did with the same document.
func WithPriorOutcome(o sink.Outcome) SinkOption {
	return func(s *Sink) {
		s.prior = o.String()
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) SinkOption {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSink creates a Sink posting through client with the given options.
func NewSink(client *Client, opts SendOptions, sinkOpts ...SinkOption) *Sink {
	if client == nil {
		client = NewClient()
	}
	s := &Sink{client: client, opts: opts, now: time.Now}
	for _, opt := range sinkOpts {
		opt(s)
	}
	if s.runID != "" {
		headers := make(map[string]string, len(opts.Headers)+1)
		for k, v := range opts.Headers {
			headers[k] = v
		}
		headers[RunIDHeader] = s.runID
		s.opts.Headers = headers
	}
	return s
}

// Put posts the document. It returns OutcomeSent on a 2xx response.
func (s *Sink) Put(ctx context.Context, dest string, doc []byte) (sink.Outcome, error) {
	payload := Payload{
		RunID:       s.runID,
		Source:      s.source,
		Destination: dest,
		Outcome:     s.prior,
		Document:    string(doc),
		GeneratedAt: s.now().UTC(),
	}

	resp := s.client.Send(ctx, payload, s.opts)
	s.last = resp
	if !resp.Success() {
		if resp.Error == nil {
			return sink.OutcomeDeclined, fmt.Errorf("webhook %s: unexpected status %d", s.opts.URL, resp.StatusCode)
		}
		return sink.OutcomeDeclined, fmt.Errorf("webhook %s: %w", s.opts.URL, resp.Error)
	}
	return sink.OutcomeSent, nil
}

// LastResponse returns the response to the most recent Put, or nil.
func (s *Sink) LastResponse() *Response {
	return s.last
}

var _ sink.Sink = (*Sink)(nil)
