package ai

import (
	"iter"
	"strings"
)

// ReplyStream wraps a lazy, finite, non-restartable sequence of reply text
// fragments. It supports range-based iteration for real-time relaying and a
// convenience Collect() for callers who want the complete reply.
//
// Important: callers must consume the stream, either by iterating with Iter()
// (including breaking out of the loop early) or by calling Collect(). The
// underlying provider holds open resources (an HTTP response body) that are
// only released when the iterator completes or is abandoned via a loop break.
// Constructing a ReplyStream and never iterating it will leak those resources.
type ReplyStream struct {
	iterator iter.Seq2[string, error]
}

// NewReplyStream creates a ReplyStream from a raw fragment iterator.
// The iterator is expected to yield text fragments (with nil error) as they
// arrive from the backend, and may yield a non-nil error to signal a
// mid-stream failure, after which it must stop. The caller is responsible for
// consuming the returned ReplyStream (see ReplyStream documentation).
func NewReplyStream(iterator iter.Seq2[string, error]) *ReplyStream {
	return &ReplyStream{iterator: iterator}
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for fragment, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(fragment)
//	}
func (stream *ReplyStream) Iter() iter.Seq2[string, error] {
	return stream.iterator
}

// First consumes at most one fragment and abandons the stream, releasing the
// underlying connection. It is intended for health probing, where reading a
// single fragment proves the backend is responsive and draining further
// output would only waste backend resources. ok is false when the stream
// ends without yielding anything.
func (stream *ReplyStream) First() (fragment string, ok bool, err error) {
	for f, iterErr := range stream.iterator {
		if iterErr != nil {
			return "", false, iterErr
		}
		return f, true, nil
	}
	return "", false, nil
}

// Collect consumes the entire stream and returns the accumulated reply text.
// Any mid-stream error terminates collection and returns the partial text
// alongside the error.
func (stream *ReplyStream) Collect() (string, error) {
	var accumulated strings.Builder
	for fragment, err := range stream.iterator {
		if err != nil {
			return accumulated.String(), err
		}
		accumulated.WriteString(fragment)
	}
	return accumulated.String(), nil
}
