// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"io"
)

const badBodyTypeMsg = "httpc/request: invalid type (for body use nil, " +
	"string, []byte, io.Reader or io.ReadCloser)"

// A Body is the payload of a Request.
//
// A Body declares a content type and a content length, and can write
// its payload to the wire. The two length declarations are mutually
// exclusive on the wire: a Body with a known, non-negative content
// length is sent with a Content-Length header and must not be
// chunked, while a Body with unknown length (negative ContentLength)
// is sent with chunked transfer encoding and no Content-Length
// header. The execution logic sets the corresponding transport
// headers deterministically before the first attempt.
//
// A Body which can safely restart its payload from the beginning, for
// example because the payload is buffered in memory, should also
// implement Rewinder. A transport error during an attempt can only be
// recovered by replaying the request, and replay requires rewinding
// the body.
type Body interface {
	// ContentType returns the media type of the payload, for example
	// "application/json". Every Body must declare a content type; a
	// Body returning the empty string causes the execution to fail
	// fast before any network attempt is made.
	ContentType() string
	// ContentLength returns the length of the payload in bytes, or a
	// negative value if the length is unknown in advance (a streamed
	// payload).
	ContentLength() int64
	// WriteTo streams the payload to w, returning the number of bytes
	// written and any error encountered.
	WriteTo(w io.Writer) (int64, error)
}

// A Rewinder is a Body whose payload can be restarted from the
// beginning.
//
// Rewind resets the body so the next WriteTo call replays the full
// payload. The attempt recovery logic declines to retry a request
// whose body was partially written unless the body implements
// Rewinder, since replaying a non-rewindable body would send a
// corrupt payload.
type Rewinder interface {
	Rewind() error
}

// BodyBytes returns a Body with the given content type whose payload
// is the given byte slice. The returned body has a known content
// length, is safe to replay, and implements Rewinder.
//
// The caller must not modify b after passing it to BodyBytes.
func BodyBytes(contentType string, b []byte) Body {
	return &bytesBody{contentType: contentType, b: b}
}

// BodyString returns a Body with the given content type whose payload
// is the given string. The returned body has a known content length,
// is safe to replay, and implements Rewinder.
func BodyString(contentType, s string) Body {
	return &bytesBody{contentType: contentType, b: []byte(s)}
}

// BodyReader returns a Body with the given content type which streams
// its payload from r. The returned body has unknown content length,
// so it is sent with chunked transfer encoding, and it is not
// buffered.
//
// If r implements io.Seeker, the returned body also implements
// Rewinder by seeking back to the reader's starting offset, making
// the body safe to replay after a recoverable transport error.
// Otherwise the body can be sent at most once.
func BodyReader(contentType string, r io.Reader) Body {
	if s, ok := r.(io.Seeker); ok {
		return &seekerBody{readerBody: readerBody{contentType: contentType, r: r}, s: s}
	}
	return &readerBody{contentType: contentType, r: r}
}

// BodyOf converts a generic body parameter into a Body with the given
// content type.
//
// The body parameter may be nil, or it may be a string, []byte, or
// io.Reader. The conversion logic is:
//
// • If body is nil, a nil Body and no error is returned.
//
// • If body is a string or []byte, a fixed-length in-memory body is
// returned, as if by BodyString or BodyBytes.
//
// • If body is an io.Reader, a streaming body of unknown length is
// returned, as if by BodyReader.
//
// • If body is any other type, a nil Body and an error is returned.
func BodyOf(contentType string, body interface{}) (Body, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return BodyString(contentType, x), nil
	case []byte:
		return BodyBytes(contentType, x), nil
	case io.Reader:
		return BodyReader(contentType, x), nil
	default:
		return nil, errors.New(badBodyTypeMsg)
	}
}

type bytesBody struct {
	contentType string
	b           []byte
}

func (b *bytesBody) ContentType() string {
	return b.contentType
}

func (b *bytesBody) ContentLength() int64 {
	return int64(len(b.b))
}

func (b *bytesBody) WriteTo(w io.Writer) (int64, error) {
	return io.Copy(w, bytes.NewReader(b.b))
}

// Rewind restarts the payload. It never fails: an in-memory body
// replays from its backing slice on every WriteTo call.
func (b *bytesBody) Rewind() error {
	return nil
}

type readerBody struct {
	contentType string
	r           io.Reader
}

func (b *readerBody) ContentType() string {
	return b.contentType
}

func (b *readerBody) ContentLength() int64 {
	return -1
}

func (b *readerBody) WriteTo(w io.Writer) (int64, error) {
	return io.Copy(w, b.r)
}

type seekerBody struct {
	readerBody
	s io.Seeker
}

func (b *seekerBody) Rewind() error {
	_, err := b.s.Seek(0, io.SeekStart)
	return err
}
