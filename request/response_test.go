// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseBuilder(t *testing.T) {
	req, err := New("GET", "http://example.com", nil)
	require.NoError(t, err)

	t.Run("RequiresRequest", func(t *testing.T) {
		assert.Panics(t, func() { NewResponseBuilder().Build() })
		assert.Panics(t, func() { NewResponseBuilder().Request(nil) })
	})
	t.Run("Build", func(t *testing.T) {
		resp := NewResponseBuilder().
			Request(req).
			StatusCode(204).
			Header("X-Tide", "low").
			AddHeader("X-Tide", "high").
			Build()
		assert.Same(t, req, resp.Request())
		assert.Equal(t, 204, resp.StatusCode())
		assert.Equal(t, "low", resp.Header("X-Tide"))
		assert.Equal(t, []string{"low", "high"}, resp.Headers().Values("X-Tide"))
		assert.Nil(t, resp.Body())
		assert.Nil(t, resp.RedirectedBy())
	})
	t.Run("Headers", func(t *testing.T) {
		h := http.Header{"Content-Type": {"text/html"}}
		resp := NewResponseBuilder().Request(req).StatusCode(200).Headers(h).Build()
		h.Set("Content-Type", "mutated/after")
		assert.Equal(t, "text/html", resp.Header("Content-Type"))
	})
	t.Run("BuilderReusableAfterBuild", func(t *testing.T) {
		b := NewResponseBuilder().Request(req).StatusCode(200)
		resp1 := b.Build()
		resp2 := b.StatusCode(500).Build()
		assert.Equal(t, 200, resp1.StatusCode())
		assert.Equal(t, 500, resp2.StatusCode())
	})
}

func TestResponse_Derive(t *testing.T) {
	req, err := New("GET", "http://example.com", nil)
	require.NoError(t, err)
	first := NewResponseBuilder().Request(req).StatusCode(302).Header("Location", "/next").Build()
	second := NewResponseBuilder().Request(req).StatusCode(200).Build()

	derived := second.Derive().RedirectedBy(first).Build()
	assert.Equal(t, 200, derived.StatusCode())
	assert.Same(t, first, derived.RedirectedBy())
	assert.Nil(t, first.RedirectedBy())
	assert.Nil(t, second.RedirectedBy())
}

func TestResponseBody(t *testing.T) {
	t.Run("ContentType", func(t *testing.T) {
		testCases := []struct {
			name    string
			header  http.Header
			expects string
		}{
			{"Absent", http.Header{}, ""},
			{"Plain", http.Header{"Content-Type": {"text/html"}}, "text/html"},
			{"WithParams", http.Header{"Content-Type": {"text/html; charset=utf-8"}}, "text/html"},
			{"Malformed", http.Header{"Content-Type": {";;;"}}, ""},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				b := NewResponseBody(testCase.header, io.NopCloser(strings.NewReader("")))
				assert.Equal(t, testCase.expects, b.ContentType())
			})
		}
	})
	t.Run("ContentLength", func(t *testing.T) {
		testCases := []struct {
			name    string
			header  http.Header
			expects int64
		}{
			{"Absent", http.Header{}, -1},
			{"Explicit", http.Header{"Content-Length": {"42"}}, 42},
			{"Zero", http.Header{"Content-Length": {"0"}}, 0},
			{"Malformed", http.Header{"Content-Length": {"many"}}, -1},
			{"Negative", http.Header{"Content-Length": {"-7"}}, -1},
			{"Chunked", http.Header{"Transfer-Encoding": {"chunked"}}, -1},
			{"ChunkedWins", http.Header{
				"Transfer-Encoding": {"gzip, chunked"},
				"Content-Length":    {"42"},
			}, -1},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				b := NewResponseBody(testCase.header, io.NopCloser(strings.NewReader("")))
				assert.Equal(t, testCase.expects, b.ContentLength())
			})
		}
	})
	t.Run("SourceIsLazy", func(t *testing.T) {
		src := &countingCloser{Reader: strings.NewReader("payload")}
		b := NewResponseBody(http.Header{}, src)
		data, err := io.ReadAll(b.Source())
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		require.NoError(t, b.Close())
		assert.Equal(t, 1, src.closes)
	})
	t.Run("NilSource", func(t *testing.T) {
		b := NewResponseBody(http.Header{}, nil)
		data, err := io.ReadAll(b.Source())
		require.NoError(t, err)
		assert.Empty(t, data)
		assert.NoError(t, b.Close())
	})
}

type countingCloser struct {
	io.Reader
	closes int
}

func (c *countingCloser) Close() error {
	c.closes++
	return nil
}
