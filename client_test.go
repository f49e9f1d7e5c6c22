// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/httpc/followup"
	"github.com/gogama/httpc/request"
	"github.com/gogama/httpc/timeout"
	"github.com/gogama/httpc/transient"
)

func TestClientZeroValue(t *testing.T) {
	cl := &Client{}
	assert.Same(t, DefaultTransport, cl.transport())
	assert.Same(t, followup.DefaultPolicy, cl.followUpPolicy())
	assert.NotNil(t, cl.handlers())
	assert.NotPanics(t, cl.CloseIdleConnections)
}

func TestClientServer(t *testing.T) {
	server := newTestServer()
	defer server.Close()
	t.Run("get", func(t *testing.T) { testServerGet(t, server) })
	t.Run("redirect chain", func(t *testing.T) { testServerRedirectChain(t, server) })
	t.Run("basic auth", func(t *testing.T) { testServerBasicAuth(t, server) })
	t.Run("post content length", func(t *testing.T) { testServerPostContentLength(t, server) })
	t.Run("post chunked", func(t *testing.T) { testServerPostChunked(t, server) })
	t.Run("temporary redirect", func(t *testing.T) { testServerTemporaryRedirect(t, server) })
	t.Run("too many redirects", func(t *testing.T) { testServerTooManyRedirects(t, server) })
	t.Run("attempt timeout", func(t *testing.T) { testServerAttemptTimeout(t, server) })
	t.Run("cancel", func(t *testing.T) { testServerCancel(t, server) })
}

func testServerGet(t *testing.T, server *httptest.Server) {
	cl := newTestClient(server)

	resp, err := cl.Get(server.URL + "/hello")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	body := resp.Body()
	require.NotNil(t, body)
	assert.Equal(t, "text/plain", body.ContentType())
	assert.Equal(t, int64(len("hello, client")), body.ContentLength())
	payload, err := io.ReadAll(body.Source())
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "hello, client", string(payload))
}

func testServerRedirectChain(t *testing.T, server *httptest.Server) {
	cl := newTestClient(server)

	resp, err := cl.Get(server.URL + "/redirect?n=2")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "/hello", resp.Request().URL().Path)

	// Three hops: n=2, n=1, then n=0 redirecting to /hello. The chain
	// is linked newest-first.
	var hops int
	for r := resp.RedirectedBy(); r != nil; r = r.RedirectedBy() {
		assert.Equal(t, 302, r.StatusCode())
		hops++
	}
	assert.Equal(t, 3, hops)

	payload, err := io.ReadAll(resp.Body().Source())
	require.NoError(t, err)
	require.NoError(t, resp.Body().Close())
	assert.Equal(t, "hello, client", string(payload))
}

func testServerBasicAuth(t *testing.T, server *httptest.Server) {
	t.Run("with authenticator", func(t *testing.T) {
		cl := newTestClient(server)
		cl.FollowUpPolicy = followup.New(
			followup.WithAuthenticator(followup.BasicAuth("user", "open sesame")))

		resp, err := cl.Get(server.URL + "/auth")

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode())
		payload, err := io.ReadAll(resp.Body().Source())
		require.NoError(t, err)
		require.NoError(t, resp.Body().Close())
		assert.Equal(t, "secret", string(payload))
	})
	t.Run("without authenticator", func(t *testing.T) {
		cl := newTestClient(server)

		resp, err := cl.Get(server.URL + "/auth")

		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode())
		assert.Contains(t, resp.Header("Www-Authenticate"), "Basic")
		require.NoError(t, resp.Body().Close())
	})
	t.Run("wrong password", func(t *testing.T) {
		cl := newTestClient(server)
		cl.FollowUpPolicy = followup.New(
			followup.WithAuthenticator(followup.BasicAuth("user", "wrong")))

		// The authenticator answers the challenge once, the server
		// rejects the credential, and the authenticator declines to
		// repeat it, so the second 401 is final.
		resp, err := cl.Get(server.URL + "/auth")

		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode())
		require.NoError(t, resp.Body().Close())
	})
}

func testServerPostContentLength(t *testing.T, server *httptest.Server) {
	cl := newTestClient(server)

	resp, err := cl.Post(server.URL+"/echo", "text/plain", "hello")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "5", resp.Header("X-Request-Content-Length"))
	assert.Equal(t, "", resp.Header("X-Request-Chunked"))
	payload, err := io.ReadAll(resp.Body().Source())
	require.NoError(t, err)
	require.NoError(t, resp.Body().Close())
	assert.Equal(t, "hello", string(payload))
}

func testServerPostChunked(t *testing.T, server *httptest.Server) {
	cl := newTestClient(server)
	body := request.BodyReader("text/plain", onlyReader{strings.NewReader("streamed")})
	req, err := request.New("POST", server.URL+"/echo", body)
	require.NoError(t, err)

	resp, err := cl.Do(req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "true", resp.Header("X-Request-Chunked"))
	payload, err := io.ReadAll(resp.Body().Source())
	require.NoError(t, err)
	require.NoError(t, resp.Body().Close())
	assert.Equal(t, "streamed", string(payload))
}

func testServerTemporaryRedirect(t *testing.T, server *httptest.Server) {
	t.Run("GET follows", func(t *testing.T) {
		cl := newTestClient(server)

		resp, err := cl.Get(server.URL + "/307")

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode())
		assert.NotNil(t, resp.RedirectedBy())
		require.NoError(t, resp.Body().Close())
	})
	t.Run("POST does not follow", func(t *testing.T) {
		cl := newTestClient(server)

		resp, err := cl.Post(server.URL+"/307", "text/plain", "hello")

		require.NoError(t, err)
		assert.Equal(t, 307, resp.StatusCode())
		assert.Nil(t, resp.RedirectedBy())
		require.NoError(t, resp.Body().Close())
	})
}

func testServerTooManyRedirects(t *testing.T, server *httptest.Server) {
	cl := newTestClient(server)
	cl.FollowUpPolicy = followup.New(followup.WithMaxRedirects(3))

	resp, err := cl.Get(server.URL + "/loop")

	assert.Nil(t, resp)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	var protocolErr *followup.ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Contains(t, protocolErr.Reason, "too many redirects")
}

func testServerAttemptTimeout(t *testing.T, server *httptest.Server) {
	cl := newTestClient(server)
	cl.Transport = &HTTPTransport{
		Transport:     server.Client().Transport,
		TimeoutPolicy: timeout.Fixed(20 * time.Millisecond),
		MaxRecoveries: -1,
	}

	resp, err := cl.Get(server.URL + "/slow")

	assert.Nil(t, resp)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, transient.Timeout, transient.Categorize(err))
}

func testServerCancel(t *testing.T, server *httptest.Server) {
	cl := newTestClient(server)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := request.NewWithContext(ctx, "GET", server.URL+"/block", nil)
	require.NoError(t, err)

	type result struct {
		resp *request.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := cl.Do(req)
		done <- result{resp, err}
	}()

	<-blockStarted
	cancel()
	res := <-done

	assert.Nil(t, res.resp)
	assert.Same(t, ErrCanceled, res.err)
}

// newTestClient builds a client whose transport trusts the test
// server's TLS configuration and never retries, so each subtest
// controls its attempt count.
func newTestClient(server *httptest.Server) *Client {
	return &Client{
		Transport: &HTTPTransport{
			Transport:     server.Client().Transport,
			TimeoutPolicy: timeout.Fixed(5 * time.Second),
			MaxRecoveries: -1,
		},
	}
}

var blockStarted = make(chan struct{}, 16)

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "hello, client")
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n > 0 {
			http.Redirect(w, r, fmt.Sprintf("/redirect?n=%d", n-1), http.StatusFound)
			return
		}
		http.Redirect(w, r, "/hello", http.StatusFound)
	})
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "open sesame" {
			w.Header().Set("WWW-Authenticate", `Basic realm="test"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, "secret")
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength >= 0 {
			w.Header().Set("X-Request-Content-Length", strconv.FormatInt(r.ContentLength, 10))
		} else {
			w.Header().Set("X-Request-Chunked", "true")
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.Copy(w, r.Body)
	})
	mux.HandleFunc("/307", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hello", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		blockStarted <- struct{}{}
		<-r.Context().Done()
	})
	return httptest.NewServer(mux)
}

func TestClientCloseIdleConnections(t *testing.T) {
	closer := &idleCloseTransport{}
	cl := &Client{Transport: &HTTPTransport{Transport: closer}}
	cl.CloseIdleConnections()
	assert.Equal(t, 1, closer.calls)
}

type idleCloseTransport struct {
	calls int
}

func (t *idleCloseTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("not implemented")
}

func (t *idleCloseTransport) CloseIdleConnections() {
	t.calls++
}
