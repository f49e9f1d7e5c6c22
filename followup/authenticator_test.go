// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package followup

import (
	urlpkg "net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/httpc/request"
)

func TestBasicAuth(t *testing.T) {
	a := BasicAuth("user", "pass")
	credential := request.BasicAuth("user", "pass")

	t.Run("Unauthorized", func(t *testing.T) {
		e := newExecution(t, "GET", "http://example.com", 401,
			"Www-Authenticate", `Basic realm="private"`)
		followUp, err := a.Authenticate(e.Response, nil)
		require.NoError(t, err)
		require.NotNil(t, followUp)
		assert.Equal(t, credential, followUp.Header("Authorization"))
		assert.Equal(t, "", followUp.Header("Proxy-Authorization"))
	})
	t.Run("ProxyAuthRequired", func(t *testing.T) {
		e := newExecution(t, "GET", "http://example.com", 407,
			"Proxy-Authenticate", `Basic realm="proxy"`)
		followUp, err := a.Authenticate(e.Response, mustParseURL(t, "http://proxy.example.com:3128"))
		require.NoError(t, err)
		require.NotNil(t, followUp)
		assert.Equal(t, credential, followUp.Header("Proxy-Authorization"))
		assert.Equal(t, "", followUp.Header("Authorization"))
	})
	t.Run("NoChallenge", func(t *testing.T) {
		e := newExecution(t, "GET", "http://example.com", 401)
		followUp, err := a.Authenticate(e.Response, nil)
		assert.NoError(t, err)
		assert.Nil(t, followUp)
	})
	t.Run("NonBasicChallenge", func(t *testing.T) {
		e := newExecution(t, "GET", "http://example.com", 401,
			"Www-Authenticate", `Bearer realm="private"`)
		followUp, err := a.Authenticate(e.Response, nil)
		assert.NoError(t, err)
		assert.Nil(t, followUp)
	})
	t.Run("BasicAmongMultipleChallenges", func(t *testing.T) {
		e := newExecution(t, "GET", "http://example.com", 401,
			"Www-Authenticate", `Bearer realm="private", Basic realm="private"`)
		followUp, err := a.Authenticate(e.Response, nil)
		require.NoError(t, err)
		assert.NotNil(t, followUp)
	})
	t.Run("CaseInsensitiveScheme", func(t *testing.T) {
		e := newExecution(t, "GET", "http://example.com", 401,
			"Www-Authenticate", `basic realm="private"`)
		followUp, err := a.Authenticate(e.Response, nil)
		require.NoError(t, err)
		assert.NotNil(t, followUp)
	})
	t.Run("RejectedCredential", func(t *testing.T) {
		req, err := request.New("GET", "http://example.com", nil)
		require.NoError(t, err)
		req = req.Derive().Header("Authorization", credential).Build()
		resp := request.NewResponseBuilder().
			Request(req).
			StatusCode(401).
			Header("Www-Authenticate", `Basic realm="private"`).
			Build()
		followUp, err := a.Authenticate(resp, nil)
		assert.NoError(t, err)
		assert.Nil(t, followUp)
	})
	t.Run("DifferentCredentialReplaced", func(t *testing.T) {
		req, err := request.New("GET", "http://example.com", nil)
		require.NoError(t, err)
		req = req.Derive().Header("Authorization", request.BasicAuth("other", "stale")).Build()
		resp := request.NewResponseBuilder().
			Request(req).
			StatusCode(401).
			Header("Www-Authenticate", `Basic realm="private"`).
			Build()
		followUp, err := a.Authenticate(resp, nil)
		require.NoError(t, err)
		require.NotNil(t, followUp)
		assert.Equal(t, credential, followUp.Header("Authorization"))
	})
}

func TestAuthenticatorFunc(t *testing.T) {
	var called bool
	f := AuthenticatorFunc(func(resp *request.Response, _ *urlpkg.URL) (*request.Request, error) {
		called = true
		return nil, nil
	})
	e := newExecution(t, "GET", "http://example.com", 401)
	followUp, err := f.Authenticate(e.Response, nil)
	assert.NoError(t, err)
	assert.Nil(t, followUp)
	assert.True(t, called)
}
