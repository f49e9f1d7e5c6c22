// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package followup

import (
	"net/http"
	urlpkg "net/url"
	"strings"

	"github.com/gogama/httpc/request"
)

// An Authenticator answers authentication challenges received during
// a logical request execution.
//
// Authenticate receives the 401 or 407 response containing the
// challenge, together with the URL of the proxy currently in effect
// (nil for a direct connection). It returns a new request carrying
// credentials to attempt next, or nil to decline, in which case the
// challenge response is delivered to the caller unchanged. An
// authenticator should decline rather than resend a credential the
// server has already rejected, since repeating it would loop forever.
//
// Implementations of Authenticator must be safe for concurrent use by
// multiple goroutines.
type Authenticator interface {
	Authenticate(resp *request.Response, proxy *urlpkg.URL) (*request.Request, error)
}

// The AuthenticatorFunc type is an adapter to allow the use of
// ordinary functions as authenticators.
type AuthenticatorFunc func(resp *request.Response, proxy *urlpkg.URL) (*request.Request, error)

// Authenticate calls f(resp, proxy).
func (f AuthenticatorFunc) Authenticate(resp *request.Response, proxy *urlpkg.URL) (*request.Request, error) {
	return f(resp, proxy)
}

// BasicAuth returns an Authenticator answering HTTP Basic challenges
// with the given username and password.
//
// On a 401 response carrying a Basic challenge in WWW-Authenticate,
// the returned authenticator derives a request with an Authorization
// header; on a 407 carrying a Basic challenge in Proxy-Authenticate,
// it sets Proxy-Authorization instead. It declines when the response
// carries no Basic challenge, and when the challenged request already
// carried the same credential, since the server has evidently
// rejected it.
func BasicAuth(username, password string) Authenticator {
	return &basicAuthenticator{credential: request.BasicAuth(username, password)}
}

type basicAuthenticator struct {
	credential string
}

func (a *basicAuthenticator) Authenticate(resp *request.Response, _ *urlpkg.URL) (*request.Request, error) {
	challenge, credential := "WWW-Authenticate", "Authorization"
	if resp.StatusCode() == http.StatusProxyAuthRequired {
		challenge, credential = "Proxy-Authenticate", "Proxy-Authorization"
	}
	if !hasBasicChallenge(resp.Headers().Values(challenge)) {
		return nil, nil
	}
	if resp.Request().Header(credential) == a.credential {
		return nil, nil
	}
	return resp.Request().Derive().Header(credential, a.credential).Build(), nil
}

// hasBasicChallenge reports whether any of the challenge header
// values advertises the Basic scheme. Each header value holds one or
// more comma-separated challenges of the form "Scheme params" per
// RFC 7235.
func hasBasicChallenge(values []string) bool {
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			c = strings.TrimSpace(c)
			scheme, _, _ := strings.Cut(c, " ")
			if strings.EqualFold(scheme, "Basic") {
				return true
			}
		}
	}
	return false
}
