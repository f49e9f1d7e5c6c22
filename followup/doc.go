// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package followup decides what to do next after each response read
// during a logical HTTP request execution: deliver the response to
// the caller, follow a redirect, or answer an authentication
// challenge.
//
// The interface Policy defines a follow-up policy. Construct one with
// New, configuring it with options:
//
//	policy := followup.New(
//		followup.WithMaxRedirects(5),
//		followup.WithProtocolRedirects(false),
//		followup.WithAuthenticator(followup.BasicAuth("user", "pass")))
//
// The built-in DefaultPolicy follows up to DefaultMaxRedirects
// redirects, allows redirects crossing between http and https, and
// answers no authentication challenges.
//
// Authentication is delegated to the Authenticator interface. The
// built-in BasicAuth authenticator answers Basic challenges; custom
// schemes can be supported by implementing Authenticator, or by
// wrapping an ordinary function in AuthenticatorFunc.
package followup
