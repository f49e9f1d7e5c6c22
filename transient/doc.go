// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from HTTP request execution as
// transient or non-transient. The attempt engine recovery logic uses
// the classification to decide whether a failed attempt is worth
// replaying on a fresh connection, and it is also handy for other
// purposes such as bucketing error metrics.
//
// Package transient is extremely lightweight, as it depends only on
// the standard library packages "errors", "io", and "syscall", so it
// doesn't bring any significant dependencies when imported as a
// standalone package.
package transient
