// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution_StatusCode(t *testing.T) {
	e := &Execution{}
	assert.Equal(t, 0, e.StatusCode())
	req, err := New("GET", "http://example.com", nil)
	require.NoError(t, err)
	e.Response = NewResponseBuilder().Request(req).StatusCode(503).Build()
	assert.Equal(t, 503, e.StatusCode())
}

func TestExecution_Header(t *testing.T) {
	e := &Execution{}
	assert.Nil(t, e.Header())
	assert.Equal(t, "", e.Header().Get("X-Anything"))
	req, err := New("GET", "http://example.com", nil)
	require.NoError(t, err)
	e.Response = NewResponseBuilder().Request(req).StatusCode(200).Header("X-Buoy", "red").Build()
	assert.Equal(t, "red", e.Header().Get("X-Buoy"))
}

func TestExecution_Duration(t *testing.T) {
	e := &Execution{}
	assert.False(t, e.Started())
	assert.False(t, e.Ended())
	assert.Equal(t, time.Duration(0), e.Duration())

	e.Start = time.Now().Add(-time.Minute)
	assert.True(t, e.Started())
	assert.False(t, e.Ended())
	assert.GreaterOrEqual(t, e.Duration(), time.Minute)

	e.End = e.Start.Add(90 * time.Second)
	assert.True(t, e.Ended())
	assert.Equal(t, 90*time.Second, e.Duration())
}

func TestExecution_Timeout(t *testing.T) {
	e := &Execution{}
	assert.False(t, e.Timeout())
	e.Err = errors.New("ordinary")
	assert.False(t, e.Timeout())
	e.Err = syscall.ETIMEDOUT
	assert.True(t, e.Timeout())
	e.Err = syscall.ECONNRESET
	assert.False(t, e.Timeout())
}

func TestExecution_Value(t *testing.T) {
	type key struct{}
	e := &Execution{}
	assert.Nil(t, e.Value(key{}))
	e.SetValue(key{}, "flotsam")
	assert.Equal(t, "flotsam", e.Value(key{}))
	e.SetValue(key{}, "jetsam")
	assert.Equal(t, "jetsam", e.Value(key{}))
}
