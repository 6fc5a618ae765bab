package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestCollector_CapturesCode(t *testing.T) {
	addr := freeAddr(t)
	c := &Collector{Addr: addr}

	done := make(chan struct{})
	var code string
	var runErr error
	go func() {
		defer close(done)
		code, runErr = c.Run(context.Background())
	}()

	// Wait for the listener, then play the authority's redirect.
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/auth?code=one-time", addr))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	<-done
	require.NoError(t, runErr)
	assert.Equal(t, "one-time", code)
}

func TestCollector_AuthorityError(t *testing.T) {
	addr := freeAddr(t)
	c := &Collector{Addr: addr}

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		_, runErr = c.Run(context.Background())
	}()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/auth?error=access_denied", addr))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	resp.Body.Close()

	<-done
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "access_denied")
}

func TestCollector_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := &Collector{Addr: freeAddr(t)}
	_, err := c.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
