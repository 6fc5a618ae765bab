package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Collector runs a temporary localhost web server on the OAuth2 redirect
// address and captures the one-time authorization code when the user
// completes the browser flow.
type Collector struct {
	Addr string // host:port, default localhost:9876
}

// Run serves until a code (or an error from the authority) arrives at
// /auth, then shuts the server down and returns the code. The context bounds
// how long to wait for the user.
func (c *Collector) Run(ctx context.Context) (string, error) {
	addr := c.Addr
	if addr == "" {
		addr = "localhost:9876"
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	r := chi.NewRouter()
	r.Get("/auth", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization refused: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("redirect carried no code")
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "Token received.")

		// Later hits (reloads) are dropped; the first result wins.
		select {
		case results <- res:
		default:
		}
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: r}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	var res result
	select {
	case res = <-results:
	case err := <-serveErr:
		return "", fmt.Errorf("auth collector: %w", err)
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutCtx)

	if res.err != nil {
		return "", res.err
	}
	return res.code, nil
}
