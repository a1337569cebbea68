package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/windowgate/slidinglimit/logging"
)

// request is the newline-delimited JSON envelope read off the wire: one
// request per line, "method" selects "acquire" or "health". This stands
// in for a production RPC framework — cmd/ratelimitd needs something to
// actually listen on, not a full transport stack.
type request struct {
	Method   string `json:"method"`
	Resource string `json:"resource"`
	Caller   string `json:"caller"`
}

type response struct {
	*AcquireResponse `json:",omitempty"`
	*HealthResponse  `json:",omitempty"`
	Error            string `json:"error,omitempty"`
}

// NewListener binds addr, returning the live net.Listener so callers can
// read back its actual address (e.g. when addr uses port 0).
func NewListener(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is canceled, serving each one
// newline-delimited JSON request at a time against srv. One goroutine per
// connection; Acquire's single suspension point (the backend round trip)
// is the only thing a handler blocks on.
func Serve(ctx context.Context, ln net.Listener, srv *Server, log logging.Logger) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	log.Infof("rpc: listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("rpc: accept: %w", err)
		}
		go handleConn(ctx, conn, srv, log)
	}
}

// Listen binds addr and serves it, combining NewListener and Serve for the
// common case where the caller doesn't need the bound address back.
func Listen(ctx context.Context, addr string, srv *Server, log logging.Logger) error {
	ln, err := NewListener(ctx, addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, srv, log)
}

func handleConn(ctx context.Context, conn net.Conn, srv *Server, log logging.Logger) {
	defer func() { _ = conn.Close() }()

	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			_ = enc.Encode(response{Error: fmt.Sprintf("bad request: %v", err)})
			continue
		}

		switch req.Method {
		case "acquire":
			resp := srv.Acquire(ctx, AcquireRequest{Resource: req.Resource, Caller: req.Caller})
			_ = enc.Encode(response{AcquireResponse: &resp})
		case "health":
			resp := srv.Health(ctx)
			_ = enc.Encode(response{HealthResponse: &resp})
		default:
			_ = enc.Encode(response{Error: fmt.Sprintf("unknown method %q", req.Method)})
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Debug("rpc: connection scan error")
	}
}
