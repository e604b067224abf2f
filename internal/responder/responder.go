// Package responder answers "Who's there?" over a ZeroMQ request/reply
// socket with the name of the person currently recognized.
package responder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/ayusman/skelid/internal/monitoring"
)

// Query is the only request that gets a non-empty reply.
const Query = "Who's there?"

// DefaultAddr is the endpoint existing clients connect to.
const DefaultAddr = "tcp://*:2804"

// DefaultTimeout is how long Ask waits for a reply.
const DefaultTimeout = 5 * time.Second

// recvErrorBackoff keeps a failing socket from spinning.
const recvErrorBackoff = 100 * time.Millisecond

// NameSource provides the currently recognized name. presence.Tracker
// implements it.
type NameSource interface {
	Name() string
}

// Reply returns the answer to a request: the current name for Query, the
// empty string for anything else.
func Reply(names NameSource, request string) string {
	if request != Query {
		return ""
	}
	return names.Name()
}

// Responder serves Reply on a REP socket.
type Responder struct {
	names NameSource

	mu   sync.Mutex
	sock zmq4.Socket
}

// New creates a responder reading names from names.
func New(names NameSource) *Responder {
	return &Responder{names: names}
}

// Listen binds the socket to endpoint, e.g. DefaultAddr. The socket lives
// until ctx is cancelled or Close is called.
func (r *Responder) Listen(ctx context.Context, endpoint string) error {
	sock := zmq4.NewRep(ctx)
	if err := sock.Listen(endpoint); err != nil {
		sock.Close()
		return fmt.Errorf("listen %s: %w", endpoint, err)
	}

	r.mu.Lock()
	r.sock = sock
	r.mu.Unlock()

	monitoring.Logf("responder listening on %s", endpoint)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sock == nil {
		return nil
	}
	return r.sock.Addr()
}

// Serve answers requests until ctx is done. Every request gets exactly one
// reply; a request that cannot be handled gets an empty one.
func (r *Responder) Serve(ctx context.Context) error {
	r.mu.Lock()
	sock := r.sock
	r.mu.Unlock()
	if sock == nil {
		return errors.New("responder is not listening")
	}

	for {
		msg, err := sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if r.closed() {
				return nil
			}
			monitoring.Logf("responder receive error: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(recvErrorBackoff):
			}
			continue
		}

		request := string(bytes.Join(msg.Frames, nil))
		reply := r.answer(request)

		if err := sock.Send(zmq4.NewMsgString(reply)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			monitoring.Logf("error sending reply to %q: %v", request, err)
		}
	}
}

func (r *Responder) answer(request string) (reply string) {
	defer func() {
		if p := recover(); p != nil {
			monitoring.Logf("error answering %q: %v", request, p)
			reply = ""
		}
	}()
	return Reply(r.names, request)
}

// ListenAndServe binds endpoint and serves until ctx is done.
func (r *Responder) ListenAndServe(ctx context.Context, endpoint string) error {
	if err := r.Listen(ctx, endpoint); err != nil {
		return err
	}
	defer r.Close()
	return r.Serve(ctx)
}

func (r *Responder) closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sock == nil
}

// Close releases the socket.
func (r *Responder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sock == nil {
		return nil
	}
	err := r.sock.Close()
	r.sock = nil
	return err
}

// Ask sends request to a responder at endpoint and waits up to timeout for
// the reply.
func Ask(ctx context.Context, endpoint, request string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sock := zmq4.NewReq(ctx)
	defer sock.Close()

	type result struct {
		reply string
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		if err := sock.Dial(endpoint); err != nil {
			ch <- result{err: fmt.Errorf("dial %s: %w", endpoint, err)}
			return
		}
		if err := sock.Send(zmq4.NewMsgString(request)); err != nil {
			ch <- result{err: fmt.Errorf("send: %w", err)}
			return
		}
		msg, err := sock.Recv()
		if err != nil {
			ch <- result{err: fmt.Errorf("receive: %w", err)}
			return
		}
		ch <- result{reply: string(bytes.Join(msg.Frames, nil))}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("no reply from %s: %w", endpoint, ctx.Err())
	case r := <-ch:
		return r.reply, r.err
	}
}
