package rpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/timmyzhu/WorkloadCompactor/internal/log"
)

// callTimeout is the large per-call RPC timeout spec.md §5 calls for: a
// timed-out call surfaces as a local failure (rejected admission, dropped
// job reply), never as partial state.
const callTimeout = 2 * time.Minute

// Dial opens a client connection to addr with the options this system's
// RPC surfaces share: insecure transport (no mutual TLS, per the simplified
// threat model noted in this package's doc comment) and grpc.Dial's default
// non-blocking connect: Dial returns before the connection is up.
func Dial(addr string) (*grpc.ClientConn, error) {
	return grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// CallContext returns a context bounded by callTimeout, for callers that
// don't already have a deadline from their own caller.
func CallContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, callTimeout)
}

// Pool dials and caches one connection per address, used by the Placement
// Coordinator to reach its Admission Service replicas and by the storage
// enforcer to reach its downstream clients without redialing per call. It
// also satisfies EnforcementDialer.
type Pool struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func NewPool() *Pool {
	return &Pool{conns: make(map[string]*grpc.ClientConn)}
}

// Dial implements EnforcementDialer.
func (p *Pool) Dial(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[addr]; ok {
		return conn, nil
	}
	conn, err := Dial(addr)
	if err != nil {
		return nil, err
	}
	p.conns[addr] = conn
	return conn, nil
}

// Close tears down every pooled connection, logging (not failing on) any
// individual close error.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil {
			log.Warningf(ctx, "rpc: closing connection to %s failed: %v", addr, err)
		}
	}
	p.conns = make(map[string]*grpc.ClientConn)
}
