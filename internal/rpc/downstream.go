package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/timmyzhu/WorkloadCompactor/internal/scheduler"
)

// ForwardRequest carries an admitted job's identifying details downstream;
// the storage shim is responsible for attaching the original request
// payload out of band (this system schedules and accounts for requests, it
// does not proxy their bodies).
type ForwardRequest struct {
	JobID       string `json:"jobId"`
	Tenant      string `json:"tenant"`
	IsRead      bool   `json:"isRead"`
	RequestSize int64  `json:"requestSize"`
}

type ForwardResponse struct{}

type PingRequest struct{}
type PingResponse struct{}

// DownstreamServer is what a downstream storage service exposes to the
// scheduler's worker pool.
type DownstreamServer interface {
	Forward(ctx context.Context, req *ForwardRequest) (*ForwardResponse, error)
	Ping(ctx context.Context) error
}

func downstreamForwardHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ForwardRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DownstreamServer).Forward(ctx, req.(*ForwardRequest))
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/storage.Storage/Forward"}
	return interceptor(ctx, in, info, handle)
}

func downstreamPingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		return &PingResponse{}, srv.(DownstreamServer).Ping(ctx)
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/storage.Storage/Ping"}
	return interceptor(ctx, in, info, handle)
}

// DownstreamServiceDesc is registered against a *grpc.Server with
// RegisterService(&DownstreamServiceDesc, server).
var DownstreamServiceDesc = grpc.ServiceDesc{
	ServiceName: "storage.Storage",
	HandlerType: (*DownstreamServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Forward", Handler: downstreamForwardHandler},
		{MethodName: "Ping", Handler: downstreamPingHandler},
	},
}

// DownstreamClient implements scheduler.DownstreamClient over gRPC: one
// client handle per pool slot, forwarding admitted jobs to the storage
// service fronted by this enforcer and keeping it alive with Ping.
type DownstreamClient struct {
	conn *grpc.ClientConn
}

func NewDownstreamClient(conn *grpc.ClientConn) *DownstreamClient {
	return &DownstreamClient{conn: conn}
}

func (c *DownstreamClient) Forward(ctx context.Context, job *scheduler.Job) error {
	ctx, cancel := CallContext(ctx)
	defer cancel()
	req := &ForwardRequest{JobID: job.ID, Tenant: job.Tenant, IsRead: job.Class == scheduler.JobRead, RequestSize: job.RequestSize}
	return c.conn.Invoke(ctx, "/storage.Storage/Forward", req, new(ForwardResponse), grpc.CallContentSubtype(codecName))
}

func (c *DownstreamClient) KeepAlive(ctx context.Context) error {
	ctx, cancel := CallContext(ctx)
	defer cancel()
	return c.conn.Invoke(ctx, "/storage.Storage/Ping", new(PingRequest), new(PingResponse), grpc.CallContentSubtype(codecName))
}
