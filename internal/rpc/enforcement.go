package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// EnforcementServer is implemented by a storage or network enforcement
// point (spec.md §6): updateClient/removeClient/getOccupancy, keyed by
// tenantKey.
type EnforcementServer interface {
	UpdateClient(ctx context.Context, tenantKey string, priority int, rates, bursts []float64) error
	RemoveClient(ctx context.Context, tenantKey string) error
	GetOccupancy(ctx context.Context, tenantKey string) (float64, error)
}

func enforcementUpdateClientHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateClientRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*UpdateClientRequest)
		err := srv.(EnforcementServer).UpdateClient(ctx, r.TenantKey, r.Priority, r.RateLimitRates, r.RateLimitBursts)
		return &StatusResponse{}, err
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/enforcement.Enforcement/UpdateClient"}
	return interceptor(ctx, in, info, handle)
}

func enforcementRemoveClientHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RemoveClientRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*RemoveClientRequest)
		err := srv.(EnforcementServer).RemoveClient(ctx, r.TenantKey)
		return &StatusResponse{}, err
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/enforcement.Enforcement/RemoveClient"}
	return interceptor(ctx, in, info, handle)
}

func enforcementGetOccupancyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOccupancyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*GetOccupancyRequest)
		occ, err := srv.(EnforcementServer).GetOccupancy(ctx, r.TenantKey)
		return &GetOccupancyResponse{Occupancy: occ}, err
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/enforcement.Enforcement/GetOccupancy"}
	return interceptor(ctx, in, info, handle)
}

// EnforcementServiceDesc is registered against a *grpc.Server with
// RegisterService(&EnforcementServiceDesc, server).
var EnforcementServiceDesc = grpc.ServiceDesc{
	ServiceName: "enforcement.Enforcement",
	HandlerType: (*EnforcementServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UpdateClient", Handler: enforcementUpdateClientHandler},
		{MethodName: "RemoveClient", Handler: enforcementRemoveClientHandler},
		{MethodName: "GetOccupancy", Handler: enforcementGetOccupancyHandler},
	},
}

// EnforcementDialer resolves an enforcerAddr to a client connection,
// reusing connections across calls. The Admission Service owns one of
// these to implement admission.EnforcementPusher.
type EnforcementDialer interface {
	Dial(ctx context.Context, addr string) (*grpc.ClientConn, error)
}

// EnforcementPusher implements admission.EnforcementPusher over gRPC,
// dialing enforcement points on demand through an EnforcementDialer (so
// connections can be pooled and reused across the many flows that share an
// enforcement point).
type EnforcementPusher struct {
	Dialer EnforcementDialer
}

func (p *EnforcementPusher) UpdateClient(ctx context.Context, enforcerAddr, tenantKey string, priority int, rates, bursts []float64) error {
	conn, err := p.Dialer.Dial(ctx, enforcerAddr)
	if err != nil {
		return err
	}
	req := &UpdateClientRequest{TenantKey: tenantKey, Priority: priority, RateLimitRates: rates, RateLimitBursts: bursts}
	return conn.Invoke(ctx, "/enforcement.Enforcement/UpdateClient", req, new(StatusResponse), grpc.CallContentSubtype(codecName))
}

func (p *EnforcementPusher) RemoveClient(ctx context.Context, enforcerAddr, tenantKey string) error {
	conn, err := p.Dialer.Dial(ctx, enforcerAddr)
	if err != nil {
		return err
	}
	req := &RemoveClientRequest{TenantKey: tenantKey}
	return conn.Invoke(ctx, "/enforcement.Enforcement/RemoveClient", req, new(StatusResponse), grpc.CallContentSubtype(codecName))
}

func (p *EnforcementPusher) GetOccupancy(ctx context.Context, enforcerAddr, tenantKey string) (float64, error) {
	conn, err := p.Dialer.Dial(ctx, enforcerAddr)
	if err != nil {
		return 0, err
	}
	req := &GetOccupancyRequest{TenantKey: tenantKey}
	resp := new(GetOccupancyResponse)
	if err := conn.Invoke(ctx, "/enforcement.Enforcement/GetOccupancy", req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return 0, err
	}
	return resp.Occupancy, nil
}
