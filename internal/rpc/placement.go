package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/timmyzhu/WorkloadCompactor/internal/admission"
)

// PlacementServer is the PC addClients/delClients surface (spec.md §6).
// cmd/placement-coordinator's main wires a concrete implementation that
// renders clientInfo per candidate server and drives
// internal/placement.Coordinator.
type PlacementServer interface {
	AddClients(ctx context.Context, req *PlaceRequest) (*PlaceResponse, error)
	DelClients(ctx context.Context, names []string) admission.Status
}

func placementAddClientsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PlaceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PlacementServer).AddClients(ctx, req.(*PlaceRequest))
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/placement.Placement/AddClients"}
	return interceptor(ctx, in, info, handle)
}

func placementDelClientsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DelClientsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*DelClientsRequest)
		return &StatusResponse{Status: srv.(PlacementServer).DelClients(ctx, r.Names)}, nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/placement.Placement/DelClients"}
	return interceptor(ctx, in, info, handle)
}

// PlacementServiceDesc is registered against a *grpc.Server with
// RegisterService(&PlacementServiceDesc, server).
var PlacementServiceDesc = grpc.ServiceDesc{
	ServiceName: "placement.Placement",
	HandlerType: (*PlacementServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddClients", Handler: placementAddClientsHandler},
		{MethodName: "DelClients", Handler: placementDelClientsHandler},
	},
}

// PlacementClient calls the Placement Coordinator over gRPC. It is the
// client side for spec.md §6's "-t topo -o out -s server" placement-client
// tool; this module ships no such binary, and nothing in it calls this type.
type PlacementClient struct {
	conn *grpc.ClientConn
}

func NewPlacementClient(conn *grpc.ClientConn) *PlacementClient {
	return &PlacementClient{conn: conn}
}

func (c *PlacementClient) AddClients(ctx context.Context, req *PlaceRequest) (*PlaceResponse, error) {
	resp := new(PlaceResponse)
	if err := c.conn.Invoke(ctx, "/placement.Placement/AddClients", req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *PlacementClient) DelClients(ctx context.Context, names []string) (admission.Status, error) {
	req := &DelClientsRequest{Names: names}
	resp := new(StatusResponse)
	if err := c.conn.Invoke(ctx, "/placement.Placement/DelClients", req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return "", err
	}
	return resp.Status, nil
}
