package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/timmyzhu/WorkloadCompactor/internal/admission"
)

// AdmissionServer is the interface *admission.Service satisfies for this
// RPC surface.
type AdmissionServer interface {
	AddClients(ctx context.Context, clients []admission.ClientDescriptor, fastFirstFit bool) (admission.Status, bool)
	DelClient(ctx context.Context, name string) admission.Status
	AddQueue(q admission.QueueDescriptor) admission.Status
	DelQueue(name string) admission.Status
}

func admissionAddClientsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddClientsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*AddClientsRequest)
		status, admitted := srv.(AdmissionServer).AddClients(ctx, r.Clients, r.FastFirstFit)
		return &AddClientsResponse{Status: status, Admitted: admitted}, nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/admission.Admission/AddClients"}
	return interceptor(ctx, in, info, handle)
}

func admissionDelClientHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DelClientRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*DelClientRequest)
		return &StatusResponse{Status: srv.(AdmissionServer).DelClient(ctx, r.Name)}, nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/admission.Admission/DelClient"}
	return interceptor(ctx, in, info, handle)
}

func admissionAddQueueHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddQueueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*AddQueueRequest)
		return &StatusResponse{Status: srv.(AdmissionServer).AddQueue(r.Queue)}, nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/admission.Admission/AddQueue"}
	return interceptor(ctx, in, info, handle)
}

func admissionDelQueueHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DelQueueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*DelQueueRequest)
		return &StatusResponse{Status: srv.(AdmissionServer).DelQueue(r.Name)}, nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/admission.Admission/DelQueue"}
	return interceptor(ctx, in, info, handle)
}

// AdmissionServiceDesc is registered against a *grpc.Server with
// RegisterService(&AdmissionServiceDesc, server), where server implements
// AdmissionServer.
var AdmissionServiceDesc = grpc.ServiceDesc{
	ServiceName: "admission.Admission",
	HandlerType: (*AdmissionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddClients", Handler: admissionAddClientsHandler},
		{MethodName: "DelClient", Handler: admissionDelClientHandler},
		{MethodName: "AddQueue", Handler: admissionAddQueueHandler},
		{MethodName: "DelQueue", Handler: admissionDelQueueHandler},
	},
}

// AdmissionClient calls an Admission Service replica over gRPC. It
// implements internal/placement.ReplicaClient.
type AdmissionClient struct {
	conn *grpc.ClientConn
}

func NewAdmissionClient(conn *grpc.ClientConn) *AdmissionClient {
	return &AdmissionClient{conn: conn}
}

func (c *AdmissionClient) AddClients(ctx context.Context, clients []admission.ClientDescriptor, fastFirstFit bool) (admission.Status, bool, error) {
	req := &AddClientsRequest{Clients: clients, FastFirstFit: fastFirstFit}
	resp := new(AddClientsResponse)
	if err := c.conn.Invoke(ctx, "/admission.Admission/AddClients", req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return "", false, err
	}
	return resp.Status, resp.Admitted, nil
}

func (c *AdmissionClient) DelClient(ctx context.Context, name string) (admission.Status, error) {
	req := &DelClientRequest{Name: name}
	resp := new(StatusResponse)
	if err := c.conn.Invoke(ctx, "/admission.Admission/DelClient", req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *AdmissionClient) AddQueue(ctx context.Context, q admission.QueueDescriptor) (admission.Status, error) {
	req := &AddQueueRequest{Queue: q}
	resp := new(StatusResponse)
	if err := c.conn.Invoke(ctx, "/admission.Admission/AddQueue", req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *AdmissionClient) DelQueue(ctx context.Context, name string) (admission.Status, error) {
	req := &DelQueueRequest{Name: name}
	resp := new(StatusResponse)
	if err := c.conn.Invoke(ctx, "/admission.Admission/DelQueue", req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return "", err
	}
	return resp.Status, nil
}
