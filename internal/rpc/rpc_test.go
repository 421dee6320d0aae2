package rpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/admission"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := &AddClientsRequest{
		Clients:      []admission.ClientDescriptor{{Name: "A", SLO: 10}},
		FastFirstFit: true,
	}
	data, err := c.Marshal(req)
	require.NoError(t, err)
	require.Equal(t, "json", c.Name())

	got := new(AddClientsRequest)
	require.NoError(t, c.Unmarshal(data, got))
	require.Equal(t, req.Clients, got.Clients)
	require.Equal(t, req.FastFirstFit, got.FastFirstFit)
}

type fakeAdmissionServer struct {
	lastFastFirstFit bool
	status           admission.Status
	admitted         bool
}

func (f *fakeAdmissionServer) AddClients(ctx context.Context, clients []admission.ClientDescriptor, fastFirstFit bool) (admission.Status, bool) {
	f.lastFastFirstFit = fastFirstFit
	return f.status, f.admitted
}
func (f *fakeAdmissionServer) DelClient(ctx context.Context, name string) admission.Status {
	return f.status
}
func (f *fakeAdmissionServer) AddQueue(q admission.QueueDescriptor) admission.Status { return f.status }
func (f *fakeAdmissionServer) DelQueue(name string) admission.Status                 { return f.status }

func TestAdmissionAddClientsHandlerDispatchesToServer(t *testing.T) {
	srv := &fakeAdmissionServer{status: admission.StatusOK, admitted: true}
	dec := func(v interface{}) error {
		*(v.(*AddClientsRequest)) = AddClientsRequest{FastFirstFit: true}
		return nil
	}

	out, err := admissionAddClientsHandler(srv, context.Background(), dec, nil)
	require.NoError(t, err)
	resp := out.(*AddClientsResponse)
	require.Equal(t, admission.StatusOK, resp.Status)
	require.True(t, resp.Admitted)
	require.True(t, srv.lastFastFirstFit)
}
