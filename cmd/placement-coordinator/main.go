// Command placement-coordinator runs the Placement Coordinator (PC):
// given a workload description and a set of candidate servers, it drives a
// worker per attached Admission Service replica to find the first server
// that admits the workload (spec.md §4.6), then serves that capability over
// the PC RPC surface (spec.md §6).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/timmyzhu/WorkloadCompactor/internal/admission"
	"github.com/timmyzhu/WorkloadCompactor/internal/log"
	"github.com/timmyzhu/WorkloadCompactor/internal/placement"
	"github.com/timmyzhu/WorkloadCompactor/internal/rpc"
)

var (
	replicaAddrs []string
	fastFirstFit bool
	listenAddr   string
)

func main() {
	cmd := &cobra.Command{
		Use:   "placement-coordinator",
		Short: "places workloads across a set of Admission Service replicas",
		RunE:  run,
	}
	cmd.Flags().StringArrayVarP(&replicaAddrs, "addr", "a", nil, "admission replica address (repeatable)")
	cmd.Flags().BoolVarP(&fastFirstFit, "fast-first-fit", "f", false, "enable fast-first-fit pre-check")
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8090", "address this coordinator serves the PC RPC surface on")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(replicaAddrs) == 0 {
		return errors.New("at least one -a admission replica address is required")
	}

	pool := rpc.NewPool()
	defer pool.Close(ctx)

	replicas := make([]placement.ReplicaClient, len(replicaAddrs))
	for i, addr := range replicaAddrs {
		conn, err := pool.Dial(ctx, addr)
		if err != nil {
			return errors.Wrapf(err, "dialing replica %s", addr)
		}
		replicas[i] = rpc.NewAdmissionClient(conn)
	}
	coordinator := &placement.Coordinator{Replicas: replicas}

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", listenAddr)
	}
	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&rpc.PlacementServiceDesc, &placementServer{coordinator: coordinator, defaultFastFirstFit: fastFirstFit})

	log.Infof(ctx, "placement-coordinator: listening on %s with %d replica(s)", listenAddr, len(replicaAddrs))
	errCh := make(chan error, 1)
	go func() { errCh <- grpcServer.Serve(lis) }()

	select {
	case <-ctx.Done():
		grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// placementServer adapts placement.Coordinator to the PC RPC surface,
// applying the client-VM selection rule (spec.md §4.6) per candidate
// server.
type placementServer struct {
	coordinator         *placement.Coordinator
	defaultFastFirstFit bool
}

func (s *placementServer) AddClients(ctx context.Context, req *rpc.PlaceRequest) (*rpc.PlaceResponse, error) {
	if len(req.ServerHosts) != len(req.ServerVMs) {
		return nil, errors.New("serverHosts and serverVMs must be the same length")
	}
	candidates := make([]placement.ServerCandidate, len(req.ServerHosts))
	for i := range req.ServerHosts {
		candidates[i] = placement.ServerCandidate{Host: req.ServerHosts[i], VM: req.ServerVMs[i]}
	}

	fastFirstFit := s.defaultFastFirstFit || req.Enforce

	render := func(sc placement.ServerCandidate) []admission.ClientDescriptor {
		clientHost, clientVM := selectClientVM(sc, req.ClientVMs)
		return substituteClients(req.Clients, req.AddrPrefix, sc, clientHost, clientVM)
	}

	result, admitted, err := s.coordinator.Place(ctx, candidates, render, fastFirstFit)
	if err != nil {
		return nil, err
	}
	if !admitted {
		return &rpc.PlaceResponse{Status: admission.StatusInvalidArgument, Admitted: false}, nil
	}
	clientHost, clientVM := selectClientVM(result.Server, req.ClientVMs)
	return &rpc.PlaceResponse{
		Status:      admission.StatusOK,
		Admitted:    true,
		ClientHosts: []string{clientHost},
		ClientVMs:   []string{clientVM},
		ServerHosts: []string{result.Server.Host},
		ServerVMs:   []string{result.Server.VM},
	}, nil
}

func (s *placementServer) DelClients(ctx context.Context, names []string) admission.Status {
	status := admission.StatusOK
	for _, replica := range s.coordinator.Replicas {
		for _, name := range names {
			if st, err := replica.DelClient(ctx, name); err != nil || st != admission.StatusOK {
				status = st
			}
		}
	}
	return status
}

// selectClientVM applies the client-VM selection rule from spec.md §4.6:
// prefer a client VM already grouped with sc.Host; failing that, any client
// VM that shares a server with some other workload; failing that, the
// client host with the most free VMs.
func selectClientVM(sc placement.ServerCandidate, candidates []rpc.ClientVMCandidate) (host, vm string) {
	if len(candidates) == 0 {
		return sc.Host, sc.VM
	}
	for _, c := range candidates {
		for _, h := range c.GroupedServerHosts {
			if h == sc.Host {
				return c.ClientHost, c.ClientVM
			}
		}
	}
	for _, c := range candidates {
		if len(c.GroupedServerHosts) > 0 {
			return c.ClientHost, c.ClientVM
		}
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.FreeVMsOnHost > best.FreeVMsOnHost {
			best = c
		}
	}
	return best.ClientHost, best.ClientVM
}

// substituteClients renders req.Clients for placement on sc/clientHost/VM,
// replacing the literal "$SERVER" and "$CLIENT" address placeholders a
// workload description's addr fields may carry with
// "<addrPrefix><host>/<vm>".
func substituteClients(clients []admission.ClientDescriptor, addrPrefix string, sc placement.ServerCandidate, clientHost, clientVM string) []admission.ClientDescriptor {
	serverAddr := fmt.Sprintf("%s%s/%s", addrPrefix, sc.Host, sc.VM)
	clientAddr := fmt.Sprintf("%s%s/%s", addrPrefix, clientHost, clientVM)

	out := make([]admission.ClientDescriptor, len(clients))
	for i, c := range clients {
		c.Flows = append([]admission.FlowDescriptor(nil), c.Flows...)
		for j, fd := range c.Flows {
			fd.DstAddr = substituteAddr(fd.DstAddr, serverAddr, clientAddr)
			fd.SrcAddr = substituteAddr(fd.SrcAddr, serverAddr, clientAddr)
			fd.ClientAddr = substituteAddr(fd.ClientAddr, serverAddr, clientAddr)
			fd.EnforcerAddr = substituteAddr(fd.EnforcerAddr, serverAddr, clientAddr)
			c.Flows[j] = fd
		}
		out[i] = c
	}
	return out
}

func substituteAddr(addr, serverAddr, clientAddr string) string {
	addr = strings.ReplaceAll(addr, "$SERVER", serverAddr)
	addr = strings.ReplaceAll(addr, "$CLIENT", clientAddr)
	return addr
}
