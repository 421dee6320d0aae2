package rpc

import "github.com/timmyzhu/WorkloadCompactor/internal/admission"

// AddClientsRequest/Response is the AS addClients surface (spec.md §6).
type AddClientsRequest struct {
	Clients      []admission.ClientDescriptor `json:"clients"`
	FastFirstFit bool                         `json:"fastFirstFit"`
}

type AddClientsResponse struct {
	Status   admission.Status `json:"status"`
	Admitted bool             `json:"admitted"`
}

type DelClientRequest struct {
	Name string `json:"name"`
}

type StatusResponse struct {
	Status admission.Status `json:"status"`
}

type AddQueueRequest struct {
	Queue admission.QueueDescriptor `json:"queue"`
}

type DelQueueRequest struct {
	Name string `json:"name"`
}

// ClientVMCandidate is one client-VM slot the placement coordinator may
// assign a workload to, along with the bookkeeping the client-VM selection
// rule (spec.md §4.6) needs: which server hosts this VM's existing
// workloads already touch, and how many free VM slots remain on its host.
type ClientVMCandidate struct {
	ClientHost         string   `json:"clientHost"`
	ClientVM           string   `json:"clientVM"`
	GroupedServerHosts []string `json:"groupedServerHosts"`
	FreeVMsOnHost      int      `json:"freeVMsOnHost"`
}

// PlaceRequest/Response is the PC addClients surface (spec.md §6). ClientVMs
// and ServerVMs echo back the assignment the coordinator chose so the caller
// can wire enforcement points without a second round trip.
type PlaceRequest struct {
	Clients     []admission.ClientDescriptor `json:"clients"`
	AddrPrefix  string                       `json:"addrPrefix"`
	Enforce     bool                         `json:"enforce"`
	ServerHosts []string                     `json:"serverHosts"`
	ServerVMs   []string                     `json:"serverVMs"`
	ClientVMs   []ClientVMCandidate          `json:"clientVMs"`
}

type PlaceResponse struct {
	Status      admission.Status `json:"status"`
	Admitted    bool             `json:"admitted"`
	ClientHosts []string         `json:"clientHosts"`
	ClientVMs   []string         `json:"clientVMs"`
	ServerHosts []string         `json:"serverHosts"`
	ServerVMs   []string         `json:"serverVMs"`
}

type DelClientsRequest struct {
	Names []string `json:"names"`
}

// UpdateClientRequest/RemoveClientRequest/GetOccupancyRequest are the
// enforcement-point RPCs (spec.md §6).
type UpdateClientRequest struct {
	TenantKey       string    `json:"tenantKey"`
	Priority        int       `json:"priority"`
	RateLimitRates  []float64 `json:"rateLimitRates"`
	RateLimitBursts []float64 `json:"rateLimitBursts"`
}

type RemoveClientRequest struct {
	TenantKey string `json:"tenantKey"`
}

type GetOccupancyRequest struct {
	TenantKey string `json:"tenantKey"`
}

type GetOccupancyResponse struct {
	Occupancy float64 `json:"occupancy"`
}
