package topology

// ClientSpec is the validated request to create a client and its flows,
// produced from the external JSON client descriptor (spec.md §6).
type ClientSpec struct {
	Name          string
	SLO           float64
	SLOPercentile float64 // 0 means "unset"; validated strictly in (0,100) otherwise
	Flows         []FlowSpec
}

// Client owns a set of flows that share one SLO deadline.
type Client struct {
	ID            ID
	Name          string
	SLO           float64
	SLOPercentile float64
	FlowIDs       map[ID]struct{}
}
