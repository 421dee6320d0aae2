// Package topology is the shared object graph of queues, flows, and clients:
// a flat arena per entity type, linked by stable ids rather than pointers,
// per DESIGN.md's "arena + ids" redesign of the original's shared-pointer
// object graph. Grounded on cockroach's id-keyed-map style (e.g. roachpb ids
// used as map keys throughout pkg/kv) and util/syncutil's locking discipline.
package topology

// ID identifies a queue, flow, or client. Each entity kind has its own id
// space; Invalid is never assigned to a live entity.
type ID uint64

// Invalid is the sentinel id, never returned by a successful add operation.
const Invalid ID = 0

type idGen struct{ next ID }

func (g *idGen) alloc() ID {
	g.next++
	return g.next
}
