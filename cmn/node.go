package cmn

import (
	"fmt"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
)

// Node is a single member of the fleet: its id, data- and admin-plane
// addresses, and the partitions it currently owns.
type Node struct {
	ID              int    `json:"id"`
	Host            string `json:"host"`
	ClientPort      int    `json:"client_port"`
	AdminPort       int    `json:"admin_port"`
	OwnedPartitions []int  `json:"partitions"`
}

func (n *Node) String() string {
	return fmt.Sprintf("node-%d(%s:%d/admin:%d)", n.ID, n.Host, n.ClientPort, n.AdminPort)
}

// ErrNodeNotFound is returned by ClusterDescriptor.Node when no member
// has the requested id. Looking up a missing node is a caller error,
// not a transport or protocol failure.
type ErrNodeNotFound struct{ NodeID int }

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("cluster descriptor: no node with id %d", e.NodeID)
}

// ClusterDescriptor is an immutable snapshot of the fleet. It is never
// mutated in place: AdminClient.SetCluster always swaps in a brand new
// *ClusterDescriptor.
type ClusterDescriptor struct {
	nodes []Node
}

// NewClusterDescriptor copies nodes into a fresh, private slice so the
// caller's backing array can be reused or mutated afterward without
// corrupting the snapshot.
func NewClusterDescriptor(nodes []Node) *ClusterDescriptor {
	cp := make([]Node, len(nodes))
	copy(cp, nodes)
	return &ClusterDescriptor{nodes: cp}
}

func (c *ClusterDescriptor) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

func (c *ClusterDescriptor) Node(id int) (Node, error) {
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			return c.nodes[i], nil
		}
	}
	return Node{}, &ErrNodeNotFound{NodeID: id}
}

func (c *ClusterDescriptor) Len() int { return len(c.nodes) }

// jsonCompat is the one jsoniter configuration this client needs: debug
// dumps of values that already carry encoding/json tags, formatted the
// same way the standard library would.
var jsonCompat = jsoniter.ConfigCompatibleWithStandardLibrary

// DebugJSON renders the descriptor as JSON for logging. The wire
// protocol never touches JSON; this exists purely for humans reading
// glog output.
func (c *ClusterDescriptor) DebugJSON() string {
	b, err := jsonCompat.Marshal(c.nodes)
	if err != nil {
		return fmt.Sprintf("<cluster descriptor: %v>", err)
	}
	return string(b)
}

// ClusterHolder atomically swaps whole ClusterDescriptor snapshots so
// concurrent readers always observe either the old or the new value,
// never a torn one.
type ClusterHolder struct {
	v atomic.Value // *ClusterDescriptor
}

func NewClusterHolder(initial *ClusterDescriptor) *ClusterHolder {
	h := &ClusterHolder{}
	h.v.Store(initial)
	return h
}

func (h *ClusterHolder) Load() *ClusterDescriptor {
	return h.v.Load().(*ClusterDescriptor)
}

func (h *ClusterHolder) Store(d *ClusterDescriptor) {
	h.v.Store(d)
}
