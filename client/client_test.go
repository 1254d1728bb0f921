package client_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/MacFlecknoe/voldemort/client"
	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// fakeAdminServer accepts exactly one connection and streams two
// FetchPartitionEntriesResponse records, then blocks — standing in for
// a server that still has more to send when the caller abandons the
// cursor.
func fakeAdminServer(t *testing.T, ln net.Listener) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	req := &wireproto.VoldemortAdminRequest{}
	if err := wireproto.ReadToBuilder(r, req); err != nil {
		t.Errorf("server: read request: %v", err)
		return
	}

	for i := 0; i < 2; i++ {
		rec := &wireproto.FetchPartitionEntriesResponse{Key: []byte{byte('a' + i)}}
		if err := wireproto.WriteFramedRecord(conn, rec); err != nil {
			t.Errorf("server: write record %d: %v", i, err)
			return
		}
	}
	// Never sends the sentinel; the client abandons before asking for more.
	<-make(chan struct{})
}

// TestAbandonedFetchBalancesPool: a caller reads one of several
// available entries, then stops (Close) without draining — the pool's
// outstanding count must return to zero.
func TestAbandonedFetchBalancesPool(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go fakeAdminServer(t, ln)

	addr := ln.Addr().(*net.TCPAddr)
	desc := cmn.NewClusterDescriptor([]cmn.Node{
		{ID: 1, Host: addr.IP.String(), AdminPort: addr.Port},
	})

	cfg := cmn.DefaultConfig()
	cfg.ConnectionTimeout = 2 * time.Second
	cfg.SocketTimeout = 2 * time.Second
	c := client.NewFromCluster(desc, cfg)
	defer c.Shutdown()

	cur, err := c.FetchKeys(context.Background(), 1, "store", []int32{0}, nil)
	if err != nil {
		t.Fatalf("FetchKeys: %v", err)
	}

	entry, ok, err := cur.Next()
	if err != nil || !ok {
		t.Fatalf("first Next: ok=%v err=%v", ok, err)
	}
	if string(entry.Key) != "a" {
		t.Fatalf("Key = %q, want a", entry.Key)
	}

	cur.Close()

	outstanding := c.Pool().Outstanding()
	if outstanding != 0 {
		t.Fatalf("pool outstanding = %d, want 0 after abandoning the cursor", outstanding)
	}
}

// stubResolver plays the transient store-client factory: it never
// dials anything real, just hands back a fixed descriptor.
type stubResolver struct {
	desc  *cmn.ClusterDescriptor
	calls *int
}

func (s stubResolver) ResolveCluster(ctx context.Context, urls []string) (*cmn.ClusterDescriptor, error) {
	*s.calls++
	return s.desc, nil
}

func TestNewFromBootstrapURLsUsesResolverOnce(t *testing.T) {
	desc := cmn.NewClusterDescriptor([]cmn.Node{{ID: 7, Host: "h", AdminPort: 1}})
	calls := 0
	c, err := client.NewFromBootstrapURLs(context.Background(), []string{"bootstrap://a", "bootstrap://b"}, stubResolver{desc: desc, calls: &calls}, nil)
	if err != nil {
		t.Fatalf("NewFromBootstrapURLs: %v", err)
	}
	defer c.Shutdown()
	if calls != 1 {
		t.Fatalf("resolver called %d times, want 1", calls)
	}

	node, err := c.Cluster().Node(7)
	if err != nil {
		t.Fatalf("Node(7): %v", err)
	}
	if node.Host != "h" {
		t.Fatalf("Host = %q, want h", node.Host)
	}
}
