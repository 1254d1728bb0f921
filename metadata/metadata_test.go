package metadata_test

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/MacFlecknoe/voldemort/clock"
	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/metadata"
	"github.com/MacFlecknoe/voldemort/pool"
	"github.com/MacFlecknoe/voldemort/rpc"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// fakePool always hands back the same pre-wired *pool.Conn, matching
// the grounding in rpc/engine_test.go.
type fakePool struct {
	mu   sync.Mutex
	conn *pool.Conn
}

func (p *fakePool) Checkout(ctx context.Context, dest pool.Destination) (*pool.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn, nil
}
func (p *fakePool) Checkin(dest pool.Destination, conn *pool.Conn) {}
func (p *fakePool) Close() error                                  { return nil }

type fakeResolver struct{ node cmn.Node }

func (f fakeResolver) Node(id int) (cmn.Node, error) { return f.node, nil }

func pipeConn() (*pool.Conn, net.Conn) {
	client, server := net.Pipe()
	return &pool.Conn{Socket: client, In: bufio.NewReader(client), Out: bufio.NewWriter(client)}, server
}

func testClient(conn *pool.Conn) *metadata.Client {
	fp := &fakePool{conn: conn}
	cfg := cmn.DefaultConfig()
	cfg.SocketTimeout = 5 * time.Second
	engine := rpc.NewEngine(fp, fakeResolver{node: cmn.Node{ID: 3, Host: "h", AdminPort: 6000}}, cfg)
	return metadata.New(engine)
}

// fakeMetadataStore plays the server side of GET, read-modify-write
// (GET then PUT), GET: it starts holding clock {3:5} and answers both
// leading GETs with it, records the clock and value the PUT carries,
// then answers the final GET with that clock and the new payload.
func fakeMetadataStore(t *testing.T, server net.Conn, initialValue string, initialClock map[int]int64) {
	r := bufio.NewReader(server)
	current := initialClock

	// The caller's own GET, then the GET that opens the
	// read-modify-write; both see the initial value and clock.
	var req *wireproto.VoldemortAdminRequest
	for i := 0; i < 2; i++ {
		req = &wireproto.VoldemortAdminRequest{}
		if err := wireproto.ReadToBuilder(r, req); err != nil {
			t.Errorf("server: read first GET: %v", err)
			return
		}
		if req.Type != wireproto.RequestTypeGetMetadata {
			t.Errorf("server: expected GET_METADATA, got %v", req.Type)
			return
		}
		if err := wireproto.WriteMessage(server, &wireproto.GetMetadataResponse{
			Value: []byte(initialValue),
			Clock: clockMsg(current),
		}); err != nil {
			t.Errorf("server: write first GET response: %v", err)
			return
		}
	}

	// PUT.
	req = &wireproto.VoldemortAdminRequest{}
	if err := wireproto.ReadToBuilder(r, req); err != nil {
		t.Errorf("server: read PUT: %v", err)
		return
	}
	if req.Type != wireproto.RequestTypeUpdateMetadata {
		t.Errorf("server: expected UPDATE_METADATA, got %v", req.Type)
		return
	}
	putClock := map[int]int64{}
	for _, e := range req.UpdateMeta.Clock.Entries {
		putClock[int(e.NodeID)] = e.Counter
	}
	newValue := string(req.UpdateMeta.Value)
	if err := wireproto.WriteMessage(server, &wireproto.UpdateMetadataResponse{}); err != nil {
		t.Errorf("server: write PUT response: %v", err)
		return
	}

	// Second GET reflects the PUT.
	req = &wireproto.VoldemortAdminRequest{}
	if err := wireproto.ReadToBuilder(r, req); err != nil {
		t.Errorf("server: read second GET: %v", err)
		return
	}
	if err := wireproto.WriteMessage(server, &wireproto.GetMetadataResponse{
		Value: []byte(newValue),
		Clock: clockMsg(putClock),
	}); err != nil {
		t.Errorf("server: write second GET response: %v", err)
		return
	}
}

func clockMsg(versions map[int]int64) *wireproto.VectorClockMsg {
	entries := make([]wireproto.ClockEntryMsg, 0, len(versions))
	for id, counter := range versions {
		entries = append(entries, wireproto.ClockEntryMsg{NodeID: int32(id), Counter: counter})
	}
	return &wireproto.VectorClockMsg{Entries: entries, TimestampMs: time.Now().UnixMilli()}
}

// TestUpdateRemoteCluster_IncrementsAndPutsTargetNodeOnly verifies:
// GET on node 3 returns clock {3:5}; the client PUTs with clock {3:6};
// a second GET returns {3:6} and the new XML.
func TestUpdateRemoteCluster_IncrementsAndPutsTargetNodeOnly(t *testing.T) {
	conn, server := pipeConn()
	done := make(chan struct{})
	go func() {
		fakeMetadataStore(t, server, "<cluster>old</cluster>", map[int]int64{3: 5})
		close(done)
	}()

	c := testClient(conn)
	ctx := context.Background()

	before, clockBefore, err := c.GetRemoteCluster(ctx, 3)
	if err != nil {
		t.Fatalf("GetRemoteCluster: %v", err)
	}
	if before != "<cluster>old</cluster>" {
		t.Fatalf("before = %q", before)
	}
	if clockBefore.Get(3) != 5 {
		t.Fatalf("clockBefore[3] = %d, want 5", clockBefore.Get(3))
	}

	if err := c.UpdateRemoteCluster(ctx, 3, "<cluster>new</cluster>"); err != nil {
		t.Fatalf("UpdateRemoteCluster: %v", err)
	}

	after, clockAfter, err := c.GetRemoteCluster(ctx, 3)
	if err != nil {
		t.Fatalf("second GetRemoteCluster: %v", err)
	}
	if after != "<cluster>new</cluster>" {
		t.Fatalf("after = %q, want new XML", after)
	}
	if clockAfter.Get(3) != 6 {
		t.Fatalf("clockAfter[3] = %d, want 6 (target node's slot incremented by exactly 1)", clockAfter.Get(3))
	}

	<-done
}

// TestIncrementOnlyTouchesTargetNode verifies clock monotonicity: a
// clock with entries for other nodes is untouched except at the target
// slot.
func TestIncrementOnlyTouchesTargetNode(t *testing.T) {
	vc := clock.NewFrom(map[int]int64{1: 2, 3: 5}, time.Now())
	next := vc.Increment(3, 1)

	if next.Get(1) != 2 {
		t.Fatalf("node 1 slot = %d, want untouched at 2", next.Get(1))
	}
	if next.Get(3) != 6 {
		t.Fatalf("node 3 slot = %d, want 6", next.Get(3))
	}
	if !next.StrictlyGreaterThan(vc) {
		t.Fatal("incremented clock must strictly dominate the one it was derived from")
	}
	if vc.Get(3) != 5 {
		t.Fatal("Increment must not mutate the receiver (clock is immutable)")
	}
}
