package rpc_test

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/pool"
	"github.com/MacFlecknoe/voldemort/rpc"
	"github.com/MacFlecknoe/voldemort/wireproto"
)

// fakePool always hands back the same pre-wired *pool.Conn, regardless
// of destination, and counts checkouts/checkins so tests can assert the
// pool stayed balanced.
type fakePool struct {
	mu        sync.Mutex
	conn      *pool.Conn
	checkouts int
	checkins  int
}

func (p *fakePool) Checkout(ctx context.Context, dest pool.Destination) (*pool.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkouts++
	return p.conn, nil
}

func (p *fakePool) Checkin(dest pool.Destination, conn *pool.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkins++
}

func (p *fakePool) Close() error { return nil }

func (p *fakePool) balance() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkouts, p.checkins
}

type fakeResolver struct{ node cmn.Node }

func (f fakeResolver) Node(id int) (cmn.Node, error) { return f.node, nil }

// pipeConn builds a pool.Conn around one end of a net.Pipe, and returns
// the raw other end for a test-local fake server to drive directly.
func pipeConn() (*pool.Conn, net.Conn) {
	client, server := net.Pipe()
	return &pool.Conn{
		Socket: client,
		In:     bufio.NewReader(client),
		Out:    bufio.NewWriter(client),
	}, server
}

func testEngine(conn *pool.Conn) (*rpc.Engine, *fakePool) {
	fp := &fakePool{conn: conn}
	cfg := cmn.DefaultConfig()
	cfg.SocketTimeout = 5 * time.Second
	e := rpc.NewEngine(fp, fakeResolver{node: cmn.Node{ID: 1, Host: "node1", AdminPort: 6666}}, cfg)
	return e, fp
}

func TestSendAndReceiveRoundTrip(t *testing.T) {
	conn, server := pipeConn()
	e, fp := testEngine(conn)

	go func() {
		req := &wireproto.VoldemortAdminRequest{}
		if err := wireproto.ReadToBuilder(bufio.NewReader(server), req); err != nil {
			return
		}
		resp := &wireproto.GetMetadataResponse{Value: []byte("xml-payload")}
		_ = wireproto.WriteMessage(server, resp)
	}()

	req := &wireproto.VoldemortAdminRequest{
		Type:   wireproto.RequestTypeGetMetadata,
		GetMeta: &wireproto.GetMetadataRequest{Key: "cluster.xml"},
	}
	resp := &wireproto.GetMetadataResponse{}
	if err := e.SendAndReceive(context.Background(), 1, req, resp); err != nil {
		t.Fatalf("SendAndReceive: %v", err)
	}
	if string(resp.Value) != "xml-payload" {
		t.Fatalf("Value = %q, want xml-payload", resp.Value)
	}

	checkouts, checkins := fp.balance()
	if checkouts != checkins {
		t.Fatalf("pool imbalance: %d checkouts, %d checkins", checkouts, checkins)
	}
}

func TestSendAndReceiveMapsProtocolError(t *testing.T) {
	conn, server := pipeConn()
	e, fp := testEngine(conn)

	go func() {
		req := &wireproto.VoldemortAdminRequest{}
		if err := wireproto.ReadToBuilder(bufio.NewReader(server), req); err != nil {
			return
		}
		resp := &wireproto.GetMetadataResponse{Error: &wireproto.ErrorMsg{Code: 3, Message: "no such store"}}
		_ = wireproto.WriteMessage(server, resp)
	}()

	req := &wireproto.VoldemortAdminRequest{Type: wireproto.RequestTypeGetMetadata, GetMeta: &wireproto.GetMetadataRequest{Key: "stores.xml"}}
	resp := &wireproto.GetMetadataResponse{}
	err := e.SendAndReceive(context.Background(), 1, req, resp)
	if err != nil {
		t.Fatalf("SendAndReceive itself should not fail on a protocol-level error field: %v", err)
	}
	protoErr := rpc.MapError(resp.Error)
	if protoErr == nil {
		t.Fatal("expected a mapped protocol error")
	}
	pe, ok := protoErr.(*cmn.ProtocolError)
	if !ok {
		t.Fatalf("expected *cmn.ProtocolError, got %T", protoErr)
	}
	if pe.Code != cmn.ErrCodeStoreNotFound {
		t.Fatalf("Code = %v, want ErrCodeStoreNotFound", pe.Code)
	}

	checkouts, checkins := fp.balance()
	if checkouts != checkins {
		t.Fatalf("pool imbalance: %d checkouts, %d checkins", checkouts, checkins)
	}
}

func TestSendAndReceiveTransportFailureBalancesPool(t *testing.T) {
	conn, server := pipeConn()
	e, fp := testEngine(conn)
	server.Close() // any write from the client now fails

	req := &wireproto.VoldemortAdminRequest{Type: wireproto.RequestTypeGetMetadata, GetMeta: &wireproto.GetMetadataRequest{Key: "k"}}
	resp := &wireproto.GetMetadataResponse{}
	err := e.SendAndReceive(context.Background(), 1, req, resp)
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if _, ok := err.(*cmn.TransportError); !ok {
		t.Fatalf("expected *cmn.TransportError, got %T: %v", err, err)
	}

	checkouts, checkins := fp.balance()
	if checkouts != checkins {
		t.Fatalf("pool imbalance: %d checkouts, %d checkins", checkouts, checkins)
	}
}
