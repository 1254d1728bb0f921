package xaction

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/MacFlecknoe/voldemort/cmn"
	"github.com/MacFlecknoe/voldemort/rpc"
)

// testEngineForBackoff supplies a Driver with a real Config (for
// AsyncPollInitialDelay/Factor/MaxDelay) but no live Pool/Resolver —
// these tests stub out the poll step entirely.
func testEngineForBackoff() *rpc.Engine {
	return rpc.NewEngine(nil, nil, cmn.DefaultConfig())
}

func TestXaction(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "xaction suite")
}

// fakeClock advances in lockstep with sleep calls so WaitForCompletion's
// backoff math (P5) can be exercised without real wall-clock delay.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(0, 0)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

var _ = Describe("Driver.WaitForCompletion", func() {
	It("follows the 250/1000/4000ms backoff then times out (P5, scenario 3)", func() {
		fc := newFakeClock()
		polls := 0
		d := &Driver{
			sleep: fc.sleep,
			now:   fc.now,
			poll: func(ctx context.Context, nodeID int, requestID int64) (AsyncOperationHandle, error) {
				polls++
				return AsyncOperationHandle{RequestID: requestID, Complete: false}, nil
			},
		}
		d.Engine = testEngineForBackoff()

		_, err := d.WaitForCompletion(context.Background(), 1, 99, 5*time.Second)
		Expect(err).To(HaveOccurred())
		_, isTimeout := err.(*cmn.AsyncTimeoutError)
		Expect(isTimeout).To(BeTrue())

		Expect(fc.sleeps).To(Equal([]time.Duration{
			250 * time.Millisecond,
			1000 * time.Millisecond,
			4000 * time.Millisecond,
		}))
		Expect(polls).To(Equal(4))
	})

	It("returns normally once the poll reports complete", func() {
		fc := newFakeClock()
		calls := 0
		d := &Driver{
			sleep: fc.sleep,
			now:   fc.now,
			poll: func(ctx context.Context, nodeID int, requestID int64) (AsyncOperationHandle, error) {
				calls++
				return AsyncOperationHandle{RequestID: requestID, Complete: calls == 3}, nil
			},
		}
		d.Engine = testEngineForBackoff()

		handle, err := d.WaitForCompletion(context.Background(), 1, 7, 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(handle.Complete).To(BeTrue())
		Expect(calls).To(Equal(3))
		Expect(fc.sleeps).To(Equal([]time.Duration{
			250 * time.Millisecond,
			1000 * time.Millisecond,
		}))
	})
})
