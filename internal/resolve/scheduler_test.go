package resolve_test

import (
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/longshorej/seedling/internal/resolve"
)

var _ = Describe("Scheduler", func() {
	var (
		c     *clock.Mock
		fired []uint64
		s     *resolve.Scheduler
	)
	BeforeEach(func() {
		c = clock.NewMock()
		fired = nil
		s = resolve.NewScheduler(c, func(token uint64) { fired = append(fired, token) })
	})
	It("Should fire the armed token after the interval", func() {
		s.Arm(10 * time.Millisecond)
		c.Add(10 * time.Millisecond)
		Expect(fired).To(HaveLen(1))
		Expect(s.Valid(fired[0])).To(BeTrue())
	})
	It("Should cancel the pending timer when re-armed", func() {
		s.Arm(10 * time.Millisecond)
		s.Arm(10 * time.Millisecond)
		c.Add(time.Second)
		Expect(fired).To(HaveLen(1))
	})
	It("Should invalidate tokens from a replaced timer", func() {
		s.Arm(10 * time.Millisecond)
		stale := uint64(1)
		s.Arm(10 * time.Millisecond)
		Expect(s.Valid(stale)).To(BeFalse())
		c.Add(10 * time.Millisecond)
		Expect(s.Valid(fired[0])).To(BeTrue())
	})
	It("Should not fire after a disarm", func() {
		s.Arm(10 * time.Millisecond)
		s.Disarm()
		c.Add(time.Second)
		Expect(fired).To(BeEmpty())
	})
	It("Should invalidate a fired token once cleared", func() {
		s.Arm(10 * time.Millisecond)
		c.Add(10 * time.Millisecond)
		s.Clear()
		Expect(s.Valid(fired[0])).To(BeFalse())
	})
	It("Should tolerate disarming when nothing is armed", func() {
		Expect(func() { s.Disarm() }).ToNot(Panic())
	})
})
