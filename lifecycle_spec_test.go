package tardy_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ghettovoice/tardy"
	"github.com/ghettovoice/tardy/tardytest"
)

var _ = Describe("Scheduler", Label("lifecycle"), func() {
	var (
		host  *tardytest.Host
		sched *tardy.Scheduler
	)

	BeforeEach(func() {
		host = tardytest.NewHost()
		var err error
		sched, err = tardy.NewScheduler(host, nil)
		Expect(err).ToNot(HaveOccurred())
	})
	AfterEach(func() {
		Expect(sched.Close()).To(Succeed())
		Expect(sched.State()).To(Equal(tardy.SchedulerStateStopped))
	})

	Context("just initialized", func() {
		It("is idle", func() {
			Expect(sched.State()).To(Equal(tardy.SchedulerStateIdle))
		})

		It("reports empty stats", func() {
			stats := sched.Stats()
			Expect(stats.TimersLive).To(BeZero())
			Expect(stats.TimersArmed).To(BeZero())
		})
	})

	Context("with a long timeout pending", func() {
		It("runs until the timeout is stopped", func() {
			h, err := sched.NewHandle(time.Minute, func(time.Time) error { return nil })
			Expect(err).ToNot(HaveOccurred())
			defer h.Close() //nolint:errcheck

			Expect(h.Start()).To(Succeed())
			Expect(sched.State()).To(Equal(tardy.SchedulerStateRunning))

			h.Stop()
			Eventually(sched.State).WithTimeout(time.Second).
				Should(Equal(tardy.SchedulerStateIdle))
		})
	})

	Context("with an armed timeout on the privileged context", func() {
		var (
			h     *tardy.Handle
			fires atomic.Uint64
		)

		BeforeEach(func() {
			fires.Store(0)
			var err error
			h, err = sched.NewHandle(5*time.Millisecond, func(time.Time) error {
				fires.Add(1)
				return nil
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(h.Start()).To(Succeed())
		})
		AfterEach(func() {
			Expect(h.Close()).To(Succeed())
		})

		It("delivers once the privileged context reaches a safe point", func() {
			Eventually(func() uint64 {
				Expect(host.Privileged().Step()).To(Succeed())
				return fires.Load()
			}).WithTimeout(time.Second).WithPolling(time.Millisecond).
				Should(Equal(uint64(1)))

			// single-shot: later safe points deliver nothing more
			Expect(host.Privileged().StepFor(20 * time.Millisecond)).To(Succeed())
			Expect(fires.Load()).To(Equal(uint64(1)))
		})

		It("drains back to idle after delivery", func() {
			Eventually(func() uint64 {
				Expect(host.Privileged().Step()).To(Succeed())
				return fires.Load()
			}).WithTimeout(time.Second).WithPolling(time.Millisecond).
				Should(Equal(uint64(1)))
			Eventually(sched.State).WithTimeout(time.Second).
				Should(Equal(tardy.SchedulerStateIdle))
		})

		It("never delivers after Stop", func() {
			h.Stop()
			Expect(host.Privileged().StepFor(20 * time.Millisecond)).To(Succeed())
			Expect(fires.Load()).To(BeZero())
			Expect(sched.Stats().TimersStopped).To(Equal(uint64(1)))
		})
	})
})
