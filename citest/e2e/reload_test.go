package e2e_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/livedoc/livedoc/citest/testutil"
	"github.com/livedoc/livedoc/internal/event"
	"github.com/livedoc/livedoc/internal/watcher"
)

// settle gives the OS time to deliver a write's notifications.
const settle = 500 * time.Millisecond

var _ = Describe("Live Reload", func() {
	var ts *testutil.TestServer

	AfterEach(func() {
		if ts != nil {
			ts.Stop()
			ts = nil
		}
	})

	connect := func() *testutil.SSEClient {
		c := ts.SSEClient()
		Expect(c.Connect(ctx, "/listen")).To(Succeed())
		DeferCleanup(c.Close)
		_, err := c.WaitForData("connected", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("Document changes", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should notify every connected client of an overwrite", func() {
			a := connect()
			b := connect()
			Eventually(func() int { return ts.Hub.Len() }).Should(Equal(2))

			Expect(ts.WriteDocument("%PDF-1.4\nrevised\n")).To(Succeed())

			_, err := a.WaitForData("update", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.WaitForData("update", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should serve the new bytes after a change", func() {
			c := connect()
			Expect(ts.WriteDocument("%PDF-1.4\nrevised\n")).To(Succeed())
			_, err := c.WaitForData("update", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			resp, err := ts.Client().Get(ctx, "/pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))
			Expect(resp.String()).To(Equal("%PDF-1.4\nrevised\n"))
		})

		It("should ignore other files in the directory", func() {
			c := connect()

			Expect(os.WriteFile(filepath.Join(ts.TempDir, "notes.txt"), []byte("unrelated"), 0644)).To(Succeed())

			events := c.CollectEvents(settle)
			Expect(testutil.NewEventMatcher(events).CountData("update")).To(Equal(0))
		})

		It("should stop notifying a client after it disconnects", func() {
			gone := connect()
			stay := connect()
			Eventually(func() int { return ts.Hub.Len() }).Should(Equal(2))

			gone.Close()
			Eventually(func() int { return ts.Hub.Len() }, 2*time.Second).Should(Equal(1))

			Expect(ts.WriteDocument("%PDF-1.4\nrevised\n")).To(Succeed())
			_, err := stay.WaitForData("update", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(testutil.NewEventMatcher(gone.GetAllEvents()).CountData("update")).To(Equal(0))
		})

		It("should report counters on /status", func() {
			connect()
			Expect(ts.WriteDocument("%PDF-1.4\nrevised\n")).To(Succeed())

			Eventually(func() uint64 {
				status, err := ts.Client().GetStatus(ctx)
				if err != nil {
					return 0
				}
				return status.Published
			}, 5*time.Second).Should(BeNumerically(">=", 1))

			status, err := ts.Client().GetStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Live).To(BeTrue())
			Expect(status.Document).To(Equal(ts.Document))
			Expect(status.Subscribers).To(Equal(1))
		})

		It("should end streams on POST /stop and shutdown", func() {
			c := connect()

			resp, err := ts.Client().Post(ctx, "/stop")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.String()).To(Equal("Server stopped"))
			Eventually(ts.Server.Stopped()).Should(BeClosed())

			Expect(ts.Stop()).To(Succeed())
			ts = nil
			Expect(c.WaitForClose(5 * time.Second)).To(Succeed())
		})
	})

	Describe("Debounce", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(testutil.WithWatchOptions(watcher.Options{Debounce: 200 * time.Millisecond}))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should collapse a burst of writes into one update", func() {
			c := connect()

			for i := 0; i < 5; i++ {
				Expect(ts.WriteDocument("%PDF-1.4\nburst\n")).To(Succeed())
				time.Sleep(10 * time.Millisecond)
			}

			events := c.CollectEvents(200*time.Millisecond + 2*settle)
			Expect(testutil.NewEventMatcher(events).CountData("update")).To(Equal(1))
		})
	})

	Describe("Editors that save by rename", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(testutil.WithWatchOptions(watcher.Options{FollowReplace: true}))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should notify when the document is replaced", func() {
			c := connect()

			Expect(testutil.ReplaceFile(ts.Document, "%PDF-1.4\nreplaced\n")).To(Succeed())

			_, err := c.WaitForData("update", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Live reload disabled", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(testutil.WithoutWatch())
			Expect(err).NotTo(HaveOccurred())
		})

		It("should tell clients no updates will arrive and end the stream", func() {
			c := ts.SSEClient()
			Expect(c.Connect(ctx, "/listen")).To(Succeed())
			defer c.Close()

			Expect(c.WaitForClose(5 * time.Second)).To(Succeed())
			Expect(c.GetAllEvents()).To(Equal([]testutil.SSEEvent{
				{Type: "message", Data: "connected"},
				{Type: "unavailable", Data: "live reload disabled"},
			}))
			Expect(ts.Hub.Len()).To(Equal(0))
		})
	})
})

var _ = Describe("Watch setup", func() {
	It("should fail for a document that does not exist", func() {
		target, err := watcher.NewTarget(filepath.Join(GinkgoT().TempDir(), "missing.pdf"))
		Expect(err).NotTo(HaveOccurred())

		w, err := watcher.Start(target, func(event.ChangeEvent) {}, watcher.Options{})
		Expect(w).To(BeNil())

		var setupErr *watcher.SetupError
		Expect(errors.As(err, &setupErr)).To(BeTrue())
		Expect(setupErr.Path).To(Equal(target.Path))
	})
})
