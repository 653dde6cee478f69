package echo

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gexec"
	"github.com/skevetter/echod/e2e/framework"
	echod "github.com/skevetter/echod/pkg/echo"
)

var _ = EchoDescribe("echod serve", func() {
	ginkgo.Context("echoing", ginkgo.Label("echo"), func() {
		ginkgo.It("echoes to multiple clients independently", func(ctx context.Context) {
			f := framework.NewDefaultFramework()
			address, _, err := f.EchodServe(ctx)
			framework.ExpectNoError(err)

			first, err := echod.Dial(ctx, address, framework.GetTimeout())
			framework.ExpectNoError(err)
			defer func() { _ = first.Close() }()

			second, err := echod.Dial(ctx, address, framework.GetTimeout())
			framework.ExpectNoError(err)
			defer func() { _ = second.Close() }()

			reply, err := first.RoundTrip([]byte("hello"))
			framework.ExpectNoError(err)
			framework.ExpectEqual(string(reply), "hello")

			reply, err = second.RoundTrip([]byte("world"))
			framework.ExpectNoError(err)
			framework.ExpectEqual(string(reply), "world")

			reply, err = first.RoundTrip([]byte("again"))
			framework.ExpectNoError(err)
			framework.ExpectEqual(string(reply), "again")
		})

		ginkgo.It("verifies round trips with the ping command", func(ctx context.Context) {
			f := framework.NewDefaultFramework()
			address, _, err := f.EchodServe(ctx, "--buffer-size", "4")
			framework.ExpectNoError(err)

			out, err := f.EchodPing(ctx, address, "--count", "3", "a payload longer than the buffer")
			framework.ExpectNoError(err)
			gomega.Expect(out).To(gomega.ContainSubstring("3 round trips"))
		})
	})

	ginkgo.Context("lifecycle", ginkgo.Label("lifecycle"), func() {
		ginkgo.It("exits cleanly on SIGTERM with open connections", func(ctx context.Context) {
			f := framework.NewDefaultFramework()
			address, session, err := f.EchodServe(ctx)
			framework.ExpectNoError(err)

			client, err := echod.Dial(ctx, address, framework.GetTimeout())
			framework.ExpectNoError(err)
			defer func() { _ = client.Close() }()
			_, err = client.RoundTrip([]byte("hello"))
			framework.ExpectNoError(err)

			session.Terminate()
			gomega.Eventually(session, framework.GetTimeout()).Should(gexec.Exit(0))

			_, err = io.ReadAll(client.Conn())
			framework.ExpectNoError(err)
		})

		ginkgo.It("fails when the address is already in use", func(ctx context.Context) {
			occupied, err := net.Listen("tcp", "127.0.0.1:0")
			framework.ExpectNoError(err)
			defer func() { _ = occupied.Close() }()

			f := framework.NewDefaultFramework()
			session, err := f.Start("serve", "--address", occupied.Addr().String())
			framework.ExpectNoError(err)

			gomega.Eventually(session, framework.GetTimeout()).Should(gexec.Exit())
			gomega.Expect(session.ExitCode()).NotTo(gomega.Equal(0))
			output := string(session.Out.Contents()) + string(session.Err.Contents())
			gomega.Expect(output).To(gomega.ContainSubstring("unable to bind address"))
		})
	})

	ginkgo.Context("configuration", ginkgo.Label("config"), func() {
		ginkgo.It("reads the connection limit from the environment", func(ctx context.Context) {
			f := framework.NewDefaultFramework()
			f.Env = []string{"ECHOD_MAX_CONNECTIONS=1"}
			address, _, err := f.EchodServe(ctx)
			framework.ExpectNoError(err)

			// the readiness probe may still hold the only slot for a moment
			var holder *echod.Client
			gomega.Eventually(func() error {
				client, err := echod.Dial(ctx, address, time.Second)
				if err != nil {
					return err
				}
				if _, err := client.RoundTrip([]byte("hold")); err != nil {
					_ = client.Close()
					return err
				}
				holder = client
				return nil
			}, framework.GetTimeout(), 50*time.Millisecond).Should(gomega.Succeed())
			defer func() { _ = holder.Close() }()

			rejected, err := echod.Dial(ctx, address, framework.GetTimeout())
			framework.ExpectNoError(err)
			defer func() { _ = rejected.Close() }()
			_, err = rejected.RoundTrip([]byte("nope"))
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Context("status server", ginkgo.Label("status"), func() {
		ginkgo.It("reports readiness and metrics", func(ctx context.Context) {
			statusAddress, err := framework.FreeAddress()
			framework.ExpectNoError(err)

			f := framework.NewDefaultFramework()
			address, _, err := f.EchodServe(ctx, "--status-address", statusAddress)
			framework.ExpectNoError(err)
			framework.ExpectNoError(framework.WaitForAddress(ctx, statusAddress))

			client, err := echod.Dial(ctx, address, framework.GetTimeout())
			framework.ExpectNoError(err)
			defer func() { _ = client.Close() }()
			_, err = client.RoundTrip([]byte("hello"))
			framework.ExpectNoError(err)

			resp, err := http.Get("http://" + statusAddress + "/readyz")
			framework.ExpectNoError(err)
			_ = resp.Body.Close()
			framework.ExpectEqual(resp.StatusCode, http.StatusOK)

			gomega.Eventually(func() (int64, error) {
				resp, err := http.Get("http://" + statusAddress + "/metrics")
				if err != nil {
					return 0, err
				}
				defer func() { _ = resp.Body.Close() }()

				var snapshot echod.MetricsSnapshot
				if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
					return 0, err
				}
				return snapshot.BytesEchoed, nil
			}, framework.GetTimeout(), 50*time.Millisecond).Should(gomega.BeNumerically(">=", 5))
		})
	})
})
