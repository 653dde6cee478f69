package e2e

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/skevetter/echod/e2e/framework"

	// Register tests
	_ "github.com/skevetter/echod/e2e/tests/echo"
)

// TestRunE2ETests checks configuration parameters (specified through flags) and then runs
// E2E tests using the Ginkgo runner.
func TestRunE2ETests(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "echod e2e suite")
}

var _ = ginkgo.BeforeSuite(func() {
	framework.ExpectNoError(framework.BuildEchod())
})

var _ = ginkgo.AfterSuite(func() {
	framework.CleanupEchod()
})
