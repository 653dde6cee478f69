package framework

import (
	"context"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega/gexec"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
)

const echodPackage = "github.com/skevetter/echod"

var echodBinary string

// BuildEchod compiles the echod binary once for the whole suite
func BuildEchod() error {
	path, err := gexec.Build(echodPackage)
	if err != nil {
		return errors.Wrap(err, "build echod")
	}
	echodBinary = path
	return nil
}

// CleanupEchod removes the compiled binary
func CleanupEchod() {
	gexec.CleanupBuildArtifacts()
}

type Framework struct {
	EchodBinary string
	Env         []string
}

func NewDefaultFramework() *Framework {
	return &Framework{EchodBinary: echodBinary}
}

// Start runs echod with args and streams its output to the ginkgo writer
func (f *Framework) Start(args ...string) (*gexec.Session, error) {
	cmd := exec.Command(f.EchodBinary, args...)
	cmd.Env = append(os.Environ(), f.Env...)
	return gexec.Start(cmd, ginkgo.GinkgoWriter, ginkgo.GinkgoWriter)
}

// EchodServe starts `echod serve` on a free loopback port and waits until it
// accepts connections. The session is terminated on cleanup.
func (f *Framework) EchodServe(ctx context.Context, args ...string) (string, *gexec.Session, error) {
	address, err := FreeAddress()
	if err != nil {
		return "", nil, err
	}

	session, err := f.Start(append([]string{"serve", "--address", address}, args...)...)
	if err != nil {
		return "", nil, err
	}
	ginkgo.DeferCleanup(func() {
		session.Terminate().Wait(GetTimeout())
	})

	err = WaitForAddress(ctx, address)
	if err != nil {
		return "", session, err
	}
	return address, session, nil
}

// EchodPing runs `echod ping` against address and returns its combined output
func (f *Framework) EchodPing(ctx context.Context, address string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, f.EchodBinary, append([]string{"ping", "--address", address}, args...)...)
	cmd.Env = append(os.Environ(), f.Env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), errors.Wrapf(err, "echod ping: %s", out)
	}
	return string(out), nil
}

// WaitForAddress polls until a TCP connection to address succeeds
func WaitForAddress(ctx context.Context, address string) error {
	return wait.PollUntilContextTimeout(ctx, 50*time.Millisecond, GetTimeout(), true, func(ctx context.Context) (bool, error) {
		conn, err := net.DialTimeout("tcp", address, time.Second)
		if err != nil {
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	})
}
