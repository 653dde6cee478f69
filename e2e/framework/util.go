package framework

import (
	"net"
	"runtime"
	"time"

	"github.com/onsi/gomega"
)

func GetTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 60 * time.Second
	}
	return 20 * time.Second
}

// FreeAddress returns a loopback address with a port that was free a moment ago
func FreeAddress() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().String(), nil
}

func ExpectNoError(err error) {
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())
}

func ExpectEqual(actual any, expected any) {
	gomega.ExpectWithOffset(1, actual).To(gomega.Equal(expected))
}
