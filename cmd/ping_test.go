package cmd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/loft-sh/log"
	"github.com/skevetter/echod/cmd/flags"
	"github.com/skevetter/echod/pkg/echo"
	"github.com/stretchr/testify/suite"
)

type PingCmdTestSuite struct {
	suite.Suite
	cancel context.CancelFunc
	done   chan error
	addr   string
}

func TestPingCmdTestSuite(t *testing.T) {
	suite.Run(t, new(PingCmdTestSuite))
}

func (s *PingCmdTestSuite) SetupTest() {
	listener, err := echo.Listen(context.Background(), "127.0.0.1:0", echo.ListenOptions{})
	s.Require().NoError(err)

	server := echo.NewServer(listener, echo.ServerConfig{}, log.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	s.addr = server.Addr().String()
	go func() { s.done <- server.Serve(ctx) }()
}

func (s *PingCmdTestSuite) TearDownTest() {
	s.cancel()
	select {
	case err := <-s.done:
		s.NoError(err)
	case <-time.After(10 * time.Second):
		s.Fail("echo server did not stop")
	}
}

func (s *PingCmdTestSuite) newPingCmd(address string, count int) *PingCmd {
	return &PingCmd{
		GlobalFlags: &flags.GlobalFlags{},
		Log:         log.Discard,
		Address:     address,
		Count:       count,
		Timeout:     5 * time.Second,
	}
}

func (s *PingCmdTestSuite) TestPing() {
	s.NoError(s.newPingCmd(s.addr, 3).Run(context.Background(), []byte("hello")))
}

func (s *PingCmdTestSuite) TestPingBinaryPayload() {
	payload := []byte{0x00, 0xff, 0x0a, 0x0d, 0x00}
	s.NoError(s.newPingCmd(s.addr, 1).Run(context.Background(), payload))
}

func (s *PingCmdTestSuite) TestInvalidArguments() {
	s.ErrorContains(s.newPingCmd(s.addr, 0).Run(context.Background(), []byte("hello")), "count")
	s.ErrorContains(s.newPingCmd(s.addr, 1).Run(context.Background(), nil), "payload")
}

func (s *PingCmdTestSuite) TestNoServer() {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	addr := listener.Addr().String()
	s.Require().NoError(listener.Close())

	s.ErrorContains(s.newPingCmd(addr, 1).Run(context.Background(), []byte("hello")), "dial")
}
