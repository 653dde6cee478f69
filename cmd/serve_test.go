package cmd

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loft-sh/log"
	"github.com/skevetter/echod/cmd/flags"
	"github.com/skevetter/echod/pkg/echo"
	"github.com/stretchr/testify/suite"
)

type ServeCmdTestSuite struct {
	suite.Suite
}

func TestServeCmdTestSuite(t *testing.T) {
	suite.Run(t, new(ServeCmdTestSuite))
}

func (s *ServeCmdTestSuite) newServeCmd(address string) *ServeCmd {
	return &ServeCmd{
		GlobalFlags: &flags.GlobalFlags{},
		Log:         log.Discard,
		Address:     address,
		BufferSize:  echo.DefaultBufferSize,
	}
}

func (s *ServeCmdTestSuite) TestValidate() {
	cmd := s.newServeCmd(echo.DefaultAddress)
	s.NoError(cmd.Validate())

	cmd.BufferSize = 0
	s.ErrorContains(cmd.Validate(), "buffer size")

	cmd = s.newServeCmd(echo.DefaultAddress)
	cmd.MaxConnections = -1
	s.ErrorContains(cmd.Validate(), "max connections")

	cmd = s.newServeCmd(echo.DefaultAddress)
	cmd.IdleTimeout = -time.Second
	s.ErrorContains(cmd.Validate(), "idle timeout")
}

func (s *ServeCmdTestSuite) TestAddressInUse() {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	defer func() { _ = occupied.Close() }()

	err = s.newServeCmd(occupied.Addr().String()).Run(context.Background())
	s.Require().Error(err)
	s.ErrorContains(err, "start listener")

	var bindErr *echo.BindError
	s.ErrorAs(err, &bindErr)
}

func (s *ServeCmdTestSuite) TestServeUntilCancelled() {
	cmd := s.newServeCmd("127.0.0.1:0")
	addrs := make(chan net.Addr, 1)
	cmd.started = func(addr net.Addr) { addrs <- addr }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.Run(ctx) }()

	var addr net.Addr
	select {
	case addr = <-addrs:
	case err := <-done:
		s.FailNow("serve exited early", "%v", err)
	case <-time.After(10 * time.Second):
		s.FailNow("serve did not start")
	}

	client, err := echo.Dial(ctx, addr.String(), 5*time.Second)
	s.Require().NoError(err)
	defer func() { _ = client.Close() }()

	reply, err := client.RoundTrip([]byte("hello"))
	s.Require().NoError(err)
	s.True(bytes.Equal([]byte("hello"), reply))

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(10 * time.Second):
		s.FailNow("serve did not stop")
	}
}

func (s *ServeCmdTestSuite) TestStatusServerFailureStopsServe() {
	cmd := s.newServeCmd("127.0.0.1:0")
	cmd.StatusAddress = "not-an-address"

	done := make(chan error, 1)
	go func() { done <- cmd.Run(context.Background()) }()

	select {
	case err := <-done:
		s.ErrorContains(err, "status server")
	case <-time.After(10 * time.Second):
		s.FailNow("serve did not stop after the status server failed")
	}
}

func (s *ServeCmdTestSuite) TestPIDFileHeldWhileServing() {
	cmd := s.newServeCmd("127.0.0.1:0")
	cmd.PIDFile = filepath.Join(s.T().TempDir(), "echod.pid")
	started := make(chan struct{})
	cmd.started = func(net.Addr) { close(started) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.Run(ctx) }()

	select {
	case <-started:
	case err := <-done:
		s.FailNow("serve exited early", "%v", err)
	case <-time.After(10 * time.Second):
		s.FailNow("serve did not start")
	}

	_, err := os.Stat(cmd.PIDFile)
	s.NoError(err)

	second := s.newServeCmd("127.0.0.1:0")
	second.PIDFile = cmd.PIDFile
	s.ErrorContains(second.Run(ctx), "locked by another process")

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(10 * time.Second):
		s.FailNow("serve did not stop")
	}

	_, err = os.Stat(cmd.PIDFile)
	s.True(os.IsNotExist(err))
}
