package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type PIDFileTestSuite struct {
	suite.Suite
	path string
}

func TestPIDFileTestSuite(t *testing.T) {
	suite.Run(t, new(PIDFileTestSuite))
}

func (s *PIDFileTestSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "run", "echod.pid")
}

func (s *PIDFileTestSuite) TestAcquireWritesPID() {
	pidFile, err := Acquire(s.path)
	s.Require().NoError(err)
	defer func() { _ = pidFile.Release() }()

	content, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(strconv.Itoa(os.Getpid()), strings.TrimSpace(string(content)))
	s.Equal(s.path, pidFile.Path())
}

func (s *PIDFileTestSuite) TestSecondAcquireFails() {
	pidFile, err := Acquire(s.path)
	s.Require().NoError(err)
	defer func() { _ = pidFile.Release() }()

	_, err = Acquire(s.path)
	s.ErrorContains(err, "locked by another process")
}

func (s *PIDFileTestSuite) TestReleaseRemovesFile() {
	pidFile, err := Acquire(s.path)
	s.Require().NoError(err)
	s.Require().NoError(pidFile.Release())

	_, err = os.Stat(s.path)
	s.True(os.IsNotExist(err))

	pidFile, err = Acquire(s.path)
	s.Require().NoError(err)
	s.NoError(pidFile.Release())
}

func (s *PIDFileTestSuite) TestRelativePath() {
	_, err := Acquire("echod.pid")
	s.ErrorContains(err, "path not absolute")
}
