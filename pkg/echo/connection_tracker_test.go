package echo

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConnectionTrackerTestSuite struct {
	suite.Suite
	tracker *ConnectionTracker
}

func TestConnectionTrackerTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectionTrackerTestSuite))
}

func (s *ConnectionTrackerTestSuite) SetupTest() {
	s.tracker = NewConnectionTracker()
}

func (s *ConnectionTrackerTestSuite) TestNewConnectionTracker() {
	tracker := NewConnectionTracker()
	s.NotNil(tracker)
	s.Equal(0, tracker.Count())
}

func (s *ConnectionTrackerTestSuite) TestNewConnectionIDIsUnique() {
	s.NotEqual(NewConnectionID(), NewConnectionID())
}

func (s *ConnectionTrackerTestSuite) TestAddConnection() {
	s.tracker.Add("conn1", "192.168.1.1:8080")
	s.Equal(1, s.tracker.Count())

	conn, exists := s.tracker.Get("conn1")
	s.True(exists)
	s.Equal("conn1", conn.ID)
	s.Equal("192.168.1.1:8080", conn.RemoteAddr)
	s.Equal(int64(0), conn.BytesEchoed)
}

func (s *ConnectionTrackerTestSuite) TestRemoveConnection() {
	s.tracker.Add("conn1", "192.168.1.1:8080")
	s.tracker.Remove("conn1")
	s.Equal(0, s.tracker.Count())

	_, exists := s.tracker.Get("conn1")
	s.False(exists)
}

func (s *ConnectionTrackerTestSuite) TestUpdateConnection() {
	s.tracker.Add("conn1", "192.168.1.1:8080")

	conn, _ := s.tracker.Get("conn1")
	firstSeen := conn.LastSeen

	time.Sleep(10 * time.Millisecond)
	s.tracker.Update("conn1", 5)
	s.tracker.Update("conn1", 7)

	conn, _ = s.tracker.Get("conn1")
	s.True(conn.LastSeen.After(firstSeen))
	s.Equal(int64(12), conn.BytesEchoed)

	// unknown ids are ignored
	s.tracker.Update("conn2", 1)
	s.Equal(1, s.tracker.Count())
}

func (s *ConnectionTrackerTestSuite) TestListReturnsCopiesOldestFirst() {
	s.tracker.Add("conn1", "192.168.1.1:8080")
	time.Sleep(time.Millisecond)
	s.tracker.Add("conn2", "192.168.1.2:8080")

	conns := s.tracker.List()
	s.Require().Len(conns, 2)
	s.Equal("conn1", conns[0].ID)
	s.Equal("conn2", conns[1].ID)

	conns[0].BytesEchoed = 100
	conn, _ := s.tracker.Get("conn1")
	s.Equal(int64(0), conn.BytesEchoed)
}

func (s *ConnectionTrackerTestSuite) TestConcurrentAccess() {
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(id int) {
			connID := fmt.Sprintf("conn%d", id)
			s.tracker.Add(connID, "192.168.1.1:8080")
			s.tracker.Update(connID, id)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	s.Equal(10, s.tracker.Count())
}
