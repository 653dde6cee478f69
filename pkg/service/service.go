package service

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/takama/daemon"
)

const (
	Name        = "echod"
	Description = "Concurrent TCP echo server"
)

// ParseKind maps the --scope flag onto a daemon kind
func ParseKind(scope string) (daemon.Kind, error) {
	switch scope {
	case "system":
		return daemon.SystemDaemon, nil
	case "user":
		return daemon.UserAgent, nil
	default:
		return "", fmt.Errorf("unrecognized service scope %s, needs to be either system or user", scope)
	}
}

// Manager installs and controls echod as an operating system service
// (systemd, launchd or the windows service manager).
type Manager struct {
	daemon daemon.Daemon
}

// NewManager creates a manager for the given scope
func NewManager(scope string) (*Manager, error) {
	kind, err := ParseKind(scope)
	if err != nil {
		return nil, err
	}

	d, err := daemon.New(Name, Description, kind, "network.target")
	if err != nil {
		return nil, errors.Wrap(err, "create service")
	}
	return &Manager{daemon: d}, nil
}

// Install registers the service. args are appended to the echod executable
// in the service definition, e.g. serve --address 0.0.0.0:7.
func (m *Manager) Install(args ...string) (string, error) {
	if len(args) == 0 {
		args = []string{"serve"}
	}
	status, err := m.daemon.Install(args...)
	return status, errors.Wrap(err, "install service")
}

// Uninstall stops and removes the service
func (m *Manager) Uninstall() (string, error) {
	status, err := m.daemon.Remove()
	return status, errors.Wrap(err, "uninstall service")
}

func (m *Manager) Start() (string, error) {
	status, err := m.daemon.Start()
	return status, errors.Wrap(err, "start service")
}

func (m *Manager) Stop() (string, error) {
	status, err := m.daemon.Stop()
	return status, errors.Wrap(err, "stop service")
}

func (m *Manager) Status() (string, error) {
	status, err := m.daemon.Status()
	return status, errors.Wrap(err, "service status")
}
