package mpris

import (
	"github.com/godbus/dbus/v5"
)

// DBusClient is the slice of the bus connection the source needs.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/quadify/quadify/internal/mpris DBusClient
type DBusClient interface {
	Close() error

	AddMatchSignal(options ...dbus.MatchOption) error

	// Signal registers a channel to receive bus signals.
	Signal(ch chan<- *dbus.Signal)

	// GetNameOwner returns the unique name that owns the given well-known name.
	GetNameOwner(name string) (string, error)

	GetProperty(dest, path, prop string) (dbus.Variant, error)
	SetProperty(dest, path, prop string, value any) error

	// Call invokes method on dest and discards the reply body.
	Call(dest, path, method string, args ...any) error
}

// StdDBusClient wraps a godbus connection.
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient connects to the system bus, or the session bus when
// system is false. Shairport Sync registers on the system bus by default.
func NewStdDBusClient(system bool) (*StdDBusClient, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if system {
		conn, err = dbus.ConnectSystemBus()
	} else {
		conn, err = dbus.ConnectSessionBus()
	}
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

func (c *StdDBusClient) AddMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignal(options...)
}

func (c *StdDBusClient) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

func (c *StdDBusClient) GetNameOwner(name string) (string, error) {
	var owner string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner)
	return owner, err
}

func (c *StdDBusClient) GetProperty(dest, path, prop string) (dbus.Variant, error) {
	return c.conn.Object(dest, dbus.ObjectPath(path)).GetProperty(prop)
}

func (c *StdDBusClient) SetProperty(dest, path, prop string, value any) error {
	return c.conn.Object(dest, dbus.ObjectPath(path)).SetProperty(prop, dbus.MakeVariant(value))
}

func (c *StdDBusClient) Call(dest, path, method string, args ...any) error {
	return c.conn.Object(dest, dbus.ObjectPath(path)).Call(method, 0, args...).Err
}
