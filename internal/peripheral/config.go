package peripheral

// Config configures the peripheral core.
type Config struct {
	MaxClients          int   `help:"Maximum number of simultaneously connected clients" default:"2" env:"BLEMOUSE_MAX_CLIENTS"`
	MovementQueueSize   int   `help:"Pending movement deltas before new input is dropped" default:"10" env:"BLEMOUSE_MOVEMENT_QUEUE_SIZE"`
	EventQueueSize      int   `help:"Pending link and security events before new ones are dropped" default:"32" env:"BLEMOUSE_EVENT_QUEUE_SIZE"`
	DirectedAdvertising bool  `help:"Advertise directly to bonded peers before falling back to undirected advertising" default:"false" env:"BLEMOUSE_DIRECTED_ADVERTISING"`
	Speed               int16 `help:"Movement per button press in report units" default:"5" env:"BLEMOUSE_SPEED"`
}

// DefaultConfig returns the values kong would apply.
func DefaultConfig() Config {
	return Config{
		MaxClients:        2,
		MovementQueueSize: 10,
		EventQueueSize:    32,
		Speed:             5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxClients < 1 {
		c.MaxClients = d.MaxClients
	}
	if c.MovementQueueSize < 1 {
		c.MovementQueueSize = d.MovementQueueSize
	}
	if c.EventQueueSize < 1 {
		c.EventQueueSize = d.EventQueueSize
	}
	if c.Speed == 0 {
		c.Speed = d.Speed
	}
	return c
}
