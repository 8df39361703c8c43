package ports

import "time"

const (
	ModeDrain = "drain"
	ModeLive  = "live"
)

type Policy struct {
	Capacity     int           `yaml:"capacity"`
	Mode         string        `yaml:"mode"` // "drain", "live"
	PollInterval time.Duration `yaml:"poll_interval"`
}
