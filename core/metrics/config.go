package metrics

// Config holds run metrics settings.
type Config struct {
	// Textfile is where counters are written after a run; empty disables it.
	Textfile string `mapstructure:"textfile" default:""`
}
