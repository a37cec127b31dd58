package importer

// Config holds import settings.
type Config struct {
	// SchemePath points at a scheme document; empty uses the embedded one.
	SchemePath string `mapstructure:"scheme_path" default:""`
	// FormatsPath points at a supplier formats document; empty uses the embedded one.
	FormatsPath string `mapstructure:"formats_path" default:""`
	// HeaderShift adds leading lines to skip before the header of every format.
	HeaderShift int `mapstructure:"header_shift" default:"0"`
}
