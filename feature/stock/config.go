package stock

// Config holds purchase list settings.
type Config struct {
	// OutputDir receives the purchase list files.
	OutputDir string `mapstructure:"output_dir" default:"."`
	// BaseName prefixes purchase list file names.
	BaseName string `mapstructure:"base_name" default:"purchase"`
	// UnknownShop marks devices without any shop offer.
	UnknownShop string `mapstructure:"unknown_shop" default:"unknown"`
}
