package config

import (
	"reflect"
	"strings"

	"bom-manager/core/database"
	"bom-manager/core/logger"
	"bom-manager/core/metrics"
	"bom-manager/core/storage"
	"bom-manager/feature/attributes"
	"bom-manager/feature/importer"
	"bom-manager/feature/stock"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the inventory database.
	Database database.Config `mapstructure:"database"`
	// Storage holds configuration for publishing purchase lists.
	Storage storage.Config `mapstructure:"storage"`
	// Import holds scheme and supplier format locations.
	Import importer.Config `mapstructure:"import"`
	// Reconcile holds the attribute conflict policies.
	Reconcile attributes.Config `mapstructure:"reconcile"`
	// Purchase holds purchase list output settings.
	Purchase stock.Config `mapstructure:"purchase"`
	// Metrics holds the textfile export settings.
	Metrics metrics.Config `mapstructure:"metrics"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. DATABASE_NAME -> database.name)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
