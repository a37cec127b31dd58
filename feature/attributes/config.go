package attributes

import "fmt"

// Config holds the per-field merge policies.
type Config struct {
	// Manufacturer handles a device_id recorded under another manufacturer.
	Manufacturer string `mapstructure:"manufacturer" default:"ask"`
	// Description handles differing device descriptions.
	Description string `mapstructure:"description" default:"longest"`
	// Package handles differing packages.
	Package string `mapstructure:"package" default:"keep_existing"`
	// Category handles differing category1 and category2 values.
	Category string `mapstructure:"category" default:"keep_existing"`
}

// Policies validates the configuration and maps it to field policies.
// Blank entries take the default policy of the field.
func (c Config) Policies() (Policies, error) {
	p := DefaultPolicies()
	set := func(field, value string) error {
		if value == "" {
			return nil
		}
		policy := Policy(value)
		if !policy.valid() {
			return fmt.Errorf("reconcile.%s: unknown policy %q", field, value)
		}
		p[field] = policy
		return nil
	}
	for _, kv := range [][2]string{
		{FieldManufacturer, c.Manufacturer},
		{FieldDescription, c.Description},
		{FieldPackage, c.Package},
		{FieldCategory1, c.Category},
		{FieldCategory2, c.Category},
	} {
		if err := set(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return p, nil
}
