package environment

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"github.com/dshills/nucleon/config"
	"github.com/dshills/nucleon/plugin"
)

// Fingerprint returns the instance name for options created by provider:
// "<provider>_" followed by the hex SHA-1 of the JSON encoding of the
// identity fields present in options. The new option never contributes.
func Fingerprint(provider string, fields []string, options *config.Config) string {
	subset := make(map[string]any, len(fields))
	if options != nil {
		for _, field := range fields {
			if field == plugin.NewOption || !options.Has(field) {
				continue
			}
			subset[field] = options.Get(field, nil)
		}
	}

	// Map keys are sorted by encoding/json, so equal subsets encode equally.
	data, err := json.Marshal(subset)
	if err != nil {
		data = []byte(config.String(subset))
	}
	sum := sha1.Sum(data)
	return provider + "_" + hex.EncodeToString(sum[:])
}

// InstanceName returns the explicit plugin_name option when set, else the
// identity fingerprint.
func InstanceName(provider string, fields []string, options *config.Config) string {
	if options != nil {
		if name := options.GetString(plugin.NameOption, ""); name != "" {
			return name
		}
	}
	return Fingerprint(provider, fields, options)
}
