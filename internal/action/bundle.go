package action

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Bundle keys.
const (
	BundleAction   = "action"
	BundleArgs     = "args"
	BundleSettings = "settings"
)

// Bundle is a decoded --encoded argument bundle.
type Bundle struct {
	// Action is run when the command line names none.
	Action string
	// Args precede the positional arguments of the command line.
	Args []string
	// Settings are merged into the process configuration below flags.
	Settings map[string]any
}

// DecodeBundle decodes a base64 encoded JSON object of the form
// {"action": "...", "args": [...], "settings": {...}}. Every key is optional.
func DecodeBundle(encoded string) (*Bundle, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		data, err = base64.RawURLEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
		}
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidBundle)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidBundle)
	}

	b := &Bundle{Action: doc.Get(BundleAction).String()}
	for _, arg := range doc.Get(BundleArgs).Array() {
		b.Args = append(b.Args, arg.String())
	}
	if settings := doc.Get(BundleSettings); settings.IsObject() {
		b.Settings, _ = settings.Value().(map[string]any)
	}
	return b, nil
}

// EncodeBundle builds a base64 encoded bundle from path=value pairs.
// Paths use gjson dot syntax ("settings.log.level", "args.-1" appends).
// Values that are valid JSON are stored as JSON, the rest as strings.
func EncodeBundle(pairs []string) (string, error) {
	doc := "{}"
	for _, pair := range pairs {
		path, value, ok := strings.Cut(pair, "=")
		if !ok || path == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidPair, pair)
		}

		var err error
		if gjson.Valid(value) {
			doc, err = sjson.SetRaw(doc, path, value)
		} else {
			doc, err = sjson.Set(doc, path, value)
		}
		if err != nil {
			return "", fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return base64.StdEncoding.EncodeToString([]byte(doc)), nil
}
