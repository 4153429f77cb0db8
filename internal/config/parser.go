package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Parse decodes TOML content over base. Keys absent from content keep their
// base value; keys this build does not know become warnings.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg := base
	cfg.Script.Args = append([]string(nil), base.Script.Args...)

	md, err := toml.Decode(content, &cfg)
	if err != nil {
		var parseErr toml.ParseError
		if errors.As(err, &parseErr) {
			return Config{}, nil, fmt.Errorf("line %d: %s", parseErr.Position.Line, parseErr.Message)
		}
		return Config{}, nil, err
	}

	warnings := make([]Warning, 0)
	for _, key := range md.Undecoded() {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown config key %q", key.String())})
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}
