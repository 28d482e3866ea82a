package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// LoadError reports a policy file that could not be used.
type LoadError struct {
	Path string
	Msg  string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("policy %s: %s", e.Path, e.Msg)
}

// Load reads a policy JSON file. An empty path returns the built-in
// default. Unknown fields are ignored; a wrong api_version is a
// LoadError.
func Load(path string) (Policy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Policy{}, &LoadError{Path: path, Msg: err.Error()}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Policy{}, &LoadError{Path: path, Msg: err.Error()}
	}

	var p Policy
	if err := v.Unmarshal(&p, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
	}); err != nil {
		return Policy{}, &LoadError{Path: path, Msg: err.Error()}
	}

	if p.APIVersion == 0 {
		p.APIVersion = 1
	}
	if p.APIVersion != 1 {
		return Policy{}, &LoadError{Path: path, Msg: fmt.Sprintf("unsupported api_version %d", p.APIVersion)}
	}
	return p, nil
}
