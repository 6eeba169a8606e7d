package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	CaptureConfig struct {
		Selector       string   `yaml:"selector" validate:"required"`
		Host           HostKind `yaml:"host" validate:"gte=0"`
		TokenPrefix    string   `yaml:"token_prefix" validate:"required,excludesall=.#"`
		Placeholder    bool     `yaml:"placeholder"`
		ViewportWidth  int      `yaml:"viewport_width" validate:"min=1"`
		ViewportHeight int      `yaml:"viewport_height" validate:"min=1"`
	}

	FontsConfig struct {
		Mode        FontMode      `yaml:"mode" validate:"gte=0"`
		Concurrency int           `yaml:"concurrency" validate:"min=1,max=64"`
		Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	}

	BrowserConfig struct {
		RemoteURL SecretString `yaml:"remote_url"`
		Bin       string       `yaml:"bin" sanitize:"assure_file_access"`
		Headless  bool         `yaml:"headless"`
	}

	ExportConfig struct {
		Orientation           Orientation `yaml:"orientation" validate:"gte=0"`
		Scale                 float64     `yaml:"scale" validate:"gt=0.0,lte=8.0"`
		JPEGQuality           int         `yaml:"jpeg_quality" validate:"gte=0,lte=100"`
		Title                 string      `yaml:"title"`
		OutputNameTemplate    string      `yaml:"output_name_template"`
		FileNameTransliterate bool        `yaml:"file_name_transliterate"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Capture   CaptureConfig  `yaml:"capture"`
		Fonts     FontsConfig    `yaml:"fonts"`
		Browser   BrowserConfig  `yaml:"browser"`
		Export    ExportConfig   `yaml:"export"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump returns active configuration as YAML, secrets are masked.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
