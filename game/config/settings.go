package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultViewerName            = "viewer"
	DefaultSecondsPerTurn        = 2.0
	DefaultMaxMessageSize  int64 = 4096
	DefaultSendBuffer            = 64
)

// Settings holds everything the server needs at startup.
type Settings struct {
	Host                  string   `yaml:"host" env:"REFEREE_HOST"`
	Port                  int      `yaml:"port" env:"REFEREE_PORT"`
	ViewerName            string   `yaml:"viewer_name" env:"REFEREE_VIEWER_NAME"`
	DefaultSecondsPerTurn float64  `yaml:"default_seconds_per_turn" env:"REFEREE_SECONDS_PER_TURN"`
	MaxMessageSize        int64    `yaml:"max_message_size" env:"REFEREE_MAX_MESSAGE_SIZE"`
	SendBuffer            int      `yaml:"send_buffer" env:"REFEREE_SEND_BUFFER"`
	AllowedOrigins        []string `yaml:"allowed_origins" env:"REFEREE_ALLOWED_ORIGINS" envSeparator:","`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Host:                  DefaultHost,
		Port:                  DefaultPort,
		ViewerName:            DefaultViewerName,
		DefaultSecondsPerTurn: DefaultSecondsPerTurn,
		MaxMessageSize:        DefaultMaxMessageSize,
		SendBuffer:            DefaultSendBuffer,
	}
}

// Load returns the defaults overlaid with the YAML file at path, then with
// any REFEREE_* environment variables. An empty path skips the file.
func Load(path string) (Settings, error) {
	settings := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return settings, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Decode(data, &settings); err != nil {
			return settings, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ParseEnv(&settings); err != nil {
		return settings, err
	}
	return settings, settings.Validate()
}

// Decode overlays YAML data onto settings. Keys missing from data keep their
// current values.
func Decode(data []byte, settings *Settings) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	var problems []string
	if s.Port < 1 || s.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", s.Port))
	}
	if strings.TrimSpace(s.ViewerName) == "" {
		problems = append(problems, "viewer_name is empty")
	}
	if math.IsNaN(s.DefaultSecondsPerTurn) || math.IsInf(s.DefaultSecondsPerTurn, 0) || s.DefaultSecondsPerTurn <= 0 {
		problems = append(problems, fmt.Sprintf("default_seconds_per_turn %v must be positive", s.DefaultSecondsPerTurn))
	}
	if s.MaxMessageSize <= 0 {
		problems = append(problems, "max_message_size must be positive")
	}
	if s.SendBuffer <= 0 {
		problems = append(problems, "send_buffer must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address.
func (s Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
