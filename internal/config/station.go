// internal/config/station.go
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	keyIP      = "SCAN_IP"
	keyPort    = "SCAN_PORT"
	keyLogFile = "AUDIT_LOG"
)

// Station is the operator-editable configuration: where the intake listens
// and where outcomes are logged.
type Station struct {
	IP      string
	Port    int
	LogFile string
}

func (s Station) Addr() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

func (s Station) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if strings.TrimSpace(s.LogFile) == "" {
		return errors.New("log file is required")
	}
	return nil
}

// Store keeps the last used station configuration in a dotenv file so it
// survives restarts.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the stored configuration. When the file does not exist the
// defaults are written and returned.
func (s *Store) Load(defaults Station) (Station, error) {
	values, err := godotenv.Read(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.Save(defaults); err != nil {
			return Station{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return Station{}, fmt.Errorf("read station config %s: %w", s.path, err)
	}

	st := defaults
	if v := values[keyIP]; v != "" {
		st.IP = v
	}
	if v := values[keyPort]; v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Station{}, fmt.Errorf("invalid %s in %s: %w", keyPort, s.path, err)
		}
		st.Port = port
	}
	if v := values[keyLogFile]; v != "" {
		st.LogFile = v
	}
	return st, nil
}

func (s *Store) Save(st Station) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	values := map[string]string{
		keyIP:      st.IP,
		keyPort:    strconv.Itoa(st.Port),
		keyLogFile: st.LogFile,
	}
	if err := godotenv.Write(values, s.path); err != nil {
		return fmt.Errorf("write station config %s: %w", s.path, err)
	}
	return nil
}
