// internal/control/command.go
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tendant/simple-scanmatch/internal/config"
)

type Kind string

const (
	KindStatus Kind = "STATUS"
	KindStart  Kind = "START"
	KindStop   Kind = "STOP"
)

var (
	ErrUnknownCommand   = errors.New("unknown control command")
	ErrMalformedCommand = errors.New("malformed control command")
)

type Command struct {
	Kind    Kind
	Station config.Station
}

// String renders the wire form of the command.
func (c Command) String() string {
	if c.Kind == KindStart {
		return fmt.Sprintf("%s,%s,%d,%s", KindStart, c.Station.IP, c.Station.Port, c.Station.LogFile)
	}
	return string(c.Kind)
}

// ParseCommand decodes STATUS, STOP or START,<ip>,<port>,<logFile>.
func ParseCommand(raw string) (Command, error) {
	raw = strings.TrimRight(raw, "\r\n")

	switch {
	case raw == string(KindStop):
		return Command{Kind: KindStop}, nil
	case strings.HasPrefix(raw, string(KindStatus)):
		return Command{Kind: KindStatus}, nil
	case strings.HasPrefix(raw, string(KindStart)):
		fields := strings.Split(raw, ",")
		if len(fields) != 4 || fields[0] != string(KindStart) {
			return Command{}, fmt.Errorf("%w: expected START,<ip>,<port>,<logFile>, got %q", ErrMalformedCommand, raw)
		}
		port, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return Command{}, fmt.Errorf("%w: invalid port %q", ErrMalformedCommand, fields[2])
		}
		return Command{
			Kind:    KindStart,
			Station: config.Station{IP: fields[1], Port: port, LogFile: fields[3]},
		}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, raw)
	}
}
