// Package command maps the command line to a station action and runs it.
package command

import (
	"errors"

	"KebaP30c-Client/internal/config"
)

var (
	ErrUnsupportedArgument  = errors.New("argument is not supported, use /? for help")
	ErrInvalidArgumentCount = errors.New("invalid number of arguments, use /? for help")
)

// Kind selects the action.
type Kind int

const (
	SetCurrent Kind = iota
	SetStationState
	Report
	Help
)

func (k Kind) String() string {
	switch k {
	case SetCurrent:
		return "set current"
	case SetStationState:
		return "set station state"
	case Report:
		return "report"
	case Help:
		return "help"
	}
	return "unknown"
}

// Command is one parsed invocation.
type Command struct {
	Kind   Kind
	Preset config.Preset // SetCurrent
	Enable bool          // SetStationState
	Report int           // Report number
}

var commands = map[string]Command{
	"/max":     {Kind: SetCurrent, Preset: config.PresetMax},
	"/med":     {Kind: SetCurrent, Preset: config.PresetMedium},
	"/disable": {Kind: SetStationState, Enable: false},
	"/enable":  {Kind: SetStationState, Enable: true},
	"/report2": {Kind: Report, Report: 2},
	"/?":       {Kind: Help},
}

// HelpText lists the supported arguments.
const HelpText = `Supported Arguments:
(none)   to set the default user current from the config file
/max     to set the max user current from the config file
/med     to set the medium user current from the config file
/disable to disable charging station
/enable  to enable charging station
/report2 to dump config via UDP
/?       to show this help
`

// Parse maps positional arguments to a Command. It never touches the network.
func Parse(args []string) (Command, error) {
	switch len(args) {
	case 0:
		return Command{Kind: SetCurrent, Preset: config.PresetDefault}, nil
	case 1:
		if c, ok := commands[args[0]]; ok {
			return c, nil
		}
		return Command{}, ErrUnsupportedArgument
	default:
		return Command{}, ErrInvalidArgumentCount
	}
}

// IsUsageError reports whether err came from Parse.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUnsupportedArgument) || errors.Is(err, ErrInvalidArgumentCount)
}
