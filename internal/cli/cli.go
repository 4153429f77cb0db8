package cli

import (
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandEvents  Command = "events"
	CommandQuery   Command = "query"
	CommandDevices Command = "devices"
	CommandStatus  Command = "status"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// argRule bounds the positional arguments a command accepts; max < 0 means
// unbounded.
type argRule struct {
	min, max int
}

var validCommands = map[Command]argRule{
	CommandRun:     {min: 0, max: -1},
	CommandEvents:  {},
	CommandQuery:   {min: 1, max: 1},
	CommandDevices: {},
	CommandStatus:  {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ScriptPath string
	Args       []string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config", "--script":
			i++
			if i >= len(args) {
				return Parsed{}, fmt.Errorf("%s requires a path", arg)
			}
			if arg == "--config" {
				parsed.ConfigPath = args[i]
			} else {
				parsed.ScriptPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			rule, ok := validCommands[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			// Script arguments are passed through untouched, flags included.
			if cmd == CommandRun && len(rest) > 0 && rest[0] == "--" {
				rest = rest[1:]
			}
			if len(rest) < rule.min {
				return Parsed{}, fmt.Errorf("command %q requires %d argument(s)", arg, rule.min)
			}
			if rule.max >= 0 && len(rest) > rule.max {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			parsed.Args = append([]string(nil), rest...)
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--script PATH] <command> [args]

Commands:
  run [args...]    Run the shell script; args are passed to it
  events           Print compositor events as JSON lines until interrupted
  query <command>  Print one IPC reply as JSON (%[2]s)
  devices          List PulseAudio sinks and sources
  status           Print control-socket health of the running shell
  doctor           Run configuration and environment checks
  version          Print version information
  help             Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/crabshell/config.toml)
  --script PATH   Script to run, relative to the config directory (default: main.lua)
  -h, --help      Show help
  --version       Show version
`, binaryName, "workspaces, activeworkspace, activewindow, clients, devices, monitors")
}
