package relay

import (
	"strings"
	"unicode"
)

type Command int

const (
	CommandNone Command = iota
	CommandText
	CommandStart
	CommandClear
	CommandHelp
)

var commandTokens = map[string]Command{
	"/start": CommandStart,
	"/clear": CommandClear,
	"/help":  CommandHelp,
}

func (c Command) String() string {
	switch c {
	case CommandText:
		return "text"
	case CommandStart:
		return "start"
	case CommandClear:
		return "clear"
	case CommandHelp:
		return "help"
	default:
		return "none"
	}
}

// Classify maps inbound text to a command. The text must begin with the
// command token; a trailing "@botname" is ignored and matching ignores case.
// Anything unrecognised is plain text, and blank text is CommandNone.
func Classify(text string) Command {
	if strings.TrimSpace(text) == "" {
		return CommandNone
	}
	if !strings.HasPrefix(text, "/") {
		return CommandText
	}

	token := text
	if end := strings.IndexFunc(token, unicode.IsSpace); end >= 0 {
		token = token[:end]
	}
	if at := strings.IndexByte(token, '@'); at > 0 {
		token = token[:at]
	}
	if cmd, ok := commandTokens[strings.ToLower(token)]; ok {
		return cmd
	}
	return CommandText
}
