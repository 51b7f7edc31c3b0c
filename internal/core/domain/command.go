package domain

import "strings"

// Command is a parsed command invocation. It is built per inbound text
// message and discarded after dispatch.
type Command struct {
	// Name is lower-cased with the prefix stripped. It may be empty when the
	// body was the bare prefix.
	Name string

	// Args are the whitespace-delimited arguments after the name.
	Args []string

	// Raw is the original message body.
	Raw string
}

// ParseCommand parses body as a command if it starts with prefix.
// Repeated whitespace never produces empty arguments.
func ParseCommand(body, prefix string) (Command, bool) {
	if body == "" || prefix == "" || !strings.HasPrefix(body, prefix) {
		return Command{}, false
	}

	fields := strings.Fields(body[len(prefix):])
	cmd := Command{Raw: body}
	if len(fields) == 0 {
		return cmd, true
	}
	cmd.Name = strings.ToLower(fields[0])
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}
	return cmd, true
}
