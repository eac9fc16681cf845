package engine

import (
	"strconv"
)

// Arg is a single --flag value pair passed to an engine script
type Arg struct {
	Flag  string
	Value string
}

// Command describes one engine invocation: program, script and ordered flags
type Command struct {
	Program string
	Script  string
	args    []Arg
}

// NewCommand creates a command running script with program (usually Rscript)
func NewCommand(program, script string) *Command {
	return &Command{Program: program, Script: script}
}

// Flag appends --name value
func (c *Command) Flag(name, value string) *Command {
	c.args = append(c.args, Arg{Flag: name, Value: value})
	return c
}

// FlagIf appends --name value only when value is non-empty
func (c *Command) FlagIf(name, value string) *Command {
	if value == "" {
		return c
	}
	return c.Flag(name, value)
}

// Int appends an integer flag
func (c *Command) Int(name string, value int) *Command {
	return c.Flag(name, strconv.Itoa(value))
}

// Float appends a float flag in shortest round-trip form (0.1, 1e-05)
func (c *Command) Float(name string, value float64) *Command {
	return c.Flag(name, strconv.FormatFloat(value, 'g', -1, 64))
}

// Bool appends a boolean flag as R's TRUE/FALSE
func (c *Command) Bool(name string, value bool) *Command {
	if value {
		return c.Flag(name, "TRUE")
	}
	return c.Flag(name, "FALSE")
}

// Args returns the argv passed to Program: the script followed by flags
func (c *Command) Args() []string {
	out := make([]string, 0, 1+2*len(c.args))
	out = append(out, c.Script)
	for _, a := range c.args {
		out = append(out, "--"+a.Flag, a.Value)
	}
	return out
}

// Flags returns a copy of the ordered flag list
func (c *Command) Flags() []Arg {
	return append([]Arg(nil), c.args...)
}

// Value returns the value of the first occurrence of flag
func (c *Command) Value(flag string) (string, bool) {
	for _, a := range c.args {
		if a.Flag == flag {
			return a.Value, true
		}
	}
	return "", false
}
