package stdio

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment fallbacks for the peer command line.
const (
	envCommand = "DREMIO_MCP_CMD"
	envArgs    = "DREMIO_MCP_ARGS"
)

// Config describes the tool-execution peer subprocess.
type Config struct {
	// Command is the executable that speaks MCP over stdio.
	Command string `yaml:"command"`

	// Args are passed to the command verbatim.
	Args []string `yaml:"args"`

	// Env is appended to the subprocess environment as KEY=VALUE pairs.
	Env map[string]string `yaml:"env"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
}

// resolve fills unset fields from the environment. DREMIO_MCP_ARGS is
// split on whitespace; arguments containing spaces belong in the YAML
// args list instead.
func (c *Config) resolve() {
	if c.Command == "" {
		c.Command = os.Getenv(envCommand)
	}
	if len(c.Args) == 0 {
		if raw := os.Getenv(envArgs); raw != "" {
			c.Args = strings.Fields(raw)
		}
	}
}

// validate returns an error if required fields are missing.
func (c *Config) validate() error {
	if c.Command == "" {
		return fmt.Errorf("bridge.stdio: command is required (or set %s)", envCommand)
	}
	return nil
}

// environ renders Env as KEY=VALUE pairs for the subprocess.
func (c *Config) environ() []string {
	if len(c.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	return env
}
