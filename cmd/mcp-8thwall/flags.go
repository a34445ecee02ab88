package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mcp-8thwall/mcp-8thwall/internal/config"
)

// modeValue is a pflag.Value that only accepts known modes.
type modeValue config.Mode

var _ pflag.Value = (*modeValue)(nil)

func (m *modeValue) String() string { return string(*m) }

func (m *modeValue) Set(s string) error {
	mode := config.Mode(strings.ToLower(strings.TrimSpace(s)))
	if !mode.Valid() {
		return fmt.Errorf("must be one of %s", modeList())
	}
	*m = modeValue(mode)
	return nil
}

func (m *modeValue) Type() string { return "mode" }

func modeList() string {
	names := make([]string, len(config.Modes))
	for i, m := range config.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
