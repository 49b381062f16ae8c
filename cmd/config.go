/*
Copyright © 2023 Jeff Berkowitz (pdxjjb@gmail.com)

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cmd

// Project settings. A project directory may hold an octa.yaml so the
// memory layout and serial port don't have to be repeated on every
// command line:
//
//	isa: ../emulator/cpu.h
//	base: 0x1000
//	stack: {addr: 0x8000, size: 0x400}
//	heap: {addr: 0x9000, size: 0x1000}
//	header: true
//	serial: {device: /dev/ttyUSB0, baud: 115200}

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "octa.yaml"

// Number is a config value that may be written with a base prefix.
type Number uint32

func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	v, err := parseAddress(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*n = Number(v)
	return nil
}

type Region struct {
	Addr Number `yaml:"addr"`
	Size Number `yaml:"size"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type Config struct {
	ISA          string       `yaml:"isa"`
	Base         Number       `yaml:"base"`
	Stack        Region       `yaml:"stack"`
	Heap         Region       `yaml:"heap"`
	Header       bool         `yaml:"header"`
	StrictLabels bool         `yaml:"strictLabels"`
	Serial       SerialConfig `yaml:"serial"`
}

func defaultConfig() *Config {
	return &Config{Serial: SerialConfig{Baud: 115200}}
}

// Load the settings file at path. A missing file is only an error
// when it was named explicitly.
func loadConfig(path string, required bool) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return defaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()

	c, err := parseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func parseConfig(r io.Reader) (*Config, error) {
	c := defaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return nil, err
	}
	return c, nil
}
