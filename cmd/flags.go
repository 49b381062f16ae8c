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

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// Addresses and sizes are written 4096, 0x1000, 0o10000 or 0b1....
func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok {
			err = ne.Err
		}
		return 0, fmt.Errorf("address %q: %w", s, err)
	}
	return uint32(v), nil
}

// addrValue is a pflag.Value holding a 32-bit address.
type addrValue uint32

var _ pflag.Value = (*addrValue)(nil)

func newAddrValue(val uint32, p *uint32) *addrValue {
	*p = val
	return (*addrValue)(p)
}

func (a *addrValue) Set(s string) error {
	v, err := parseAddress(s)
	if err != nil {
		return err
	}
	*a = addrValue(v)
	return nil
}

func (a *addrValue) String() string {
	return fmt.Sprintf("0x%X", uint32(*a))
}

func (a *addrValue) Type() string {
	return "address"
}

// Return the flag's value if it was given, else the configured one.
func pick(flags *pflag.FlagSet, name string, flagVal, cfgVal uint32) uint32 {
	if flags.Changed(name) {
		return flagVal
	}
	return cfgVal
}

func pickBool(flags *pflag.FlagSet, name string, flagVal, cfgVal bool) bool {
	if flags.Changed(name) {
		return flagVal
	}
	return cfgVal
}
