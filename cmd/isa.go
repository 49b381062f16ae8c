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
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/gmofishsauce/octa/pkg/isa"
)

var isaDump bool

// isaCmd represents the isa command
var isaCmd = &cobra.Command{
	Use:   "isa",
	Short: "Print the instruction table",
	Long: `Isa loads the architecture descriptor named by --isa and prints one
line per mnemonic: name, opcode, the index of the operand packed into
the 32-bit field, and the addressing modes of each operand.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := isa.LoadFile(isaPath)
		if err != nil {
			return err
		}
		printTable(cmd.OutOrStdout(), table, isaDump)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(isaCmd)
	isaCmd.Flags().BoolVar(&isaDump, "dump", false, "dump the loaded descriptors in full")
}

func printTable(w io.Writer, table isa.Table, dump bool) {
	if dump {
		// Mnemonic's String method would hide the fields
		sc := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true, DisableMethods: true}
		sc.Fdump(w, table)
		return
	}
	fmt.Fprintf(w, "%-6s %-4s %s\n", "NAME", "OP", "OPERANDS")
	for _, name := range table.Names() {
		fmt.Fprintln(w, table[name])
	}
}
