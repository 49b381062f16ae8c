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
	"bufio"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gmofishsauce/octa/pkg/asm"
	"github.com/gmofishsauce/octa/pkg/isa"
)

type asmFlags struct {
	bin     string
	text    string
	symbols string
	debug   string

	base      uint32
	stackAddr uint32
	stackSize uint32
	heapAddr  uint32
	heapSize  uint32

	header       bool
	strictLabels bool
	quiet        bool
}

var asmArgs asmFlags

// asmCmd represents the asm command
var asmCmd = &cobra.Command{
	Use:   "asm sourceFile",
	Short: "The octa assembler",
	Long: `Asm translates one source file into a program image. The binary
digits of each instruction are printed on standard output unless
--quiet is given. Each of the other outputs is written only when its
flag names a file:

  --bin      the packed little-endian image
  --text     the same digits as standard output, for the emulator
  --symbols  exported labels, one ".name 0xaddr" per line
  --debug    "0xline 0xoffset" for every instruction

Addresses and sizes may be given in decimal or with a 0x, 0o or 0b
prefix. Values not given on the command line come from the project
settings file.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsm(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(asmCmd)

	f := asmCmd.Flags()
	f.StringVarP(&asmArgs.bin, "bin", "o", "", "write the binary image to `file`")
	f.StringVarP(&asmArgs.text, "text", "t", "", "write the ASCII-binary image to `file`")
	f.StringVarP(&asmArgs.symbols, "symbols", "s", "", "write exported labels to `file`")
	f.StringVarP(&asmArgs.debug, "debug", "g", "", "write the line to offset map to `file`")
	f.VarP(newAddrValue(0, &asmArgs.base), "base", "b", "load address of the program")
	f.Var(newAddrValue(0, &asmArgs.stackAddr), "stack-addr", "stack address for the header")
	f.Var(newAddrValue(0, &asmArgs.stackSize), "stack-size", "stack size for the header")
	f.Var(newAddrValue(0, &asmArgs.heapAddr), "heap-addr", "heap address for the header")
	f.Var(newAddrValue(0, &asmArgs.heapSize), "heap-size", "heap size for the header")
	f.BoolVarP(&asmArgs.header, "header", "H", false, "prefix the image with a program header")
	f.BoolVar(&asmArgs.strictLabels, "strict-labels", false, "make label redefinition an error")
	f.BoolVarP(&asmArgs.quiet, "quiet", "q", false, "don't print the image on standard output")
}

// Combine the flags with the project settings. Flags win.
func (a *asmFlags) options(flags *pflag.FlagSet, c *Config) asm.Options {
	return asm.Options{
		Base:         pick(flags, "base", a.base, uint32(c.Base)),
		StackAddr:    pick(flags, "stack-addr", a.stackAddr, uint32(c.Stack.Addr)),
		StackSize:    pick(flags, "stack-size", a.stackSize, uint32(c.Stack.Size)),
		HeapAddr:     pick(flags, "heap-addr", a.heapAddr, uint32(c.Heap.Addr)),
		HeapSize:     pick(flags, "heap-size", a.heapSize, uint32(c.Heap.Size)),
		Header:       pickBool(flags, "header", a.header, c.Header),
		StrictLabels: pickBool(flags, "strict-labels", a.strictLabels, c.StrictLabels),
	}
}

// outputFiles holds the files opened for one run so they can be flushed
// and closed together whether or not assembly succeeds.
type outputFiles struct {
	files   []*os.File
	writers []*bufio.Writer
}

func (o *outputFiles) create(path string) (io.Writer, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	o.files = append(o.files, f)
	o.writers = append(o.writers, w)
	return w, nil
}

func (o *outputFiles) close() error {
	var first error
	for i, f := range o.files {
		if err := o.writers[i].Flush(); err != nil && first == nil {
			first = err
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func runAsm(cmd *cobra.Command, source string) (err error) {
	table, err := isa.LoadFile(isaPath)
	if err != nil {
		return err
	}
	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close()

	var files outputFiles
	defer func() {
		if cerr := files.close(); err == nil {
			err = cerr
		}
	}()

	// An interface holding a nil *bufio.Writer would not be nil, so
	// each sink is set only when its file exists.
	var out asm.Outputs
	if !asmArgs.quiet {
		out.Console = cmd.OutOrStdout()
	}
	for _, s := range []struct {
		path string
		sink *io.Writer
	}{
		{asmArgs.bin, &out.Binary},
		{asmArgs.text, &out.Text},
		{asmArgs.symbols, &out.Symbols},
		{asmArgs.debug, &out.Debug},
	} {
		w, err := files.create(s.path)
		if err != nil {
			return err
		}
		if w != nil {
			*s.sink = w
		}
	}

	opts := asmArgs.options(cmd.Flags(), cfg)
	opts.Log = progressLog()
	res, err := asm.Assemble(table, bufio.NewReader(src), out, opts)
	if err != nil {
		return err
	}
	if verbose {
		asm.WriteLabels(cmd.ErrOrStderr(), res.Labels)
	}
	return nil
}
