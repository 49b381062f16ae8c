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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/octa/pkg/image"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify stem",
	Short: "Check that a set of assembler outputs agree",
	Long: `Verify reads stem.bin and stem.txt and checks that the ASCII-binary
text decodes to exactly the bytes of the binary. If stem.debug exists
every record in it must point at an instruction inside the program.

Use --header (or header: true in the project settings) when the files
were assembled with a program header.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		header := pickBool(cmd.Flags(), "header", verifyHeader, cfg.Header)
		return runVerify(cmd.OutOrStdout(), args[0], header)
	},
}

var verifyHeader bool

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().BoolVarP(&verifyHeader, "header", "H", false, "the image starts with a program header")
}

func runVerify(w io.Writer, stem string, header bool) error {
	bin, err := os.ReadFile(stem + ".bin")
	if err != nil {
		return err
	}
	text, err := os.ReadFile(stem + ".txt")
	if err != nil {
		return err
	}

	var debug []image.DebugEntry
	if d, err := os.ReadFile(stem + ".debug"); err == nil {
		if debug, err = image.ReadDebug(bytes.NewReader(d)); err != nil {
			return fmt.Errorf("%s.debug: %w", stem, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := image.Verify(bin, bytes.NewReader(text), debug, header); err != nil {
		return fmt.Errorf("%s: %w", stem, err)
	}

	im, err := image.Load(bin, header)
	if err != nil {
		return err
	}
	if im.Header != nil {
		h := im.Header
		fmt.Fprintf(w, "header: base 0x%X stack 0x%X/0x%X heap 0x%X/0x%X\n",
			h.Base, h.StackAddr, h.StackSize, h.HeapAddr, h.HeapSize)
	}
	fmt.Fprintf(w, "%s: %d bytes, %d debug records: ok\n", stem, len(im.Program), len(debug))
	return nil
}
