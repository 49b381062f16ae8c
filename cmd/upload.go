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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/octa/pkg/image"
	"github.com/gmofishsauce/octa/pkg/link"
)

var uploadArgs struct {
	device string
	baud   int
	base   uint32
	header bool
}

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload binaryFile",
	Short: "Send a binary to a target over a serial line",
	Long: `Upload opens the serial device, waits for the target to come out of
the reset that opening the port causes, and writes the program into
target memory. With --header (or header: true in the project settings)
the binary must start with a program header, which supplies the load
address. Otherwise the load address is --base or the configured base.

Opening the port resets the target. Close any other program holding
the port before uploading.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bin, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		im, err := image.Load(bin, pickBool(cmd.Flags(), "header", uploadArgs.header, cfg.Header))
		if err != nil {
			return err
		}
		base := im.Base(pick(cmd.Flags(), "base", uploadArgs.base, uint32(cfg.Base)))

		device := uploadArgs.device
		if !cmd.Flags().Changed("device") && cfg.Serial.Device != "" {
			device = cfg.Serial.Device
		}
		if device == "" {
			return errors.New("upload: no serial device (use --device or serial.device)")
		}
		baud := uploadArgs.baud
		if !cmd.Flags().Changed("baud") {
			baud = cfg.Serial.Baud
		}

		l, err := link.Open(device, baud, progressLog())
		if err != nil {
			return err
		}
		defer l.Close()
		if err := l.Connect(); err != nil {
			return err
		}
		if err := l.Upload(im.Program, base); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d bytes at 0x%X\n", len(im.Program), base)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	f := uploadCmd.Flags()
	f.StringVarP(&uploadArgs.device, "device", "d", "", "serial device of the target")
	f.IntVar(&uploadArgs.baud, "baud", 115200, "serial line speed")
	f.VarP(newAddrValue(0, &uploadArgs.base), "base", "b", "load address when the binary has no header")
	f.BoolVarP(&uploadArgs.header, "header", "H", false, "the binary starts with a program header")
}
