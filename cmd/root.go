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
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	isaPath    string
	configPath string
	verbose    bool

	// Project settings, loaded before any subcommand runs.
	cfg = defaultConfig()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "octa",
	Short: "Tools for the octa 32-bit CPU",
	Long: `Octa assembles programs for the octa CPU. The instruction set is not
built in: it is read from the same C header the emulator is compiled
with (see --isa), so adding an instruction there is enough for the
assembler to accept it.

Besides the assembler there are commands to print the instruction
table, check a set of output files against each other, and upload a
binary to a target board over a serial line.`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		cfg = c
		if !cmd.Flags().Changed("isa") && cfg.ISA != "" {
			isaPath = cfg.ISA
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(setupLogging)

	rootCmd.PersistentFlags().StringVarP(&isaPath, "isa", "i", "isa.h", "architecture descriptor (C header)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigFile, "project settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress and label bindings")
}

// Timestamps only help when the output is going to a file.
func setupLogging() {
	flags := log.Lmsgprefix
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		flags |= log.Lmicroseconds
	}
	log.SetFlags(flags)
	log.SetPrefix("octa: ")
}

// The logger handed to packages that log progress, or nil when quiet.
func progressLog() *log.Logger {
	if verbose {
		return log.Default()
	}
	return nil
}
