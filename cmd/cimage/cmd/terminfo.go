//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blacktop/cimage"
	"github.com/blacktop/cimage/pkg/csi"
	"github.com/blacktop/cimage/pkg/overlay"
)

// terminalInfo is what terminfo reports
type terminalInfo struct {
	Term        string
	TermProgram string
	InTmux      bool
	Geometry    cimage.Geometry
	GeometryErr error
	Kitty       bool
	Sixel       bool
	ITerm2      bool
	Detected    overlay.Protocol
}

func newTerminfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "terminfo",
		Short: "Print terminal geometry and graphics support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			tty, err := cimage.OpenTerminal()
			if err != nil {
				return err
			}
			defer tty.Close()
			fd := int(tty.Fd())

			querier := csi.NewQuerier(tty, csi.QueryTimeout)
			info := terminalInfo{
				Term:        os.Getenv("TERM"),
				TermProgram: os.Getenv("TERM_PROGRAM"),
				InTmux:      csi.InTmux(),
				Kitty:       overlay.KittyFromEnvironment(),
				Sixel:       overlay.SixelFromEnvironment(),
				ITerm2:      overlay.ITerm2FromEnvironment(),
				Detected:    detectProtocol(cfg, querier, fd),
			}
			info.Geometry, info.GeometryErr = newGeometryReader(fd, querier).Geometry()

			printTerminalInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func printTerminalInfo(w io.Writer, info terminalInfo) {
	fmt.Fprintln(w, "Terminal Environment:")
	fmt.Fprintf(w, "  TERM: %s\n", info.Term)
	fmt.Fprintf(w, "  TERM_PROGRAM: %s\n", info.TermProgram)
	fmt.Fprintf(w, "  In tmux: %v\n", info.InTmux)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Geometry:")
	if info.GeometryErr != nil {
		fmt.Fprintf(w, "  unavailable: %v\n", info.GeometryErr)
	} else {
		g := info.Geometry
		cw, ch := g.CellSize()
		fmt.Fprintf(w, "  Window Size: %dx%d characters\n", g.Columns, g.Rows)
		fmt.Fprintf(w, "  Text Area: %dx%d pixels\n", g.PixelWidth, g.PixelHeight)
		fmt.Fprintf(w, "  Cell Size: %.1fx%.1f pixels\n", cw, ch)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Graphics Protocol Support (environment):")
	fmt.Fprintf(w, "  Kitty Graphics: %v\n", info.Kitty)
	fmt.Fprintf(w, "  Sixel Graphics: %v\n", info.Sixel)
	fmt.Fprintf(w, "  iTerm2 Graphics: %v\n", info.ITerm2)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Selected protocol: %s\n", info.Detected)
}
