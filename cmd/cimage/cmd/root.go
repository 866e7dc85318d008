//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

/*
Copyright © 2024 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/blacktop/cimage"
	"github.com/blacktop/cimage/internal/config"
	"github.com/blacktop/cimage/pkg/csi"
	"github.com/blacktop/cimage/pkg/overlay"
)

// Version is set at build time
var Version = "dev"

// placementName is the single overlay placement owned by the viewer
const placementName = "cimage"

type rootOptions struct {
	verbose    bool
	configPath string
	noConfig   bool
	protocol   string
	tmux       bool
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, source, err := config.Load(config.Options{Path: o.configPath, NoConfig: o.noConfig})
	if err != nil {
		return nil, err
	}
	log.WithField("source", source).Debug("loaded configuration")

	if o.protocol != "" {
		if _, err := overlay.ParseProtocol(o.protocol); err != nil {
			return nil, errors.Wrap(err, "--protocol")
		}
		cfg.Overlay.Protocol = o.protocol
	}
	return cfg, nil
}

func init() {
	log.SetHandler(clihander.Default)
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cimage [flags] input...",
		Short:         "View images in your terminal",
		Long:          "View image files and directories of images in the terminal.\nMove with h/j/k/l, zoom with K/J, switch images with n/p, reset with r and quit with q or Escape.",
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
			csi.ForceTmux(opts.tmux)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// usage is only useful for argument errors
			cmd.SilenceUsage = true
			return view(cmd.Context(), opts, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "V", false, "Enable verbose logging")
	flags.StringVar(&opts.configPath, "config", "", "Configuration file (default is $XDG_CONFIG_HOME/cimage/config.toml)")
	flags.BoolVar(&opts.noConfig, "no-config", false, "Ignore user configuration files")
	flags.BoolVar(&opts.tmux, "tmux", false, "Wrap graphics sequences for tmux passthrough even when $TMUX is unset")
	rootCmd.MarkFlagsMutuallyExclusive("config", "no-config")
	rootCmd.Flags().StringVar(&opts.protocol, "protocol", "", "Graphics protocol: auto, kitty, sixel, iterm2 or halfblocks")

	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newTerminfoCmd(opts))
	return rootCmd
}

func view(ctx context.Context, opts *rootOptions, inputs []string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	bindings, err := cfg.Keys.Bindings()
	if err != nil {
		return err
	}

	resolver := &cimage.Resolver{Extensions: cfg.Resolver.Extensions}
	entries, err := resolver.Resolve(inputs)
	if err != nil {
		return err
	}
	log.WithField("count", len(entries)).Debug("resolved images")

	tty, err := cimage.OpenTerminal()
	if err != nil {
		return errors.WithStack(err)
	}
	defer tty.Close()
	fd := int(tty.Fd())

	querier := csi.NewQuerier(tty, csi.QueryTimeout)
	geometry := newGeometryReader(fd, querier)
	if _, err := geometry.Geometry(); err != nil {
		return errors.WithStack(err)
	}

	renderer, err := newRenderer(cfg, querier, fd)
	if err != nil {
		return err
	}
	log.WithField("protocol", renderer.Protocol()).Debug("using graphics protocol")

	canvas := overlay.NewCanvas(tty,
		overlay.WithRenderer(renderer),
		overlay.WithCellSize(cellSize(geometry)),
		overlay.WithLogger(log.Log),
		overlay.WithCacheSize(cfg.Overlay.CacheSize),
	)
	defer func() {
		if err := canvas.Close(); err != nil {
			log.WithError(err).Warn("failed to remove image")
		}
	}()

	placement, err := canvas.CreatePlacement(placementName, overlay.PlacementOptions{
		Path:   entries[0].Path,
		Scaler: cfg.Scaler(),
		ZIndex: cfg.Overlay.ZIndex,
	})
	if err != nil {
		return errors.Wrap(err, "creating placement")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	return cimage.WithKeyPoller(fd, func(keys *cimage.KeyPoller) error {
		session, err := cimage.NewSession(entries, cimage.SessionOptions{
			Keys:         keys,
			Geometry:     geometry,
			Placement:    placement,
			Status:       tty,
			Bindings:     bindings,
			TickInterval: cfg.Session.TickInterval,
			Logger:       log.Log,
		})
		if err != nil {
			return err
		}
		return session.Run(ctx)
	})
}

// newGeometryReader asks the terminal for its cell size and then its text
// area when the kernel reports no pixel size
func newGeometryReader(fd int, q *csi.Querier) *cimage.GeometryReader {
	return cimage.NewGeometryReader(fd,
		cimage.WithCellSizeQuery(q.CellSize),
		cimage.WithTextAreaQuery(q.TextAreaPixels),
	)
}

func detectProtocol(cfg *config.Config, q overlay.KittyQuerier, fd int) overlay.Protocol {
	if p := cfg.Protocol(); p != overlay.Auto {
		return p
	}
	if !csi.Supported(fd) {
		return overlay.Detect(nil)
	}
	return overlay.Detect(q)
}

func newRenderer(cfg *config.Config, q overlay.KittyQuerier, fd int) (overlay.Renderer, error) {
	p := detectProtocol(cfg, q, fd)
	if p == overlay.Kitty || p == overlay.Sixel || p == overlay.ITerm2 {
		csi.EnableTmuxPassthrough()
	}
	r, err := overlay.NewRenderer(p,
		overlay.WithKittyTransfer(cfg.Transfer(), cfg.Overlay.Compression),
		overlay.WithSixelPalette(cfg.Overlay.SixelColors, cfg.Overlay.SixelOptimizePalette),
	)
	return r, errors.WithStack(err)
}

// cellSize reports the cell size from the current geometry, falling back to
// a per-terminal guess
func cellSize(g cimage.GeometrySource) func() (int, int) {
	return func() (int, int) {
		geo, err := g.Geometry()
		if err != nil {
			return overlay.FallbackCellSize()
		}
		w, h := geo.CellSize()
		if w < 1 || h < 1 {
			return overlay.FallbackCellSize()
		}
		return int(math.Round(w)), int(math.Round(h))
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	opts := &rootOptions{}
	if err := newRootCmd(opts).ExecuteContext(context.Background()); err != nil {
		if report(os.Stderr, err, opts.verbose) {
			os.Exit(1)
		}
	}
}
