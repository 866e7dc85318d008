/*
Package cimage implements an interactive terminal image viewer.

Images are shown through a terminal graphics overlay (see the overlay
package) and controlled with single-key commands: pan, zoom, reset and
cycling through every image given on the command line.

Main pieces:

  - Path resolution: files and directories are expanded into an ordered
    list of ImageEntry values, probing only the image headers
  - Terminal geometry: character grid and pixel size of the controlling terminal
  - Placement: a scale-to-fit bounding box expressed in character cells
  - Key polling: non-canonical, no-echo input with a non-blocking read
  - Session: the cooperative tick loop that ties everything together

Basic Usage:

	entries, err := cimage.Resolve([]string{"photos/", "cat.png"})
	if err != nil {
	    log.Fatal(err)
	}

	sess, err := cimage.NewSession(entries, cimage.SessionOptions{
	    Keys:      poller,
	    Geometry:  cimage.NewGeometryReader(int(tty.Fd())),
	    Placement: placement,
	    Status:    tty,
	    Bindings:  cimage.DefaultKeyBindings(),
	})
	if err != nil {
	    log.Fatal(err)
	}
	err = sess.Run(ctx)

Placement Math:

	box, err := cimage.Fit(800, 400, cimage.Geometry{
	    Rows: 40, Columns: 100, PixelWidth: 1000, PixelHeight: 500,
	})
	// box == cimage.Box{X: -1, Y: -1, Width: 100, Height: 41}

The box intentionally spans every column; the overlay's fit-contain scaler
performs the final fit inside it.
*/
package cimage
