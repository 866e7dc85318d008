package cimage

import "fmt"

// Escape always quits, whatever the bindings say
const Escape rune = 27

// Command is a logical viewer command triggered by a key
type Command int

const (
	NoCommand Command = iota
	MoveImageLeft
	MoveImageRight
	MoveImageUp
	MoveImageDown
	NextImage
	PreviousImage
	ZoomIn
	ZoomOut
	Reset
	QuitProgram
)

var commandNames = map[Command]string{
	MoveImageLeft:  "move_image_left",
	MoveImageRight: "move_image_right",
	MoveImageUp:    "move_image_up",
	MoveImageDown:  "move_image_down",
	NextImage:      "next_image",
	PreviousImage:  "previous_image",
	ZoomIn:         "zoom_in",
	ZoomOut:        "zoom_out",
	Reset:          "reset",
	QuitProgram:    "quit_program",
}

// Commands lists every bindable command in a stable order
func Commands() []Command {
	return []Command{
		MoveImageLeft, MoveImageRight, MoveImageUp, MoveImageDown,
		NextImage, PreviousImage, ZoomIn, ZoomOut, Reset, QuitProgram,
	}
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "none"
}

// ParseCommand maps a configuration name such as "zoom_in" to its Command
func ParseCommand(name string) (Command, error) {
	for c, n := range commandNames {
		if n == name {
			return c, nil
		}
	}
	return NoCommand, fmt.Errorf("unknown command %q", name)
}

// KeyBindings maps a key to the command it triggers
type KeyBindings map[rune]Command

// DefaultKeyBindings returns the built-in bindings
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		'h': MoveImageLeft,
		'l': MoveImageRight,
		'k': MoveImageUp,
		'j': MoveImageDown,
		'n': NextImage,
		'p': PreviousImage,
		'K': ZoomIn,
		'J': ZoomOut,
		'r': Reset,
		'q': QuitProgram,
	}
}

// Lookup returns the command bound to key
func (kb KeyBindings) Lookup(key rune) Command {
	if key == Escape {
		return QuitProgram
	}
	if c, ok := kb[key]; ok {
		return c
	}
	return NoCommand
}
