package mrb

import (
	"fmt"
	"io"
)

const (
	// Version is the toolchain release version.
	Version = "1.0.0"

	// RubyVersion is the language level the compiler targets.
	RubyVersion = "1.9"

	ReleaseDate = "2026-08-29"

	copyrightMsg = "mruby - Copyright (c) 2010-2026 mruby developers"
)

// ShowVersion writes the one-line version banner.
func ShowVersion(w io.Writer) {
	fmt.Fprintf(w, "mruby %s (ruby %s compatible) [%s]\n", Version, RubyVersion, ReleaseDate)
}

// ShowCopyright writes the one-line copyright banner.
func ShowCopyright(w io.Writer) {
	fmt.Fprintln(w, copyrightMsg)
}
