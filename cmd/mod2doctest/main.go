// mod2doctest - Module to Doctest Converter
//
// mod2doctest runs a source file through an interactive interpreter and
// writes the session as a doctest transcript with documentation prose.
package main

import (
	"os"

	"github.com/cart0113/mod2doctest/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
