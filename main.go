// The main package for the solewatch executable.
package main

import (
	"github.com/solewatch/solewatch/cmd"
)

func main() {
	cmd.Execute()
}
