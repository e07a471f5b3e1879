// The main package for the sanx-monitor executable.
package main

import (
	"github.com/theresaanna/san-x-monitor/cmd"
)

func main() {
	cmd.Execute()
}
