// prefsctl inspects and edits the dashboard settings of this device
package main

import (
	"os"

	"github.com/codr1/dashprefs/cmd/prefsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
