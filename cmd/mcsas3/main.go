// Command mcsas3 runs and aggregates Monte Carlo small-angle-scattering
// fits.
package main

import "github.com/mcsas3/mcsas3-go/cmd/mcsas3/cmd"

func main() {
	cmd.Execute()
}
