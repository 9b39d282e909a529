package cmd

import (
	"github.com/mcsas3/mcsas3-go/kernel"
	"github.com/mcsas3/mcsas3-go/kernel/sphere"
	"github.com/mcsas3/mcsas3-go/mcerr"
)

// buildKernel resolves a runconfig.RunConfig.ModelName to a kernel. Only
// the sphere reference kernel ships with this module; a real deployment
// would plug in a form-factor library here (§2 Non-goals: the core
// consumes an opaque kernel, it does not implement form factors).
func buildKernel(modelName string, q []float64) (kernel.Kernel, error) {
	switch modelName {
	case "", "sphere":
		return sphere.New(q), nil
	default:
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "cmd: unknown model %q", modelName)
	}
}
