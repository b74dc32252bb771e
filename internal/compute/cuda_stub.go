package compute

// CUDA stands in for a GPU device. This build has no GPU kernels, so it is
// never available and Select refuses it; AutoSelect falls back to the CPU.
type CUDA struct{}

func NewCUDA() *CUDA {
	return &CUDA{}
}

func (c *CUDA) Name() string    { return "cuda (not available)" }
func (c *CUDA) Available() bool { return false }
func (c *CUDA) Cleanup()        {}

func (c *CUDA) NBodyForces(positions []float64, masses []float64, g, softening float64) ([]float64, []float64) {
	return NewCPU().NBodyForces(positions, masses, g, softening)
}
