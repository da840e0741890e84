package metalangle

// Option configures a Context during creation.
//
// Example:
//
//	// Defaults
//	ctx, err := metalangle.NewContext(device, queue)
//
//	// Force CPU conversion and a larger streaming page
//	ctx, err := metalangle.NewContext(device, queue,
//	    metalangle.WithGPUConversion(false),
//	    metalangle.WithPoolPageSize(512<<10))
type Option func(*config)

// config holds optional configuration for Context creation.
type config struct {
	cpuConvertThreshold int
	poolPageSize        uint64
	maxInFlightPages    int
	gpuConversion       bool
}

// defaultConfig returns the default context configuration.
func defaultConfig() config {
	return config{
		cpuConvertThreshold: 64 << 10,  // below this many source bytes, convert on the CPU
		poolPageSize:        128 << 10, // streaming pool page granularity
		maxInFlightPages:    32,        // soft bound; growth past it logs a warning
		gpuConversion:       true,
	}
}

// WithCPUConversionThreshold sets the source-data size, in bytes, below
// which format conversion runs on the CPU instead of dispatching a GPU
// compute pass. The cutover is a performance heuristic, not a correctness
// rule; both paths produce identical bytes. Tune it per backend.
func WithCPUConversionThreshold(bytes int) Option {
	return func(c *config) {
		if bytes >= 0 {
			c.cpuConvertThreshold = bytes
		}
	}
}

// WithPoolPageSize sets the page granularity of the streaming pools that
// back client-data uploads and conversion output. Requests larger than a
// page get a dedicated page of exactly the requested size.
func WithPoolPageSize(bytes int) Option {
	return func(c *config) {
		if bytes > 0 {
			c.poolPageSize = uint64(bytes)
		}
	}
}

// WithMaxInFlightPages sets the page count past which streaming pool growth
// logs a warning. Growth itself is never blocked: the pool always allocates
// rather than stall waiting for the GPU to release a page.
func WithMaxInFlightPages(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxInFlightPages = n
		}
	}
}

// WithGPUConversion enables or disables the GPU conversion path. When
// disabled, all format conversion and index widening runs on the CPU
// regardless of data size. Useful on backends without compute support.
func WithGPUConversion(enabled bool) Option {
	return func(c *config) {
		c.gpuConversion = enabled
	}
}
