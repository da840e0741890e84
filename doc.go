// Package metalangle translates portable vertex and index state into
// bindings a WebGPU-class backend can draw from.
//
// # Overview
//
// Graphics APIs with flexible vertex specification let applications bind
// formats, offsets and strides the underlying hardware cannot fetch
// directly: three-component normalized colors, byte-aligned offsets,
// 8-bit indices, attribute data in client memory. metalangle sits between
// a portable state tracker and a gogpu/wgpu hal device and closes that
// gap, binding application buffers directly whenever the backend can read
// them and converting or restreaming the data when it cannot.
//
// # Quick Start
//
//	import "github.com/username0x0a/metalangle"
//
//	// Wrap the hal device the host renderer already owns.
//	ctx, err := metalangle.NewContext(device, queue)
//
//	// Mirror portable vertex state into native bindings.
//	va, _ := metalangle.NewVertexArray(ctx)
//	err = va.SyncState(attribs, bindings, metalangle.DirtyAll())
//
//	// Per draw: bind buffers and fetch the pipeline-facing descriptor.
//	changed, desc, err := va.SetupDraw(renderPass, false)
//
//	// Once per frame: let ring memory retire against the frame fence.
//	ctx.EndFrame(fence, signalValue)
//
// # Architecture
//
// The package is organized into:
//   - Public API: Context, Buffer, VertexArray, IndexBinding, format tables
//   - internal/convert: CPU element conversion between vertex layouts
//   - internal/gpu: stream pools and compute kernels for on-device conversion
//
// Conversion results are cached on the source Buffer and keyed by its
// revision counter, so a cached copy is never reused after the buffer
// changes. Converted and streamed data lives in ring-allocated pool
// memory that is recycled once the frame's fence signals.
//
// # Threading
//
// A Context and everything created from it are confined to one goroutine,
// matching the single-threaded command recording of the host renderer.
// Distinct Contexts are independent.
package metalangle

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
