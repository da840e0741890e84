package metalangle

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/username0x0a/metalangle/internal/gpu"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host owns the device and queue; this layer receives them and never
// creates its own. Sharing the device keeps translated vertex data, the
// host's own resources, and submission ordering on one timeline.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// translation layer its own name for the interface while staying
// compatible with the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// Context owns the per-device state of the translation layer: the stream
// pools that back transient vertex and index data, the conversion kernel
// front end, and the backend's format capability table.
//
// A Context and every object created from it are confined to one thread.
// The host drives the frame lifecycle: draws bind data synced through a
// VertexArray, and EndFrame hands the frame's fence over so transient
// memory recycles once the GPU is done reading it.
type Context struct {
	device hal.Device
	queue  hal.Queue
	caps   FormatCaps
	cfg    config

	vertexPool *gpu.StreamPool
	indexPool  *gpu.StreamPool
	convert    *gpu.ConvertPipelines

	destroyed bool
}

// NewContext creates a context on an existing HAL device and queue.
func NewContext(device hal.Device, queue hal.Queue, opts ...Option) (*Context, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := Logger()
	return &Context{
		device: device,
		queue:  queue,
		cfg:    cfg,
		vertexPool: gpu.NewStreamPool(device, queue, gpu.PoolConfig{
			PageSize: cfg.poolPageSize,
			Label:    "vertex_stream",
			MaxPages: cfg.maxInFlightPages,
			Logger:   logger,
		}),
		indexPool: gpu.NewStreamPool(device, queue, gpu.PoolConfig{
			PageSize: cfg.poolPageSize,
			Label:    "index_stream",
			MaxPages: cfg.maxInFlightPages,
			Logger:   logger,
		}),
		convert: gpu.NewConvertPipelines(device, queue, logger),
	}, nil
}

// NewContextFromProvider creates a context from a host device provider.
// The provider must expose HalDevice() any and HalQueue() any returning
// the underlying hal.Device and hal.Queue.
func NewContextFromProvider(provider any, opts ...Option) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: no HalDevice/HalQueue accessors", ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoDevice)
	}
	return NewContext(device, queue, opts...)
}

// Device returns the HAL device the context was created on.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the HAL queue uploads and conversions are submitted to.
func (c *Context) Queue() hal.Queue { return c.queue }

// Caps returns the backend format capability table.
func (c *Context) Caps() FormatCaps { return c.caps }

// EndFrame retires the frame's transient allocations behind the fence the
// host signals after submitting the frame's command buffers. Pool pages
// written this frame become reusable once the fence reaches value; pages
// pinned by conversion caches stay resident.
func (c *Context) EndFrame(fence hal.Fence, value uint64) {
	if c.destroyed {
		return
	}
	c.vertexPool.Retire(fence, value)
	c.indexPool.Retire(fence, value)
	c.convert.Reclaim()
}

// Destroy releases the pools and conversion kernels. The caller must
// destroy Buffers first and ensure the GPU is idle; pool pages are freed
// without waiting. The device and queue stay untouched, the host owns
// them.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.convert.Destroy()
	c.vertexPool.Destroy()
	c.indexPool.Destroy()
}
