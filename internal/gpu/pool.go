package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Common errors returned by the stream pool.
var (
	// ErrPoolDestroyed is returned when allocating from a destroyed pool.
	ErrPoolDestroyed = errors.New("gpu: stream pool is destroyed")

	// ErrZeroSize is returned for zero-byte allocation requests.
	ErrZeroSize = errors.New("gpu: zero-size pool allocation")
)

// copyAlign is the HAL's buffer copy alignment. All region sizes are
// rounded up to it.
const copyAlign = 4

// defaultPoolUsage covers every consumer of pool memory: vertex and index
// fetch, uniform parameter blocks, compute conversion output, and transfer
// in both directions.
const defaultPoolUsage = gputypes.BufferUsageVertex |
	gputypes.BufferUsageIndex |
	gputypes.BufferUsageUniform |
	gputypes.BufferUsageStorage |
	gputypes.BufferUsageCopySrc |
	gputypes.BufferUsageCopyDst

// StreamAlloc is one region of pool memory handed out by Allocate or
// AllocatePinned. The region is valid until the pool recycles its page:
// ring regions recycle after the fence passed to the following Retire call
// signals, pinned regions only after ReleasePinned plus a later Retire.
type StreamAlloc struct {
	Buf    hal.Buffer
	Offset uint64
	Size   uint64

	page *poolPage
}

type pageState uint8

const (
	pageActive    pageState = iota // written this frame, awaiting Retire
	pageInFlight                   // GPU may still read; waiting on fence
	pageFree                       // recyclable
	pagePinned                     // leased to a conversion cache
	pageReleasing                  // pin dropped, retires with next fence
)

type poolPage struct {
	buf        hal.Buffer
	size       uint64
	used       uint64
	state      pageState
	fence      hal.Fence
	fenceValue uint64
}

// PoolConfig configures a StreamPool.
type PoolConfig struct {
	// PageSize is the ring page granularity. Requests larger than a page
	// get a dedicated page of the requested size. Default 128 KiB.
	PageSize uint64

	// Usage overrides the buffer usage bits for pool pages.
	// Default defaultPoolUsage.
	Usage gputypes.BufferUsage

	// Label prefixes page buffer labels for debugging.
	Label string

	// MaxPages is the page count past which growth logs a warning.
	// Growth is never blocked. Default 32.
	MaxPages int

	// Logger receives pool diagnostics. Default: discard.
	Logger *slog.Logger
}

func (c *PoolConfig) setDefaults() {
	if c.PageSize == 0 {
		c.PageSize = 128 << 10
	}
	if c.Usage == 0 {
		c.Usage = defaultPoolUsage
	}
	if c.Label == "" {
		c.Label = "stream_pool"
	}
	if c.MaxPages == 0 {
		c.MaxPages = 32
	}
	if c.Logger == nil {
		c.Logger = slog.New(discardHandler{})
	}
}

// StreamPool hands out non-overlapping regions of device-visible memory for
// transient vertex/index data and conversion output. Reuse of a page is
// deferred until a caller-provided fence confirms the GPU finished reading
// it; when no page is reusable the pool grows instead of stalling.
//
// The pool is the one piece of this layer shared across GPU/CPU overlap,
// so it carries its own lock. Everything else in the layer is confined to
// the context's thread.
type StreamPool struct {
	mu     sync.Mutex
	device Device
	queue  Queue
	cfg    PoolConfig

	pages   []*poolPage
	current *poolPage // bump-allocation target, state pageActive

	stats     PoolStats
	destroyed bool
}

// NewStreamPool creates a pool on device. Pages are created on demand.
func NewStreamPool(device Device, queue Queue, cfg PoolConfig) *StreamPool {
	cfg.setDefaults()
	return &StreamPool{device: device, queue: queue, cfg: cfg}
}

// Allocate returns a region of size bytes at the requested alignment
// (power of two, minimum 4). The region belongs to the current frame: it
// retires with the fence passed to the next Retire call.
func (p *StreamPool) Allocate(size, align uint64) (StreamAlloc, error) {
	if size == 0 {
		return StreamAlloc{}, ErrZeroSize
	}
	if align < copyAlign {
		align = copyAlign
	}
	size = (size + copyAlign - 1) &^ (copyAlign - 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return StreamAlloc{}, ErrPoolDestroyed
	}

	if p.current == nil || alignUp(p.current.used, align)+size > p.current.size {
		pg, err := p.acquirePageLocked(maxU64(size, p.cfg.PageSize))
		if err != nil {
			return StreamAlloc{}, err
		}
		pg.state = pageActive
		p.current = pg
	}

	off := alignUp(p.current.used, align)
	p.current.used = off + size
	p.stats.Allocations++
	p.stats.AllocBytes += size
	return StreamAlloc{Buf: p.current.buf, Offset: off, Size: size, page: p.current}, nil
}

// Upload allocates a region and writes data into it through the queue.
func (p *StreamPool) Upload(data []byte, align uint64) (StreamAlloc, error) {
	a, err := p.Allocate(uint64(len(data)), align)
	if err != nil {
		return StreamAlloc{}, err
	}
	p.queue.WriteBuffer(a.Buf, a.Offset, data)
	return a, nil
}

// AllocatePinned returns a dedicated page excluded from frame retirement.
// Pinned regions hold conversion output that stays valid across frames;
// they start at offset 0, satisfying any binding alignment. Call
// ReleasePinned to hand the page back to the recycle flow.
func (p *StreamPool) AllocatePinned(size uint64) (StreamAlloc, error) {
	if size == 0 {
		return StreamAlloc{}, ErrZeroSize
	}
	size = (size + copyAlign - 1) &^ (copyAlign - 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return StreamAlloc{}, ErrPoolDestroyed
	}

	pg, err := p.acquirePageLocked(size)
	if err != nil {
		return StreamAlloc{}, err
	}
	pg.state = pagePinned
	pg.used = size
	p.stats.Allocations++
	p.stats.AllocBytes += size
	return StreamAlloc{Buf: pg.buf, Offset: 0, Size: size, page: pg}, nil
}

// ReleasePinned returns a pinned page to the pool. The page joins the
// in-flight set at the next Retire call, so any frame still reading the
// old contents finishes before reuse.
func (p *StreamPool) ReleasePinned(a StreamAlloc) {
	if a.page == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if a.page.state == pagePinned {
		a.page.state = pageReleasing
	}
}

// Retire marks every page written since the previous Retire, plus every
// released pinned page, as in flight behind (fence, value). Call it right
// after submitting the frame's command buffers with that fence. Pages
// become reusable once the fence reaches the value.
func (p *StreamPool) Retire(fence hal.Fence, value uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pg := range p.pages {
		if pg.state == pageActive || pg.state == pageReleasing {
			pg.state = pageInFlight
			pg.fence = fence
			pg.fenceValue = value
		}
	}
	p.current = nil
}

// acquirePageLocked returns a page of at least minSize bytes: a free page
// when one fits, a newly reclaimed one when a fence has signaled, or a
// fresh allocation. Never waits on the GPU.
func (p *StreamPool) acquirePageLocked(minSize uint64) (*poolPage, error) {
	p.reclaimLocked()
	for _, pg := range p.pages {
		if pg.state == pageFree && pg.size >= minSize {
			pg.used = 0
			pg.fence = nil
			pg.fenceValue = 0
			p.stats.Reuses++
			return pg, nil
		}
	}

	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("%s_page%d", p.cfg.Label, len(p.pages)),
		Size:  minSize,
		Usage: p.cfg.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %d-byte pool page: %w", minSize, err)
	}
	pg := &poolPage{buf: buf, size: minSize}
	p.pages = append(p.pages, pg)
	p.stats.Grows++
	p.stats.PageBytes += minSize
	if len(p.pages) > p.cfg.MaxPages {
		p.cfg.Logger.Warn("stream pool grew past configured page bound",
			"label", p.cfg.Label, "pages", len(p.pages), "bound", p.cfg.MaxPages)
	}
	p.cfg.Logger.Debug("stream pool page created",
		"label", p.cfg.Label, "pages", len(p.pages), "bytes", minSize)
	return pg, nil
}

// reclaimLocked moves in-flight pages whose fence has signaled to the free
// list. Polls with a zero timeout; never blocks.
func (p *StreamPool) reclaimLocked() {
	for _, pg := range p.pages {
		if pg.state != pageInFlight {
			continue
		}
		done, err := p.device.Wait(pg.fence, pg.fenceValue, 0)
		if err != nil || !done {
			continue
		}
		pg.state = pageFree
		pg.used = 0
		pg.fence = nil
		pg.fenceValue = 0
	}
}

// PoolStats reports allocator activity.
type PoolStats struct {
	Pages       int
	PageBytes   uint64
	Allocations uint64
	AllocBytes  uint64
	Reuses      uint64
	Grows       uint64
	InFlight    int
	Pinned      int
}

// String formats the stats compactly for logs.
func (s PoolStats) String() string {
	return fmt.Sprintf("pages=%d (%.1f KiB), allocs=%d (%.1f KiB), reuses=%d, grows=%d, in-flight=%d, pinned=%d",
		s.Pages, float64(s.PageBytes)/1024,
		s.Allocations, float64(s.AllocBytes)/1024,
		s.Reuses, s.Grows, s.InFlight, s.Pinned)
}

// Stats returns a snapshot of allocator activity.
func (p *StreamPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stats
	st.Pages = len(p.pages)
	for _, pg := range p.pages {
		switch pg.state {
		case pageInFlight:
			st.InFlight++
		case pagePinned:
			st.Pinned++
		}
	}
	return st
}

// Destroy frees all pages. The caller must ensure the device is idle;
// Destroy does not wait for in-flight fences. Safe to call twice.
func (p *StreamPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	for _, pg := range p.pages {
		p.device.DestroyBuffer(pg.buf)
	}
	p.pages = nil
	p.current = nil
	p.destroyed = true
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// discardHandler drops all records. Stand-in until a caller provides a
// logger.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
