// Command vtxdump feeds synthetic vertex and index data through the
// translation layer and reports how each binding resolves: direct bind,
// conversion, or restream, with the native layout and the bytes moved.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/username0x0a/metalangle"

	// Import the Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func main() {
	var (
		formatName = flag.String("format", "unorm8x3", "portable vertex format to resolve")
		count      = flag.Int("count", 100000, "number of vertex elements")
		stride     = flag.Int("stride", 0, "source stride in bytes, 0 means tightly packed")
		offset     = flag.Int("offset", 0, "source byte offset of the first element")
		backend    = flag.String("backend", "vulkan", "hal backend: vulkan or noop")
		verbose    = flag.Bool("v", false, "debug logging to stderr")
	)
	flag.Parse()

	if *verbose {
		metalangle.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	info := lookupFormat(*formatName)
	if info == nil {
		log.Fatalf("unknown format %q (try unorm8x3, float32x2, int16, ...)", *formatName)
	}
	if *count < 1 {
		log.Fatalf("count must be positive")
	}

	device, queue, cleanup, err := openDevice(*backend)
	if err != nil {
		log.Fatalf("open %s device: %v", *backend, err)
	}
	defer cleanup()

	ctx, err := metalangle.NewContext(device, queue)
	if err != nil {
		log.Fatalf("create context: %v", err)
	}
	defer ctx.Destroy()

	p := message.NewPrinter(language.English)
	dumpVertexResolution(p, ctx, info, *count, *stride, *offset)
	dumpIndexResolution(p, ctx, *count)

	// A frame boundary with an unsubmitted fence: every write went through
	// the queue, so value 0 is already reached and ring pages recycle.
	fence, err := device.CreateFence()
	if err == nil {
		ctx.EndFrame(fence, 0)
		device.DestroyFence(fence)
	}
}

func dumpVertexResolution(p *message.Printer, ctx *metalangle.Context, info *metalangle.FormatInfo, count, stride, offset int) {
	srcStride := stride
	if srcStride == 0 {
		srcStride = info.ByteSize()
	}
	srcSize := offset + (count-1)*srcStride + info.ByteSize()

	buf, err := metalangle.NewBuffer(ctx, uint64(srcSize))
	if err != nil {
		log.Fatalf("create %d-byte buffer: %v", srcSize, err)
	}
	defer buf.Destroy()
	data := make([]byte, srcSize)
	for i := range data {
		data[i] = byte(i * 31)
	}
	if err := buf.SetData(data); err != nil {
		log.Fatalf("fill buffer: %v", err)
	}

	va, err := metalangle.NewVertexArray(ctx)
	if err != nil {
		log.Fatalf("create vertex array: %v", err)
	}
	defer va.Destroy()

	attribs := []metalangle.AttribDesc{{Enabled: true, Format: info.ID, Binding: 0}}
	bindings := []metalangle.BindingDesc{{Buffer: buf, Offset: uint64(offset), Stride: uint32(stride)}}
	if err := va.SyncState(attribs, bindings, metalangle.DirtyAll()); err != nil {
		log.Fatalf("sync state: %v", err)
	}
	_, desc, err := va.SetupDraw(nil, false)
	if err != nil {
		log.Fatalf("setup draw: %v", err)
	}

	p.Printf("vertex: %s, %d elements, source stride %d, offset %d (%d bytes)\n",
		info.Name, count, srcStride, offset, srcSize)

	caps := ctx.Caps()
	_, native := caps.NativeVertexFormat(info.ID)
	direct := native && srcStride%4 == 0 && offset%4 == 0 && srcStride >= info.ByteSize()
	switch {
	case direct:
		p.Printf("  direct bind: native fetch from the application buffer\n")
	case native:
		conv, _ := caps.Conversion(info.ID)
		p.Printf("  restreamed: same encoding repacked to stride %d (%d bytes)\n",
			conv.Stride, count*int(conv.Stride))
	default:
		conv, _ := caps.Conversion(info.ID)
		target := metalangle.FormatByID(conv.Target)
		p.Printf("  converted: %s -> %s at stride %d (%d bytes)\n",
			info.Name, target.Name, conv.Stride, count*int(conv.Stride))
	}
	p.Printf("  descriptor: array stride %d, bind offset %d\n",
		desc.Layouts[0].ArrayStride, desc.OffsetsAndStrides[0].Offset)
}

func dumpIndexResolution(p *message.Printer, ctx *metalangle.Context, count int) {
	// 8-bit indices widen; 16-bit at an even offset pass through.
	if count > 255 {
		count = 255
	}
	u8 := make([]byte, count)
	for i := range u8 {
		u8[i] = byte(i)
	}
	buf, err := metalangle.NewBuffer(ctx, uint64(len(u8)))
	if err != nil {
		log.Fatalf("create index buffer: %v", err)
	}
	defer buf.Destroy()
	if err := buf.SetData(u8); err != nil {
		log.Fatalf("fill index buffer: %v", err)
	}

	ib, err := ctx.GetIndexBuffer(metalangle.IndexUint8, count, buf, 0, nil)
	if err != nil {
		log.Fatalf("resolve uint8 indices: %v", err)
	}
	p.Printf("index: uint8 x %d -> %s (%d bytes widened)\n",
		count, ib.Kind, count*ib.Kind.ByteSize())

	u16 := make([]byte, 2*count)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(u16[2*i:], uint16(i))
	}
	ib, err = ctx.GetIndexBuffer(metalangle.IndexUint16, count, nil, 0, u16)
	if err != nil {
		log.Fatalf("resolve uint16 indices: %v", err)
	}
	p.Printf("index: uint16 x %d client -> %s (streamed verbatim)\n", count, ib.Kind)
}

// lookupFormat resolves a portable format by name. Format ids are dense,
// so walking them until the table ends visits every format once.
func lookupFormat(name string) *metalangle.FormatInfo {
	for id := metalangle.VertexFormatID(1); id != 0; id++ {
		info := metalangle.FormatByID(id)
		if info == nil {
			return nil
		}
		if info.Name == name {
			return info
		}
	}
	return nil
}

func openDevice(name string) (hal.Device, hal.Queue, func(), error) {
	if name == "noop" {
		return openNoop()
	}
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		log.Printf("vulkan backend not registered, falling back to noop")
		return openNoop()
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open device: %w", err)
	}
	log.Printf("using %s", selected.Info.Name)
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup, nil
}

func openNoop() (hal.Device, hal.Queue, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("noop backend exposed no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open noop device: %w", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup, nil
}
