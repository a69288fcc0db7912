// Command ocldemo exercises the command-queue layer on the simulated
// device: it uploads a buffer, runs a doubling kernel over it, copies the
// result and reads it back, printing per-command timings.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/ocl"
	"github.com/gogpu/ocl/driver/soft"
)

func main() {
	var (
		size    = flag.Int("size", 1024, "buffer size in bytes")
		verbose = flag.Bool("verbose", false, "enable debug logging")
		profile = flag.Bool("profile", true, "create the queue with profiling enabled")
	)
	flag.Parse()

	if *verbose {
		ocl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	dev := soft.New()
	ctx, err := ocl.NewContext(dev, dev.DefaultDevice())
	if err != nil {
		log.Fatalf("create context: %v", err)
	}
	defer func() {
		if err := ctx.Release(); err != nil {
			log.Printf("release context: %v", err)
		}
	}()

	modes := []ocl.QueueMode{}
	if *profile {
		modes = append(modes, ocl.ProfilingMode)
	}
	queue, err := ctx.Device().CreateCommandQueue(modes...)
	if err != nil {
		log.Fatalf("create queue: %v", err)
	}
	defer func() {
		if err := queue.Release(); err != nil {
			log.Printf("release queue: %v", err)
		}
	}()
	log.Printf("queue ready: %s", queue)

	src, err := ctx.CreateBuffer(uint64(*size))
	if err != nil {
		log.Fatalf("create source buffer: %v", err)
	}
	defer func() { _ = src.Release() }()
	dst, err := ctx.CreateBuffer(uint64(*size))
	if err != nil {
		log.Fatalf("create destination buffer: %v", err)
	}
	defer func() { _ = dst.Release() }()

	// The kernel doubles every byte of the source buffer in place.
	data := dev.Bytes(src.DriverID())
	double := ocl.NewKernel(dev.RegisterKernel("double", func(gid [3]uint64) {
		data[gid[0]] *= 2
	}), "double")

	input := make([]byte, *size)
	for i := range input {
		input[i] = byte(i % 100)
	}

	events := ocl.NewEventList(3)
	if err := queue.PutWriteBuffer(src, false, input, nil, events); err != nil {
		log.Fatalf("write: %v", err)
	}
	if err := queue.Put1DRangeKernel(double, 0, uint64(*size), 0, events, events); err != nil {
		log.Fatalf("launch: %v", err)
	}
	if err := queue.PutCopyBuffer(src, dst, events, events); err != nil {
		log.Fatalf("copy: %v", err)
	}

	output := make([]byte, *size)
	if err := queue.PutReadBuffer(dst, true, output, events, nil); err != nil {
		log.Fatalf("read: %v", err)
	}
	if err := queue.Finish(); err != nil {
		log.Fatalf("finish: %v", err)
	}

	mismatches := 0
	for i := range output {
		if output[i] != input[i]*2 {
			mismatches++
		}
	}
	log.Printf("verified %d bytes, %d mismatches", *size, mismatches)

	if *profile {
		for i := 0; i < events.Size(); i++ {
			p, err := queue.EventProfile(events, i)
			if err != nil {
				log.Printf("profile #%d: %v", i, err)
				continue
			}
			log.Printf("command #%d: queued=%dns start=%dns end=%dns span=%dns",
				i, p.Queued, p.Start, p.End, p.End-p.Start)
		}
	}
	if err := events.Release(dev); err != nil {
		log.Printf("release events: %v", err)
	}
}
