package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/pavanmanishd/memory"
	"github.com/pavanmanishd/memory/quadtree"
	"github.com/pavanmanishd/memory/simd"
)

const worldExtent = 1024

type options struct {
	Workers    int
	Iterations int
	Elements   int
	BlockSize  int
	Mmap       bool
	Debug      bool
	Seed       int64
}

var stressOpts options

// body is a quadtree element. Bodies live in a per-worker pool.
type body struct {
	pos    simd.Vector2
	radius float32
	id     quadtree.ElementID
}

type bodyPolicy struct{}

func (bodyPolicy) Bounds(b *body, _ any) simd.Rect2 { return simd.Square(b.pos, b.radius) }

func (bodyPolicy) SetElementID(b *body, id quadtree.ElementID, _ any) { b.id = id }

// workerStat is published to the shared pool after every frame.
type workerStat struct {
	Worker  int `json:"worker"`
	Frames  int `json:"frames"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Visible int `json:"visible"`
}

type workerReport struct {
	Stat    workerStat       `json:"stat"`
	Live    int              `json:"live_elements"`
	Metrics []memory.Metrics `json:"metrics"`
}

type report struct {
	Host      simd.Features  `json:"host"`
	Elapsed   string         `json:"elapsed"`
	Workers   []workerReport `json:"workers"`
	Shared    memory.Metrics `json:"shared"`
	NumAllocs int64          `json:"num_allocs"`
	NumFrees  int64          `json:"num_frees"`
}

func runStress(ctx context.Context, opts options) error {
	if opts.Workers <= 0 || opts.Iterations <= 0 || opts.Elements <= 0 {
		return fmt.Errorf("workers, iterations and elements must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	host := simd.HostFeatures()
	log.Info("starting", "workers", opts.Workers, "iterations", opts.Iterations, "cpu", host)

	shared := memory.NewSafePool[workerStat](memory.PoolOptions{ElemsPerBlock: opts.Workers})
	defer shared.Release()

	start := time.Now()
	p := pool.NewWithResults[workerReport]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(opts.Workers)
	for id := range opts.Workers {
		p.Go(func(ctx context.Context) (workerReport, error) {
			return runWorker(ctx, id, opts, shared)
		})
	}
	workers, err := p.Wait()
	if err != nil {
		return err
	}

	rep := report{
		Host:      host,
		Elapsed:   time.Since(start).String(),
		Workers:   workers,
		Shared:    shared.Metrics(),
		NumAllocs: memory.NumAllocs(),
		NumFrees:  memory.NumFrees(),
	}
	log.Info("done", "elapsed", rep.Elapsed, "allocs", rep.NumAllocs, "frees", rep.NumFrees)

	if jsonOut {
		return printJSON(rep)
	}
	printReport(rep)
	return nil
}

func runWorker(ctx context.Context, id int, opts options, shared *memory.SafePool[workerStat]) (workerReport, error) {
	var src memory.Source
	if opts.Mmap {
		src = memory.MmapSource{}
	}
	l := memory.BeginThread(memory.ThreadOptions{
		Stack: memory.StackOptions{BlockCapacity: opts.BlockSize, Debug: opts.Debug, Source: src},
		Frame: memory.FrameOptions{BlockSize: opts.BlockSize, Debug: opts.Debug, Source: src},
	})
	defer l.End()
	ctx = memory.NewContext(ctx, l)

	qopts := quadtree.DefaultOptions()
	qopts.Frame = l.Frame()
	tree, err := quadtree.New[*body, bodyPolicy](simd.Vector2{}, worldExtent, qopts)
	if err != nil {
		return workerReport{}, err
	}
	defer tree.Release()

	bodies := memory.NewPool[body](memory.PoolOptions{})
	defer bodies.Release()

	faker := gofakeit.New(opts.Seed + int64(id))
	stat := workerStat{Worker: id}
	slot := shared.Construct(stat)
	var live []memory.Handle

	for range opts.Iterations {
		if err := ctx.Err(); err != nil {
			return workerReport{}, err
		}
		memory.FrameMark(ctx)

		s := l.Stack()
		spawn := memory.StackNewSlice[simd.Rect2](s, opts.Elements)
		for i := range spawn {
			r := faker.Float32Range(1, 8)
			c := simd.Vector2{
				X: faker.Float32Range(-worldExtent+r, worldExtent-r),
				Y: faker.Float32Range(-worldExtent+r, worldExtent-r),
			}
			spawn[i] = simd.Square(c, r)
		}
		for _, r := range spawn {
			h, b := bodies.Construct(body{pos: r.Center, radius: r.Extents.X})
			tree.AddElement(b)
			live = append(live, h)
		}
		stat.Added += len(spawn)
		memory.StackDeleteSlice(s, spawn)

		view := simd.Square(simd.Vector2{
			X: faker.Float32Range(-worldExtent, worldExtent),
			Y: faker.Float32Range(-worldExtent, worldExtent),
		}, worldExtent/8)
		visible := memory.NewFrameVec[simd.Rect2](l.Frame(), 64)
		for b := range tree.Query(view) {
			visible.Push(simd.Square(b.pos, b.radius))
		}
		stat.Visible += visible.Len()

		for n := len(live) / 2; n > 0; n-- {
			i := faker.IntRange(0, len(live)-1)
			h := live[i]
			if err := tree.RemoveElement(bodies.Get(h).id); err != nil {
				return workerReport{}, fmt.Errorf("worker %d: %w", id, err)
			}
			bodies.Destruct(h)
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			stat.Removed++
		}

		visible.Release()
		memory.FrameClear(ctx)
		stat.Frames++
		shared.Store(slot, stat)
	}

	// With no frame open this also checks that every frame byte was freed.
	memory.FrameClear(ctx)
	log.Debug("worker finished", "worker", id, "live", tree.Len())
	return workerReport{
		Stat:    shared.Load(slot),
		Live:    tree.Len(),
		Metrics: l.Metrics(),
	}, nil
}

func printReport(rep report) {
	fmt.Fprintf(os.Stdout, "host: %s\n", rep.Host)
	fmt.Fprintf(os.Stdout, "elapsed: %s, blocks acquired: %d, released: %d\n", rep.Elapsed, rep.NumAllocs, rep.NumFrees)
	for _, w := range rep.Workers {
		fmt.Fprintf(os.Stdout, "\nworker %d: %d frames, %d added, %d removed, %d visible, %d live\n",
			w.Stat.Worker, w.Stat.Frames, w.Stat.Added, w.Stat.Removed, w.Stat.Visible, w.Live)
		for _, m := range w.Metrics {
			printMetrics(m)
		}
	}
	fmt.Fprintln(os.Stdout)
	printMetrics(rep.Shared)
}

func printMetrics(m memory.Metrics) {
	fmt.Fprintf(os.Stdout, "  %-7s in use %10d  capacity %10d  blocks %4d  utilization %5.1f%%\n",
		m.Name, m.SizeInUse, m.Capacity, m.NumBlocks, m.Utilization*100)
}
