package main

import (
	"fmt"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/pycpp/allocator/pool"
	"github.com/pycpp/allocator/sysalloc"
)

func newReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Allocate and fully free several blocks, then release the empty ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease()
		},
	}
}

func runRelease() error {
	p := pool.New(pool.Options{
		ChunkSize:       chunkSize,
		NextSize:        nextSize,
		MaxSize:         maxSize,
		ThreadSafe:      threadSafe,
		SystemAllocator: sysalloc.CRT{},
	})
	defer p.Close()

	var chunks []unsafe.Pointer
	for i := int64(0); i < nextSize*3; i++ {
		chunk := p.OrderedAllocate()
		if chunk == nil {
			return fmt.Errorf("allocation failed after %d chunks", i)
		}
		chunks = append(chunks, chunk)
	}
	before := p.Stats()
	fmt.Printf("before release: blocks=%d free=%d\n", before.Blocks, before.FreeChunks)

	for _, c := range chunks {
		p.OrderedDeallocate(c)
	}
	p.ReleaseMemory()

	after := p.Stats()
	fmt.Printf("after release:  blocks=%d free=%d next_size=%d\n", after.Blocks, after.FreeChunks, after.NextSize)
	return nil
}
