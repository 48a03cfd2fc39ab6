package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pycpp/allocator/pool"
	"github.com/pycpp/allocator/sysalloc"
)

var growCount int64

func newGrowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Allocate chunks one at a time and print Stats after each doubling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrow()
		},
	}
	cmd.Flags().Int64Var(&growCount, "count", 256, "total chunks to allocate")
	return cmd
}

func runGrow() error {
	p := pool.New(pool.Options{
		ChunkSize:       chunkSize,
		NextSize:        nextSize,
		MaxSize:         maxSize,
		ThreadSafe:      threadSafe,
		SystemAllocator: sysalloc.CRT{},
	})
	defer p.Close()

	lastBlocks := int64(-1)
	for i := int64(0); i < growCount; i++ {
		if p.Allocate() == nil {
			return fmt.Errorf("allocation failed after %d chunks", i)
		}
		if st := p.Stats(); st.Blocks != lastBlocks {
			fmt.Printf("after %d chunks: blocks=%d free=%d next_size=%d\n", i+1, st.Blocks, st.FreeChunks, st.NextSize)
			lastBlocks = st.Blocks
		}
	}
	return nil
}
