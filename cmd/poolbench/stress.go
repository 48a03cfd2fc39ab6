package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pycpp/allocator/pool"
	"github.com/pycpp/allocator/sysalloc"
)

var (
	stressWorkers int
	stressOps     int64
)

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Hammer a thread-safe pool from several goroutines at once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	cmd.Flags().IntVar(&stressWorkers, "workers", 8, "number of concurrent goroutines")
	cmd.Flags().Int64Var(&stressOps, "ops", 10000, "allocate/deallocate pairs per worker")
	return cmd
}

func runStress() error {
	p := pool.New(pool.Options{
		ChunkSize:       chunkSize,
		NextSize:        nextSize,
		MaxSize:         maxSize,
		ThreadSafe:      true,
		SystemAllocator: sysalloc.CRT{},
	})
	defer p.Close()

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < stressWorkers; w++ {
		g.Go(func() error {
			for i := int64(0); i < stressOps; i++ {
				chunk := p.Allocate()
				if chunk == nil {
					return fmt.Errorf("allocation failed")
				}
				*(*byte)(chunk) = 1
				p.Deallocate(chunk)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	st := p.Stats()
	fmt.Printf("stress complete: blocks=%d free=%d\n", st.Blocks, st.FreeChunks)
	return nil
}
