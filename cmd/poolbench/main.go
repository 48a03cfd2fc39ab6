// Command poolbench exercises a pool.Pool against its growth, release,
// and concurrency behavior, for manual inspection and regression
// spot-checks outside the unit tests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	chunkSize  int64
	nextSize   int64
	maxSize    int64
	threadSafe bool
)

var rootCmd = &cobra.Command{
	Use:   "poolbench",
	Short: "Drive a segregated-storage pool through growth, release and concurrency scenarios",
	Long: `poolbench builds a pool.Pool backed by the C runtime allocator and
drives it through a scenario, printing its Stats as the scenario runs.`,
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&chunkSize, "chunk-size", 64, "requested chunk size in bytes")
	rootCmd.PersistentFlags().Int64Var(&nextSize, "next-size", 32, "initial block growth size, in chunks")
	rootCmd.PersistentFlags().Int64Var(&maxSize, "max-size", 0, "block growth cap, in chunks (0 = unbounded)")
	rootCmd.PersistentFlags().BoolVar(&threadSafe, "thread-safe", false, "build the pool with a real mutex")

	rootCmd.AddCommand(newGrowCmd())
	rootCmd.AddCommand(newReleaseCmd())
	rootCmd.AddCommand(newStressCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
