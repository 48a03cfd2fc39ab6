package pool

import (
	"fmt"

	s "github.com/prataprc/gosettings"
)

// DefaultSettings returns a Config populated with this package's
// constructor defaults for the given chunk size, suitable for further
// overrides before calling ConfigToOptions.
//
// "chunk_size" (int64, required)
//		Requested size, in bytes, of each chunk.
//
// "next_size" (int64, default: 32)
//		Number of chunks the first grown block holds.
//
// "max_size" (int64, default: 0)
//		Cap, in chunks, on any single grown block. Zero means unbounded.
//
// "thread_safe" (bool, default: false)
//		Whether the constructed Pool synchronizes with a real mutex.
func DefaultSettings(chunkSize int64) s.Settings {
	return s.Settings{
		"chunk_size":  chunkSize,
		"next_size":   int64(32),
		"max_size":    int64(0),
		"thread_safe": false,
	}
}

// ConfigToOptions builds Options from a Config, applying config's
// values over DefaultSettings(config.Int64("chunk_size")). It panics if
// "chunk_size" is missing or not positive.
func ConfigToOptions(config s.Settings) Options {
	chunkSize := config.Int64("chunk_size")
	if chunkSize <= 0 {
		panic(fmt.Errorf("pool: config chunk_size must be positive, got %v", chunkSize))
	}
	merged := DefaultSettings(chunkSize).Mixin(config)
	return Options{
		ChunkSize:  merged.Int64("chunk_size"),
		NextSize:   merged.Int64("next_size"),
		MaxSize:    merged.Int64("max_size"),
		ThreadSafe: merged.Bool("thread_safe"),
	}
}
