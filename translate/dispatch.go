package translate

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/furunxungpt/autosub/srtfile"
)

// ---------------------------------------------------------------------------
// Tasks and results
// ---------------------------------------------------------------------------

// Task is one unit of work for a dispatch round: a chunk of blocks and the
// prompt rendered for it. ChunkIndex is the task's position within its
// round; it is owned by that round and discarded after merge.
type Task struct {
	ChunkIndex int
	Blocks     []*srtfile.Block
	Prompt     string
}

// Result is the outcome of exactly one task. Err != nil means Text is
// unusable and every block of the chunk keeps its previous content.
type Result struct {
	ChunkIndex int
	Text       string
	Err        error
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// GenerateBatch runs all tasks through the oracle on a bounded worker pool
// and returns results ordered by ChunkIndex regardless of completion order.
// Each worker writes exactly one pre-sized result slot, so no sort step is
// needed. The call blocks until every task completes; individual failures
// are isolated into their Result and never abort the batch. onDone, when
// non-nil, is invoked after each task completes with (completed, total).
func GenerateBatch(ctx context.Context, oracle Oracle, model string, tasks []Task, workers int, onDone func(done, total int)) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var done int64
	total := len(tasks)

	for _, task := range tasks {
		sem <- struct{}{}
		wg.Add(1)

		go func(t Task) {
			defer func() {
				<-sem
				wg.Done()
			}()

			text, err := oracle.Generate(ctx, t.Prompt, model)
			results[t.ChunkIndex] = Result{ChunkIndex: t.ChunkIndex, Text: text, Err: err}

			if onDone != nil {
				onDone(int(atomic.AddInt64(&done, 1)), total)
			}
		}(task)
	}

	wg.Wait()
	return results
}

// chunkBlocks partitions blocks into contiguous chunks of at most size
// elements, preserving order.
func chunkBlocks(blocks []*srtfile.Block, size int) [][]*srtfile.Block {
	if size <= 0 || size >= len(blocks) {
		return [][]*srtfile.Block{blocks}
	}
	var chunks [][]*srtfile.Block
	for i := 0; i < len(blocks); i += size {
		end := i + size
		if end > len(blocks) {
			end = len(blocks)
		}
		chunks = append(chunks, blocks[i:end])
	}
	return chunks
}
