package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/furunxungpt/autosub/srtfile"
)

// ---------------------------------------------------------------------------
// Engine options
// ---------------------------------------------------------------------------

// DefaultChunkSize is the number of blocks bundled into one oracle request
// when Options.ChunkSize is zero.
const DefaultChunkSize = 20

// DefaultMaxPasses bounds the retry loop when Options.MaxPasses is zero.
const DefaultMaxPasses = 5

// Options controls one engine invocation.
type Options struct {
	// Model selects the provider and remote model.
	Model string
	// ChunkSize is how many blocks go into one request (default 20).
	ChunkSize int
	// Workers is the dispatch pool size (default 1).
	Workers int
	// MaxPasses bounds the post-processing retry loop (default 5).
	MaxPasses int
	// Prompt configures prompt rendering (style, guide snippets).
	Prompt PromptConfig
	// Classifier decides what still counts as untranslated.
	Classifier Classifier
	// Humanizer, when non-nil, is applied once to every block after the
	// retry loop concludes, regardless of translation status.
	Humanizer func(string) string

	// OnProgress is called after each chunk completes within a pass.
	OnProgress func(done, total int)
	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return 1
}

func (o *Options) maxPasses() int {
	if o.MaxPasses > 0 {
		return o.MaxPasses
	}
	return DefaultMaxPasses
}

// Summary reports what one engine invocation accomplished.
type Summary struct {
	// Blocks is the total number of blocks processed.
	Blocks int
	// RetryPasses is how many retry passes actually ran.
	RetryPasses int
	// Resolved is how many blocks the retry loop fixed after the initial
	// pass.
	Resolved int
	// Unresolved is how many blocks remain untranslated at the end.
	Unresolved int
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine coordinates the whole translation flow for one ordered block
// sequence: chunking, concurrent dispatch, parse and merge, the
// untranslated retry loop, and the final humanization pass.
type Engine struct {
	oracle Oracle
	opts   Options
}

// NewEngine builds an engine around an oracle. The oracle is typically a
// *Client, or a stub in tests.
func NewEngine(oracle Oracle, opts Options) *Engine {
	return &Engine{oracle: oracle, opts: opts}
}

// Run translates blocks in place and returns a summary. The input and
// output sequences are the same slice: length and index order are never
// disturbed, only block lines change. Per-chunk failures degrade to "keep
// prior text" and feed the retry loop; only structural misconfiguration
// (negative sizes, nil oracle) is a terminal error.
func (e *Engine) Run(ctx context.Context, blocks []*srtfile.Block) (Summary, error) {
	if e.oracle == nil {
		return Summary{}, errors.New("translate: nil oracle")
	}
	if e.opts.ChunkSize < 0 {
		return Summary{}, fmt.Errorf("translate: invalid chunk size %d", e.opts.ChunkSize)
	}
	if e.opts.Workers < 0 {
		return Summary{}, fmt.Errorf("translate: invalid worker count %d", e.opts.Workers)
	}

	sum := Summary{Blocks: len(blocks)}
	if len(blocks) == 0 {
		return sum, nil
	}

	// Initial pass over the full sequence.
	e.opts.log("Translating %d blocks in chunks of %d (workers: %d, model: %s)",
		len(blocks), e.opts.chunkSize(), e.opts.workers(), e.opts.Model)
	if err := e.runPass(ctx, blocks); err != nil {
		return sum, err
	}

	missedAfterFirst := e.untranslated(blocks)
	sum = e.retryLoop(ctx, blocks, missedAfterFirst, sum)

	if e.opts.Humanizer != nil {
		for _, b := range blocks {
			for i, line := range b.Lines {
				b.Lines[i] = e.opts.Humanizer(line)
			}
		}
	}

	return sum, ctx.Err()
}

// retryLoop re-dispatches only the currently-untranslated subset, merging
// results back at their original positions, until everything resolves or
// the pass budget runs out. Exhaustion is a warning, not an error: the
// remaining blocks keep their pre-retry content.
func (e *Engine) retryLoop(ctx context.Context, blocks []*srtfile.Block, missed []int, sum Summary) Summary {
	initialMissed := len(missed)
	if initialMissed == 0 {
		e.opts.log("All %d blocks translated on the first pass.", len(blocks))
		return sum
	}

	maxPasses := e.opts.maxPasses()
	for pass := 1; pass <= maxPasses; pass++ {
		if ctx.Err() != nil {
			break
		}
		if len(missed) == 0 {
			break
		}

		e.opts.log("Post-processing pass %d/%d: %d untranslated block(s). Re-translating...",
			pass, maxPasses, len(missed))
		sum.RetryPasses = pass

		// Carry (original position, block) pairs through the filtered
		// round; blocks are shared pointers, so merged text lands at the
		// original positions without re-mapping.
		subset := make([]*srtfile.Block, len(missed))
		for i, pos := range missed {
			subset[i] = blocks[pos]
		}

		if err := e.runPass(ctx, subset); err != nil {
			e.opts.logError("Retry pass %d aborted: %v", pass, err)
			break
		}

		still := e.untranslated(blocks)
		e.opts.log("  Resolved: %d | Still untranslated: %d", len(missed)-len(still), len(still))
		missed = still
	}

	sum.Unresolved = len(missed)
	sum.Resolved = initialMissed - sum.Unresolved
	if sum.Unresolved > 0 {
		e.opts.logError("Max passes reached: %d block(s) still untranslated.", sum.Unresolved)
	} else {
		e.opts.log("Post-processing complete after %d pass(es). All blocks translated.", sum.RetryPasses)
	}
	return sum
}

// runPass executes one full dispatch-and-merge cycle over the given
// working list (the full sequence on the initial pass, a filtered subset on
// retries). Chunk indexes are positions within this round's partition only.
func (e *Engine) runPass(ctx context.Context, blocks []*srtfile.Block) error {
	chunks := chunkBlocks(blocks, e.opts.chunkSize())

	tasks := make([]Task, len(chunks))
	for i, chunk := range chunks {
		tasks[i] = Task{
			ChunkIndex: i,
			Blocks:     chunk,
			Prompt:     BuildPrompt(chunk, e.opts.Prompt),
		}
	}

	results := GenerateBatch(ctx, e.oracle, e.opts.Model, tasks, e.opts.workers(), func(done, total int) {
		if e.opts.OnProgress != nil {
			e.opts.OnProgress(done, total)
		}
	})

	for _, res := range results {
		if res.Err != nil {
			// The whole chunk keeps its previous text and becomes a retry
			// candidate. Configuration errors are called out explicitly so
			// the user can fix them before the next run.
			if errors.Is(res.Err, ErrNoCredential) {
				e.opts.logError("Chunk %d: %v", res.ChunkIndex, res.Err)
			} else {
				e.opts.logError("Chunk %d failed: %v", res.ChunkIndex, res.Err)
			}
			continue
		}
		applyTranslations(tasks[res.ChunkIndex].Blocks, parseTranslations(res.Text))
	}

	return nil
}

// untranslated returns the positions of blocks still classified as
// untranslated, in ascending order.
func (e *Engine) untranslated(blocks []*srtfile.Block) []int {
	var missed []int
	for i, b := range blocks {
		if e.opts.Classifier.IsUntranslated(b.Text()) {
			missed = append(missed, i)
		}
	}
	return missed
}
