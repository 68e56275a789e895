// Command autosub batch-translates SRT files into
// Simplified Chinese through LLM providers, with rate limiting, concurrent
// chunk dispatch, untranslated-block retries and a final humanization pass.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/furunxungpt/autosub/config"
	"github.com/furunxungpt/autosub/humanize"
	"github.com/furunxungpt/autosub/i18n"
	"github.com/furunxungpt/autosub/lockfile"
	"github.com/furunxungpt/autosub/provider"
	"github.com/furunxungpt/autosub/settings"
	"github.com/furunxungpt/autosub/srtfile"
	"github.com/furunxungpt/autosub/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "autosub",
		Short: "AI subtitle translation for SRT files",
		Long: `autosub translates SRT subtitles with LLM providers.

Translates SRT subtitle files into Simplified Chinese using an LLM
provider, preserving block order and timing. Failed or partial chunks are
retried automatically; a final humanization pass applies your style guide.

Commands:
  translate   Translate an SRT file
  models      List models accessible with the configured API keys
  auth        Manage provider API keys
  version     Show version information

Providers (selected by model name):
  gemini       Google AI (Gemini) - default
  openai       OpenAI (gpt-*)
  moonshot     Moonshot / Kimi
  dashscope    Alibaba DashScope (qwen-*)
  zhipu        Zhipu (glm-*)
  deepseek     DeepSeek
  siliconflow  SiliconFlow (vendor-qualified model IDs)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTranslateCmd(),
		newModelsCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("autosub version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		model      string
		style      string
		chunkSize  int
		tier       string
		maxPasses  int
		styleGuide string
		output     string
		noCache    bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "translate <input.srt>",
		Short: "Translate an SRT file into Simplified Chinese",
		Long: `Translate an SRT subtitle file into Simplified Chinese.

The input is split into chunks which are translated concurrently under a
shared requests-per-minute budget derived from --tier. Blocks that come
back empty, untouched or garbled are re-dispatched for up to --max-passes
extra rounds; whatever still fails keeps its original text. A final
humanization pass rewrites AI-flavored phrasing and normalizes punctuation.

Unchanged blocks from a previous run are reused from autosub.lock next to
the input file (disable with --no-cache).

An .autosub.yaml next to the input supplies defaults; explicit flags win.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			inputPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			var classifier translate.Classifier
			cfg, err := config.Load(filepath.Dir(inputPath))
			if err != nil {
				return err
			}
			if cfg != nil {
				if !cmd.Flags().Changed("model") && cfg.Model != "" {
					model = cfg.Model
				}
				if !cmd.Flags().Changed("style") && cfg.Style != "" {
					style = cfg.Style
				}
				if !cmd.Flags().Changed("chunk-size") && cfg.ChunkSize > 0 {
					chunkSize = cfg.ChunkSize
				}
				if !cmd.Flags().Changed("tier") && cfg.Tier != "" {
					tier = cfg.Tier
				}
				if !cmd.Flags().Changed("max-passes") && cfg.MaxPasses > 0 {
					maxPasses = cfg.MaxPasses
				}
				if !cmd.Flags().Changed("style-guide") && cfg.StyleGuide != "" {
					styleGuide = cfg.StyleGuide
				}
				classifier = translate.Classifier{ASCIIRatio: cfg.ASCIIRatio, MinAlpha: cfg.MinAlpha}
			}

			if !translate.ValidStyle(style) {
				return fmt.Errorf("invalid style %q (want casual, formal or edgy)", style)
			}

			return runTranslate(ctx, translateParams{
				inputPath:  inputPath,
				outputPath: output,
				model:      model,
				style:      style,
				chunkSize:  chunkSize,
				tier:       tier,
				maxPasses:  maxPasses,
				styleGuide: styleGuide,
				classifier: classifier,
				noCache:    noCache,
				verbose:    verbose,
			})
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "gemini-1.5-flash", "LLM model (selects the provider too)")
	cmd.Flags().StringVar(&style, "style", translate.StyleCasual, "Translation style: casual, formal or edgy")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 50, "Subtitle blocks per request")
	cmd.Flags().StringVar(&tier, "tier", defaultTier(), "Provider service tier: free, tier1 or other")
	cmd.Flags().IntVar(&maxPasses, "max-passes", translate.DefaultMaxPasses, "Maximum retry passes for untranslated blocks")
	cmd.Flags().StringVar(&styleGuide, "style-guide", "", "Markdown style guide with humanizer rewrite rules")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: <input>.cn.srt)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore and do not update autosub.lock")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	return cmd
}

// defaultTier mirrors the LLM_TIER environment variable, falling back to
// the paid first tier.
func defaultTier() string {
	if t := os.Getenv("LLM_TIER"); t != "" {
		return strings.ToLower(t)
	}
	return translate.Tier1
}

type translateParams struct {
	inputPath  string
	outputPath string
	model      string
	style      string
	chunkSize  int
	tier       string
	maxPasses  int
	styleGuide string
	classifier translate.Classifier
	noCache    bool
	verbose    bool
}

func runTranslate(ctx context.Context, p translateParams) error {
	logInfo("%s", i18n.T("Parsing subtitle file..."))
	blocks, err := srtfile.ParseFile(p.inputPath)
	if err != nil {
		return err
	}
	logInfo("Loaded %d blocks from %s", len(blocks), filepath.Base(p.inputPath))

	rules, err := humanize.LoadStyleGuide(p.styleGuide, logWarning)
	if err != nil {
		return err
	}
	if rules.Len() > 0 {
		logInfo("Loaded %d style-guide rule(s)", rules.Len())
	}

	// Source text per block, captured before anything mutates Lines.
	sources := make(map[int]string, len(blocks))
	for _, b := range blocks {
		sources[b.Index] = b.Text()
	}

	// Incremental cache: reuse translations for unchanged blocks and hand
	// only the rest to the engine.
	var cache *lockfile.LockFile
	target := lockfile.TargetKey(filepath.Base(p.inputPath))
	pending := blocks
	if !p.noCache {
		cache, err = lockfile.Load(filepath.Dir(p.inputPath))
		if err != nil {
			return err
		}
		pending = nil
		reused := 0
		for _, b := range blocks {
			if text, ok := cache.Lookup(target, lockfile.BlockKey(b.Index), sources[b.Index]); ok {
				b.Lines = []string{text}
				reused++
			} else {
				pending = append(pending, b)
			}
		}
		if reused > 0 {
			logInfo(i18n.T("Reused %d cached translation(s)."), reused)
		}
	}

	limits := translate.LimitsForTier(p.tier)
	client := translate.NewClient(limits.RPM)

	engine := translate.NewEngine(client, translate.Options{
		Model:      p.model,
		ChunkSize:  p.chunkSize,
		Workers:    limits.Workers,
		MaxPasses:  p.maxPasses,
		Prompt:     translate.PromptConfig{Style: p.style},
		Classifier: p.classifier,
		Humanizer:  rules.Apply,
		OnProgress: func(done, total int) {
			logInfo("Progress: %d/%d chunks", done, total)
		},
		OnLog:   logInfo,
		OnError: logWarning,
	})

	summary, err := engine.Run(ctx, pending)
	if err != nil {
		return err
	}

	// Persist successes for the next run.
	if cache != nil {
		keys := make([]string, 0, len(blocks))
		for _, b := range blocks {
			key := lockfile.BlockKey(b.Index)
			keys = append(keys, key)
			if !p.classifier.IsUntranslated(b.Text()) {
				cache.Store(target, key, sources[b.Index], b.Text())
			}
		}
		cache.Clean(target, keys)
		if err := cache.Save(); err != nil {
			logWarning("Could not save %s: %v", cache.Path(), err)
		}
	}

	outPath := p.outputPath
	if outPath == "" {
		outPath = translatedPath(p.inputPath)
	}
	if err := srtfile.WriteFile(outPath, blocks); err != nil {
		return err
	}

	logSuccess(i18n.T("Translation saved to: %s"), outPath)
	if summary.Unresolved > 0 {
		logWarning(i18n.N("%d block remains untranslated", "%d blocks remain untranslated", summary.Unresolved), summary.Unresolved)
	} else {
		logSuccess("%s", i18n.T("All blocks translated."))
	}
	if p.verbose {
		logInfo("Summary: %d blocks, %d retry pass(es), %d resolved in post-processing",
			summary.Blocks, summary.RetryPasses, summary.Resolved)
	}
	return nil
}

// translatedPath derives the output path: name.en.srt becomes name.cn.srt,
// any other name.srt becomes name.cn.srt. If that file already exists a
// "_smart" suffix is appended instead of overwriting.
func translatedPath(inputPath string) string {
	var out string
	low := strings.ToLower(inputPath)
	switch {
	case strings.HasSuffix(low, ".en.srt"):
		out = inputPath[:len(inputPath)-len(".en.srt")] + ".cn.srt"
	case strings.HasSuffix(low, ".srt"):
		out = inputPath[:len(inputPath)-len(".srt")] + ".cn.srt"
	default:
		out = inputPath + ".cn.srt"
	}
	if _, err := os.Stat(out); err == nil {
		ext := filepath.Ext(out)
		out = strings.TrimSuffix(out, ext) + "_smart" + ext
	}
	return out
}

// ---------------------------------------------------------------------------
// models
// ---------------------------------------------------------------------------

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models accessible with the configured API keys",
		Long: `Query every provider that has an API key configured and list the
chat-capable models it reports. Providers without credentials are shown
as unconfigured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			defs := provider.Defaults()
			for _, id := range provider.IDs() {
				p := defs[id]
				if p.APIKey() == "" {
					fmt.Printf("%-12s (no API key: set %s)\n", id, strings.Join(p.KeyEnvs, " or "))
					continue
				}
				models := provider.ListModels(ctx, p)
				fmt.Printf("%-12s %d model(s)\n", id, len(models))
				for _, m := range models {
					fmt.Printf("  %s\n", m)
				}
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys stored in ` + settings.FilePath() + `.

Environment variables always take precedence over stored keys.`,
	}

	set := &cobra.Command{
		Use:   "set <provider> <api-key>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToLower(args[0])
			if _, ok := provider.Defaults()[id]; !ok {
				return fmt.Errorf("unknown provider %q (known: %s)", id, strings.Join(provider.IDs(), ", "))
			}
			if err := settings.SetAPIKey(id, args[1]); err != nil {
				return err
			}
			logSuccess("Stored API key for %s (%s)", id, settings.MaskKey(args[1]))
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <provider>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToLower(args[0])
			if err := settings.Remove(id); err != nil {
				return err
			}
			logSuccess("Removed credentials for %s", id)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show which providers have credentials",
		Run: func(cmd *cobra.Command, args []string) {
			defs := provider.Defaults()
			for _, id := range provider.IDs() {
				p := defs[id]
				if key := p.APIKey(); key != "" {
					fmt.Printf("%-12s configured (%s)\n", id, settings.MaskKey(key))
				} else {
					fmt.Printf("%-12s not configured (set %s)\n", id, strings.Join(p.KeyEnvs, " or "))
				}
			}
		},
	}

	auth.AddCommand(set, remove, status)
	return auth
}
