// Command pdftranslate translates a PDF into another language while
// preserving the original page layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pdf-translator/internal/config"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/pdf"
	"pdf-translator/internal/report"
	"pdf-translator/internal/translate"
	"pdf-translator/internal/types"
)

func main() {
	var (
		output     = flag.String("o", "", "output PDF path (default: <input>_translated.pdf)")
		language   = flag.String("l", "", "target language tag, e.g. ko, ja, de (default: ko)")
		model      = flag.String("m", "", "translation model ID (default: from config or gpt-4o)")
		fontFile   = flag.String("font", "", "UTF-8 TTF font file for the target language")
		reportPath = flag.String("report", "", "write a JSON run report to this path")
		noCache    = flag.Bool("no-cache", false, "disable the translation cache")
		listModels = flag.Bool("list-models", false, "list known translation models and exit")
		textOnly   = flag.Bool("text-only", false, "print translated text per page instead of composing a PDF")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Usage = usage
	flag.Parse()

	if *listModels {
		printModels()
		return
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	logCfg := logger.DefaultConfig()
	if *verbose {
		logCfg.Level = logger.LevelDebug
		logCfg.EnableConsole = true
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if _, err := os.Stat(inputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: PDF not found: %s\n", inputPath)
		os.Exit(1)
	}

	cfgManager, err := config.NewConfigManager("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfgManager.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read config file %s: %v\n", cfgManager.GetConfigPath(), err)
		os.Exit(1)
	}

	apiKey := cfgManager.GetAPIKey()
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: OpenAI API key not configured")
		fmt.Fprintln(os.Stderr, "Set OPENAI_API_KEY or configure it in", cfgManager.GetConfigPath())
		os.Exit(1)
	}

	modelID := cfgManager.GetModel()
	if *model != "" {
		modelID = *model
	}
	targetLanguage := cfgManager.GetTargetLanguage()
	if *language != "" {
		targetLanguage = *language
	}

	var timeout time.Duration
	if secs := cfgManager.GetConfig().RequestTimeoutSeconds; secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	gateway := translate.NewGatewayWithConfig(apiKey, modelID, cfgManager.GetBaseURL(), timeout)

	var cache *translate.Cache
	if !*noCache {
		cachePath := cfgManager.GetConfig().CachePath
		if cachePath == "" {
			cachePath = filepath.Join(cfgManager.GetWorkDirectory(), "translation-cache.json")
		}
		cache = translate.NewCache(cachePath)
		if err := cache.Load(); err != nil {
			logger.Warn("translation cache unavailable", logger.Err(err))
		} else {
			gateway.SetCache(cache)
		}
	}

	if *textOnly {
		if err := runTextOnly(gateway, inputPath, targetLanguage); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		saveCache(cache)
		return
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = pdf.DefaultOutputPath(inputPath)
	}

	font := pdf.DefaultFontConfig()
	font.Family = cfgManager.GetFontFamily()
	if *fontFile != "" {
		font.FilePath = *fontFile
		font.Family = fontFamilyFromPath(*fontFile)
	} else if cfgManager.GetFontFile() != "" {
		font.FilePath = cfgManager.GetFontFile()
	}

	fmt.Printf("Input:    %s\n", inputPath)
	fmt.Printf("Output:   %s\n", outputPath)
	fmt.Printf("Language: %s (%s)\n", targetLanguage, translate.LanguageName(targetLanguage))
	fmt.Printf("Model:    %s\n", modelID)
	fmt.Println()

	assembler := pdf.NewDocumentAssembler(gateway, font, targetLanguage, cfgManager.GetWorkDirectory())

	if translate.SupportsVision(modelID) {
		renderer := pdf.NewPageRenderer(0)
		if renderer.Available() {
			assembler.EnableImageFallback(renderer, gateway)
			defer renderer.Cleanup()
		} else {
			logger.Debug("pdftoppm not found, image translation fallback disabled")
		}
	}

	assembler.SetProgressFunc(func(status types.Status) {
		fmt.Printf("\r[%3d%%] %s", status.Progress, status.Message)
	})

	startedAt := time.Now()
	result, runErr := assembler.Run(context.Background(), inputPath, outputPath)
	fmt.Println()
	saveCache(cache)

	if *reportPath != "" {
		r := report.Build(inputPath, targetLanguage, modelID, startedAt, result, runErr)
		if err := report.Save(r, *reportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write run report: %v\n", err)
		}
	}

	if result != nil {
		fmt.Printf("Pages composed: %d\n", result.Composed)
		fmt.Printf("Pages failed:   %d\n", result.Failed)
		for _, outcome := range result.Pages {
			if outcome.Err != nil {
				fmt.Printf("  page %d: %v\n", outcome.Page, outcome.Err)
			}
		}
		if result.Partial {
			fmt.Printf("Partial output: pages %v were written before the failure\n", result.Flushed)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	fmt.Printf("Done: %s\n", outputPath)
}

// runTextOnly prints the translated text of each page without building
// an output PDF.
func runTextOnly(gateway *translate.Gateway, inputPath, targetLanguage string) error {
	extractor := pdf.NewPageElementExtractor("")
	doc, err := extractor.Open(inputPath)
	if err != nil {
		return err
	}
	defer doc.Close()

	ctx := context.Background()
	for pageNum := 1; pageNum <= doc.PageCount(); pageNum++ {
		page, err := doc.ExtractPage(pageNum)
		if err != nil {
			fmt.Printf("=== Page %d ===\n[extraction failed: %v]\n\n", pageNum, err)
			continue
		}
		translated, err := gateway.Translate(ctx, page.Text(), targetLanguage)
		if err != nil {
			fmt.Printf("=== Page %d ===\n[translation failed: %v]\n\n", pageNum, err)
			continue
		}
		fmt.Printf("=== Page %d ===\n%s\n\n", pageNum, translated)
	}
	return nil
}

func printModels() {
	fmt.Println("Known models:")
	for _, m := range translate.KnownModels {
		vision := ""
		if m.Vision {
			vision = " [vision]"
		}
		fmt.Printf("  %-16s %s%s\n", m.ID, m.Description, vision)
	}
	fmt.Println("\nAny OpenAI-compatible model ID can be passed with -m.")
}

func saveCache(cache *translate.Cache) {
	if cache == nil {
		return
	}
	if err := cache.Save(); err != nil {
		logger.Warn("failed to save translation cache", logger.Err(err))
	}
}

// fontFamilyFromPath derives a gofpdf family name from a font file name.
func fontFamilyFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: pdftranslate [options] <input.pdf>

Translates a PDF while keeping the original page layout. Text is placed
back at each line's original position; text that no longer fits flows
into an overflow column at the bottom of the page.

Options:
`)
	flag.PrintDefaults()
}
