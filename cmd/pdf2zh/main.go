// Command pdf2zh translates a PDF into a target language while preserving
// its visual layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/pipeline"
	"github.com/liunuozhi/pdf2zh-app/internal/settings"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

func main() {
	var (
		inPath       = flag.String("in", "", "input PDF path (required)")
		outPath      = flag.String("out", "", "output PDF path (required)")
		modelPath    = flag.String("model", "", "DocLayout-YOLO ONNX model path (required)")
		fontPath     = flag.String("font", "", "regular TTF covering the target script (required)")
		boldFontPath = flag.String("bold-font", "", "optional bold TTF for titles")
		settingsPath = flag.String("settings", "", "settings.json path (default: next to the executable)")
		pagesSpec    = flag.String("pages", "", "comma-separated one-based pages, e.g. 1,3,5 (default: all)")
		target       = flag.String("target", "", "target language override, e.g. zh-CN")
		transType    = flag.String("translator", "", "translator override: google or llm")
		prompt       = flag.String("prompt", "", "custom LLM system prompt")
		logPath      = flag.String("log", "pdf2zh.log", "log file path")
		verbose      = flag.Bool("v", false, "mirror log output to the console")
	)
	flag.Parse()

	if *inPath == "" || *outPath == "" || *modelPath == "" || *fontPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		LogFilePath:   *logPath,
		MaxFileSize:   10 * 1024 * 1024,
		Level:         logger.LevelInfo,
		EnableConsole: *verbose,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// .env keeps API tokens out of the settings file.
	_ = godotenv.Load()

	s, err := loadSettings(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}
	if *target != "" {
		s.TargetLanguage = *target
	}
	if *transType != "" {
		s.TranslatorType = *transType
	}
	if token := os.Getenv("LLM_API_TOKEN"); token != "" {
		s.LLMAPIToken = token
	}

	pages, err := parsePages(*pagesSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -pages: %v\n", err)
		os.Exit(1)
	}

	abort := &pipeline.AbortFlag{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "cancelling...")
		abort.Abort()
	}()

	result, err := pipeline.Run(context.Background(), pipeline.Request{
		InputPath:     *inPath,
		OutputPath:    *outPath,
		Settings:      s,
		SelectedPages: pages,
		CustomPrompt:  *prompt,
		Assets: pipeline.Assets{
			ModelPath:    *modelPath,
			FontPath:     *fontPath,
			BoldFontPath: *boldFontPath,
		},
		Abort: abort,
		OnProgress: func(ev types.ProgressEvent) {
			fmt.Printf("\r[%5.1f%%] %-14s page %d/%d", ev.Percent, ev.Stage, ev.CurrentPage, ev.TotalPages)
			if ev.Percent >= 100 {
				fmt.Println()
			}
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr)
		if types.IsCancelled(err) {
			fmt.Fprintln(os.Stderr, "cancelled")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "translation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("done: %s (%d pages, %d regions", result.OutputPath, result.PagesProcessed, result.RegionCount)
	if result.Usage.InputTokens > 0 || result.Usage.OutputTokens > 0 {
		fmt.Printf(", %d+%d tokens, $%.4f", result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.TotalCost)
	}
	fmt.Println(")")
}

func loadSettings(path string) (settings.AppSettings, error) {
	if path != "" {
		m := settings.NewManagerWithPath(path)
		return m.Get(), nil
	}
	m, err := settings.NewManager()
	if err != nil {
		return settings.Defaults(), nil
	}
	return m.Get(), nil
}

// parsePages parses "1,3,5" into one-based page numbers. Range validation
// against the document happens in the pipeline.
func parsePages(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a page number", part)
		}
		pages = append(pages, n)
	}
	return pages, nil
}
