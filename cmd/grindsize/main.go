package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"grindsize/internal/models"
	"grindsize/pkg/analysis"
	"grindsize/pkg/config"
	"grindsize/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "grindsize.yaml", "Path to the YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	input := flag.String("input", "", "Image file, directory or glob pattern (positional arguments are accepted too)")
	profile := flag.String("profile", "", "Detection profile to apply (e.g. standard, fine, coarse)")
	numCores := flag.Int("cores", 0, "Number of images analysed in parallel (default: from config)")
	pixelsPerMM := flag.Float64("ppm", 0, "Known scale in pixels per millimetre (default: fallback scale with a warning)")
	split := flag.Bool("split", false, "Separate touching particles")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save intermediary stage images")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		log.Infof("Default configuration written to %s", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ApplyProfile(*profile); err != nil {
		log.Fatalf("Failed to apply profile: %v", err)
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *split {
		cfg.Analysis.SplitOverlaps = true
	}
	if *saveIntermediary {
		cfg.Output.SaveIntermediaryResults = true
	}
	log.SetLevel(logLevel(*verbose, cfg.Output.Verbose))

	args := flag.Args()
	if *input != "" {
		args = append([]string{*input}, args...)
	}
	paths, err := collectInputs(args)
	if err != nil {
		log.Fatalf("Failed to collect inputs: %v", err)
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	opts, err := analysis.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid analysis settings: %v", err)
	}
	opts.Logger = log
	if *pixelsPerMM > 0 {
		opts.Calibrator = analysis.FixedScale(*pixelsPerMM)
	}

	fmt.Println("================================")
	fmt.Println("PARTICLE SIZE DISTRIBUTION ANALYSIS")
	fmt.Println("================================")

	startTime := time.Now()
	reports := analyzeAll(paths, cfg, opts, log)

	failed := 0
	var d50s stats.Float64Data
	for _, r := range reports {
		if r.err != nil {
			failed++
			log.WithField("image", r.path).Errorf("Analysis failed: %v", r.err)
			continue
		}
		printReport(r, opts.Spacing)
		if r.result.Summary.D50 != nil {
			d50s = append(d50s, *r.result.Summary.D50)
		}
	}

	fmt.Printf("\nAnalysed %d image(s) in %.2f seconds using %d worker(s)\n",
		len(paths)-failed, time.Since(startTime).Seconds(), cfg.Processing.NumCores)
	if len(d50s) > 1 {
		median, _ := stats.Median(d50s)
		spread, _ := stats.StandardDeviation(d50s)
		fmt.Printf("Batch D50: median %.1f um, standard deviation %.1f um\n", median, spread)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// logLevel turns on debug output when either the flag or the config asks
// for it
func logLevel(flagVerbose, configVerbose bool) logrus.Level {
	if flagVerbose || configVerbose {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// report is the outcome for one input file
type report struct {
	index   int
	path    string
	result  *analysis.Result
	elapsed time.Duration
	err     error
}

// analyzeAll runs one goroutine per image, with at most NumCores running
// at once, and returns the reports in input order
func analyzeAll(paths []string, cfg *config.Config, opts analysis.Options, log *logrus.Logger) []report {
	reports := make([]report, len(paths))
	resultChan := make(chan report)
	slots := make(chan struct{}, max(1, cfg.Processing.NumCores))

	for i, path := range paths {
		go func(idx int, path string) {
			slots <- struct{}{}
			defer func() { <-slots }()

			start := time.Now()
			res, err := analyzeFile(path, cfg, opts)
			resultChan <- report{index: idx, path: path, result: res, elapsed: time.Since(start), err: err}
		}(i, path)
	}

	for completed := 0; completed < len(paths); completed++ {
		r := <-resultChan
		reports[r.index] = r
		if r.err == nil {
			log.WithFields(logrus.Fields{
				"image":     r.path,
				"particles": len(r.result.Particles),
				"elapsed":   r.elapsed.Round(time.Millisecond),
			}).Info("Analysed image")
		}
	}
	return reports
}

func analyzeFile(path string, cfg *config.Config, opts analysis.Options) (*analysis.Result, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}

	opts.Logger = opts.Logger.WithField("image", filepath.Base(path))
	res, err := analysis.Analyze(img, opts)
	if err != nil {
		return nil, err
	}

	if cfg.Output.SaveIntermediaryResults {
		prefix := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		w := visualization.NewWriter(cfg.Output.IntermediaryDir, prefix)
		if _, err := w.SaveStages(res.Gray, res.Mask, res.Cleaned, res.Labels); err != nil {
			return nil, fmt.Errorf("saving intermediary results: %w", err)
		}
	}
	return res, nil
}

func printReport(r report, spacing models.Spacing) {
	res := r.result
	s := res.Summary

	fmt.Printf("\n%s\n", r.path)
	fmt.Printf("  Scale: %.2f px/mm, region %v\n", res.PixelsPerMM, res.ROI)
	for _, w := range res.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	fmt.Printf("  Particles: %d (%s-weighted %s)\n", s.Count, s.Weighting, s.Metric)
	if s.Count == 0 {
		fmt.Println("  No particles found")
		return
	}

	fmt.Printf("  D10 %s  D50 %s  D90 %s\n", format(s.D10), format(s.D50), format(s.D90))
	fmt.Printf("  Mean %s  Std %s  Mode %s\n", format(s.Mean), format(s.StdDev), format(s.Mode))
	fmt.Printf("  Min %s  Max %s\n", format(s.Min), format(s.Max))
	fmt.Printf("  Span %s  Efficiency %s  Roundness %s\n", format(s.Span), format(s.Efficiency), format(s.AvgRoundness))

	h := res.Histogram(spacing)
	if h.Empty() {
		return
	}
	fmt.Printf("  Histogram (%s):\n", h.Spacing)
	for i, bin := range h.Bins {
		v := h.Values[i]
		if v.Weight == 0 {
			continue
		}
		bar := strings.Repeat("#", int(v.Percent/100/h.MaxFraction*40+0.5))
		fmt.Printf("  %10.1f - %10.1f %6.2f%% %s\n", bin.Start, bin.End, v.Percent, bar)
	}
}

func format(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
