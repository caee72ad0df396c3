package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wardview/vitalpipe"
	"github.com/wardview/vitalpipe/hostfeed"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: auto-detect vitalpipe.yaml)")
	watch := flag.Bool("watch", false, "keep sampling and re-rendering the board")
	interval := flag.Duration("interval", 5*time.Second, "sampling interval in watch mode")
	sinkPath := flag.String("sink", "", "write results as JSON lines to this file")
	points := flag.Int("points", 0, "sparkline points per parameter (overrides config)")
	alertsFile := flag.String("alerts-file", "", "append alerts as JSON lines to this file")
	verbose := flag.Bool("verbose", false, "log delivered alerts to stderr")
	flag.Parse()

	pb := vitalpipe.NewPipelineBuilder()
	pb.WarnOut = os.Stderr
	if path := resolveConfigPath(*configPath); path != "" {
		pb.SetConfigFile(path)
	}

	pipe, catalog, err := pb.Build()
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	if *points > 0 {
		pipe.SparklinePoints = *points
	}

	var extra []vitalpipe.AlertResponder
	if *verbose {
		extra = append(extra, &vitalpipe.LogResponder{Out: os.Stderr})
	}
	if *alertsFile != "" {
		extra = append(extra, vitalpipe.NewAlertFileResponder(*alertsFile, 0))
	}
	if len(extra) > 0 {
		switch {
		case pipe.Router != nil && pipe.Router.Pipeline != nil:
			pipe.Router.Pipeline.Responders = append(pipe.Router.Pipeline.Responders, extra...)
		case pipe.Router != nil:
			pipe.Router.Pipeline = &vitalpipe.ResponderPipeline{Responders: extra}
		case pipe.Responders != nil:
			pipe.Responders.Responders = append(pipe.Responders.Responders, extra...)
		default:
			pipe.Responders = &vitalpipe.ResponderPipeline{Responders: extra}
		}
	}

	feed := hostfeed.NewFeed(catalog)
	monitor := vitalpipe.NewMonitor(feed, pipe)
	monitor.Interval = *interval
	monitor.Out = os.Stdout
	if *sinkPath != "" {
		monitor.Sink = vitalpipe.NewJSONFileSink(*sinkPath, 0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*watch {
		batch, err := feed.Next(ctx)
		if err != nil {
			log.Fatalf("sample host: %v", err)
		}
		res, err := pipe.Process(ctx, batch)
		if err != nil {
			log.Fatalf("process: %v", err)
		}
		if err := vitalpipe.RenderBoard(os.Stdout, res); err != nil {
			log.Fatalf("render: %v", err)
		}
		if monitor.Sink != nil {
			if err := monitor.Sink.Consume(res); err != nil {
				log.Fatalf("sink: %v", err)
			}
		}
		return
	}

	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("monitor error: %v", err)
	}
}

func resolveConfigPath(userPath string) string {
	try := func(p string) (string, bool) {
		if p == "" {
			return "", false
		}
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, true
		}
		return "", false
	}

	if p, ok := try(userPath); ok {
		return p
	}
	if p, ok := try("vitalpipe.yaml"); ok {
		return p
	}
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		if p, ok := try(filepath.Join(exeDir, "vitalpipe.yaml")); ok {
			return p
		}
		if p, ok := try(filepath.Join(exeDir, "..", "vitalpipe.yaml")); ok {
			return p
		}
	}
	return ""
}
