package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/smashcc/analytics/internal/app"
	"github.com/smashcc/analytics/internal/config"
	"github.com/smashcc/analytics/internal/platform/logging"
	"github.com/smashcc/analytics/internal/usecase"
)

type stateList []string

func (s *stateList) String() string {
	return strings.Join(*s, ",")
}

func (s *stateList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		*s = append(*s, candidate)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var states stateList
	flag.Var(&states, "state", "state to precompute, repeatable or comma separated")
	allStates := flag.Bool("all-states", false, "precompute every state that already has stored tournaments")
	videogameID := flag.Int("videogame-id", cfg.DefaultVideogameID, "provider videogame id")
	targetCharacter := flag.String("target-character", "", "character for usage and split metrics")
	monthsBack := flag.Int("months-back", cfg.DefaultMonthsBack, "how many months of history to cover")
	windowOffset := flag.Int("window-offset", 0, "shift the window this many months into the past")
	windowSize := flag.Int("window-size", 0, "narrow the window to this many months")
	largeEventMin := flag.Int("large-event-min", cfg.LargeEventThreshold, "entrant count where an event counts as large")
	assumeTargetMain := flag.Bool("assume-target-main", false, "credit full records to the target character when a player has no selection data")
	autoSeries := flag.Bool("auto-series", false, "also precompute per-series scopes for discovered series")
	seriesTopN := flag.Int("series-top-n", 5, "series to keep per state by drawing power")
	seriesMinAttendees := flag.Int("series-min-attendees", 32, "peak attendance that qualifies a series outside the top n")
	seriesMinEvents := flag.Int("series-min-events", 3, "edition count that qualifies a series outside the top n")
	workers := flag.Int("workers", cfg.PrecomputeWorkers, "states processed concurrently")
	timeout := flag.Duration("timeout", 2*time.Hour, "abort the run after this long")
	flag.Parse()

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)

	services, cleanup, err := app.BuildServices(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build services: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	result, err := services.Precompute.Run(ctx, usecase.PrecomputeInput{
		States:              states,
		AllStates:           *allStates,
		VideogameID:         *videogameID,
		TargetCharacter:     *targetCharacter,
		MonthsBack:          *monthsBack,
		WindowOffset:        *windowOffset,
		WindowSize:          *windowSize,
		LargeEventMin:       *largeEventMin,
		AssumeTargetMain:    *assumeTargetMain,
		AutoSeries:          *autoSeries,
		SeriesTopN:          *seriesTopN,
		SeriesMinAttendees:  *seriesMinAttendees,
		SeriesMinEventCount: *seriesMinEvents,
		MaxWorkers:          *workers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "precompute run: %v\n", err)
		os.Exit(1)
	}

	encoded, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	if result.FailedCount > 0 {
		os.Exit(1)
	}
}
