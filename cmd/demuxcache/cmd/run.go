package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/demuxcache/internal/config"
	"github.com/jmylchreest/demuxcache/internal/observability"
	"github.com/jmylchreest/demuxcache/pkg/cache"
	"github.com/jmylchreest/demuxcache/pkg/cache/demoproducer"
	"github.com/jmylchreest/demuxcache/pkg/duration"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a synthetic producer through the cache end to end",
	Long: `run wires a synthetic in-memory producer (pkg/cache/demoproducer) through
the cache's worker loop and reports on stream state as it fills, seeks, and
drains. There is no real container parser behind this command; it exists to
exercise the full public API without one.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("seek-at", "", `when to issue a seek, e.g. "30s from now" or a plain duration like "30s" (measured from process start)`)
	runCmd.Flags().Float64("seek-to", 0, "PTS in seconds to seek to when --seek-at fires")
	mustBindPFlag("run.seek_at", runCmd.Flags().Lookup("seek-at"))
	mustBindPFlag("run.seek_to", runCmd.Flags().Lookup("seek-to"))
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.WithComponent(slog.Default(), "cmd.run")
	cacheValues := cfg.ToCacheConfig()

	c := cache.New(cache.Config{
		MinSecs:             cacheValues.MinSecs,
		MinSecsCache:        cacheValues.MinSecsCache,
		MaxBytes:            cacheValues.MaxBytes,
		MaxBytesBackward:    cacheValues.MaxBytesBackward,
		SeekableCache:       cacheValues.SeekableCache,
		PacketOverheadBytes: cacheValues.PacketOverheadBytes,
		Logger:              logger,
	})

	producer := demoproducer.New(c, demoproducer.Config{
		Streams: []demoproducer.StreamSpec{
			{Type: demoproducer.StreamVideo, FrameRate: 30, FrameBytes: 4096, KeyframeEvery: 30},
			{Type: demoproducer.StreamAudio, FrameRate: 50, FrameBytes: 256},
		},
		Duration:     cfg.Demo.Duration.Duration().Seconds(),
		BatchPackets: cfg.Demo.BatchPackets,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	openDone := observability.TimedOperation(ctx, logger, "open_producer")
	err = producer.Open(ctx, cache.CheckLevelNormal)
	openDone()
	if err != nil {
		return fmt.Errorf("opening producer: %w", err)
	}

	for i := range c.StreamCount() {
		if err := c.SelectTrack(i, cache.UnsetTimestamp, true); err != nil {
			return fmt.Errorf("selecting stream %d: %w", i, err)
		}
	}

	if err := c.StartThread(producer); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	defer c.Free()

	seekAtSpec := viper.GetString("run.seek_at")
	seekTo := viper.GetFloat64("run.seek_to")
	var seekTimer <-chan time.Time
	if seekAtSpec != "" {
		wait, err := parseSeekAt(seekAtSpec)
		if err != nil {
			return fmt.Errorf("parsing --seek-at %q: %w", seekAtSpec, err)
		}
		if wait > 0 {
			seekTimer = time.After(wait)
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-seekTimer:
			seekTimer = nil
			seekLogger := observability.WithOperation(logger, "seek")
			seekLogger.Info("issuing seek", slog.Float64("pts", seekTo))
			if err := c.Seek(ctx, cache.Timestamp(seekTo), 0); err != nil {
				observability.WithError(seekLogger, err).Error("seek failed")
			}
		case <-ticker.C:
			reportState(cmd, c, logger)
			if c.EOF() && c.Idle() {
				logger.Info("cache reached eof and went idle, exiting")
				return nil
			}
		}
	}
}

// parseSeekAt turns a --seek-at spec into a wait duration from now. It
// accepts a relative expression ("30s from now", "2m after now") via
// duration.ParseRelativeFrom, falling back to a plain duration string ("30s")
// measured from the moment run starts.
func parseSeekAt(spec string) (time.Duration, error) {
	now := time.Now()
	if t, err := duration.ParseRelativeFrom(spec, now); err == nil {
		return t.Sub(now), nil
	}
	return duration.Parse(spec)
}

func reportState(cmd *cobra.Command, c *cache.Cache, logger *slog.Logger) {
	for i := range c.StreamCount() {
		state, err := c.ReaderState(i)
		if err != nil {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stream %d: selected=%v eof=%v fw_packets=%d fw_bytes=%d bitrate=%.0f\n",
			i, state.Selected, state.EOF, state.ForwardPackets, state.ForwardBytes, state.Bitrate)
	}
}
