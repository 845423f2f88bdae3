package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/duet/internal/app"
	"github.com/ent0n29/duet/internal/conversation"
)

var maxTurns int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one conversation headless and print the transcript",
	Args:  cobra.NoArgs,
	RunE:  runHeadless,
}

func init() {
	runCmd.Flags().IntVar(&maxTurns, "max-turns", 0, "stop after this many turns (0 runs until interrupted)")
}

func runHeadless(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCfg := cfg
	if cmd.Flags().Changed("max-turns") {
		runCfg.MaxTurns = maxTurns
	}
	built, err := app.Build(ctx, runCfg, log)
	if err != nil {
		return err
	}

	events, unsubscribe := built.Session.Subscribe(64)
	defer unsubscribe()

	runID, err := built.Session.Start(ctx)
	if err != nil {
		return err
	}
	log.Info("run started", zap.String("run_id", runID), zap.String("textgen", built.Providers.TextGen))

	out := cmd.OutOrStdout()
	done := built.Session.Done()
	for {
		select {
		case <-ctx.Done():
			built.Session.Stop()
			waitCtx, cancel := context.WithTimeout(context.Background(), built.Config.ShutdownTimeout)
			err := built.Session.Wait(waitCtx)
			cancel()
			if err != nil {
				_ = built.Cleanup(context.Background())
			}
			return nil
		case ev := <-events:
			if ev.Kind == conversation.EventTurn {
				fmt.Fprintf(out, "[%d] %s: %s\n", ev.Turn.Ordinal, ev.Turn.SpeakerName, ev.Turn.Text)
			}
		case <-done:
			// Drain events published before the run ended.
			for {
				select {
				case ev := <-events:
					if ev.Kind == conversation.EventTurn {
						fmt.Fprintf(out, "[%d] %s: %s\n", ev.Turn.Ordinal, ev.Turn.SpeakerName, ev.Turn.Text)
					}
				default:
					st := built.Session.Status()
					log.Info("run finished",
						zap.Int("turns", st.Turns),
						zap.Duration("elapsed", st.StoppedAt.Sub(st.StartedAt).Round(time.Millisecond)),
					)
					if st.LastError != "" {
						return fmt.Errorf("run failed: %s", st.LastError)
					}
					return nil
				}
			}
		}
	}
}
