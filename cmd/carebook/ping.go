package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/carebook/pkg/health"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api, err := health.NewBackendChecker(cfg.APIURL)
		if err != nil {
			return err
		}
		api.WithHeader("User-Agent", "carebook/"+Version)
		addr, err := health.BackendAddress(cfg.APIURL)
		if err != nil {
			return err
		}

		if watch, _ := cmd.Flags().GetDuration("watch"); watch > 0 {
			hcfg := health.DefaultConfig()
			hcfg.Interval = watch
			health.Watch(ctx, api, hcfg, func(r health.Result, s *health.Status) {
				state := "up"
				if !s.Healthy {
					state = "down"
				}
				fmt.Fprintf(out, "%s  %-4s  %s (%s)\n",
					r.CheckedAt.Format(time.TimeOnly), state, r.Message, r.Duration.Round(time.Millisecond))
			})
			return nil
		}

		fmt.Fprintf(out, "Backend: %s\n", cfg.APIURL)
		healthy := true
		for _, r := range health.Run(ctx, health.NewTCPChecker(addr), api) {
			mark := "✓"
			if !r.Healthy {
				mark, healthy = "✗", false
			}
			fmt.Fprintf(out, "%s %s (%s)\n", mark, r.Message, r.Duration.Round(time.Millisecond))
		}
		if !healthy {
			return fmt.Errorf("backend unreachable")
		}
		return nil
	},
}

func init() {
	pingCmd.Flags().Duration("watch", 0, "Keep checking at this interval until interrupted")
}
