package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campaignd/internal/schedule"
	logx "campaignd/pkg/logx"
)

func homeNormalizer(tz string) (*schedule.Normalizer, error) {
	loc, err := schedule.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return schedule.NewNormalizer(loc, logx.Nop()), nil
}

func decideCmd() *cobra.Command {
	var (
		date      string
		sent      []string
		nowRaw    string
		tz        string
		byInstant bool
	)
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Print whether a scheduled date fires now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			norm, err := homeNormalizer(tz)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			if nowRaw != "" {
				if now, err = time.Parse(time.RFC3339, nowRaw); err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}

			var set schedule.SentSet = schedule.NewRawSet(sent...)
			if byInstant {
				set = schedule.NewInstantSet(norm, sent...)
			}
			d := schedule.NewGate(norm, logx.Nop()).Decide(date, set, now, "cli")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "decision: %s\n", d.Kind)
			fmt.Fprintf(out, "fire: %t\n", d.Fire)
			if d.Valid {
				fmt.Fprintf(out, "at_utc: %s\n", d.At.UTC().Format(time.RFC3339))
				fmt.Fprintf(out, "at_local: %s\n", d.At.In(norm.Location()).Format(time.RFC3339))
			}
			fmt.Fprintf(out, "now_utc: %s\n", now.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "scheduled date string")
	cmd.Flags().StringArrayVar(&sent, "sent", nil, "already sent date (repeatable)")
	cmd.Flags().StringVar(&nowRaw, "now", "", "evaluation instant, RFC3339 (default: current time)")
	cmd.Flags().StringVar(&tz, "tz", schedule.DefaultTimezone, "home timezone for dates without offset")
	cmd.Flags().BoolVar(&byInstant, "by-instant", false, "match sent dates by instant instead of exact text")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func normalizeCmd() *cobra.Command {
	var tz string
	cmd := &cobra.Command{
		Use:   "normalize <date>...",
		Short: "Print the UTC and home-zone instant of each date",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			norm, err := homeNormalizer(tz)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, raw := range args {
				at, ok := norm.Normalize(raw)
				if !ok {
					fmt.Fprintf(out, "%s\tinvalid\n", raw)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", raw,
					at.UTC().Format(time.RFC3339),
					at.In(norm.Location()).Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "tz", schedule.DefaultTimezone, "home timezone for dates without offset")
	return cmd
}
