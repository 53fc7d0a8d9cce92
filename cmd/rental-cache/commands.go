package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/rental-cache/pkg/cache"
)

func newGetCmd(a *app) *cobra.Command {
	var showTTL bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the raw cached payload of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, redisClient, err := a.connect()
			if err != nil {
				return err
			}
			defer redisClient.Close()

			entry, err := svc.Inspect(cmd.Context(), args[0])
			if cache.IsMiss(err) {
				return fmt.Errorf("%s: not cached", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showTTL {
				fmt.Fprintf(out, "ttl: %s\n", formatTTL(entry.TTL()))
			}
			fmt.Fprintf(out, "%s\n", entry.Value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTTL, "ttl", false, "print the remaining TTL before the payload")
	return cmd
}

func newTTLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ttl <key>",
		Short: "Print the remaining lifetime of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, redisClient, err := a.connect()
			if err != nil {
				return err
			}
			defer redisClient.Close()

			ttl, err := svc.TTL(cmd.Context(), args[0])
			if cache.IsMiss(err) {
				return fmt.Errorf("%s: not cached", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatTTL(ttl))
			return nil
		},
	}
}

func newDelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>...",
		Short: "Delete one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, redisClient, err := a.connect()
			if err != nil {
				return err
			}
			defer redisClient.Close()

			if err := svc.Delete(cmd.Context(), args...); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", strings.Join(args, " "))
			return nil
		},
	}
}

func newInvalidateCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "invalidate <pattern>",
		Short: "Delete every key matching a pattern such as analytics:*:P1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, redisClient, err := a.connect()
			if err != nil {
				return err
			}
			defer redisClient.Close()

			out := cmd.OutOrStdout()
			pattern := args[0]

			if dryRun {
				keys, err := svc.Keys(cmd.Context(), pattern)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(out, key)
				}
				fmt.Fprintf(out, "%d keys match %s\n", len(keys), pattern)
				return nil
			}

			deleted, err := svc.InvalidatePattern(cmd.Context(), pattern)
			if err != nil {
				return fmt.Errorf("invalidated %d keys before failing: %w", deleted, err)
			}

			fmt.Fprintf(out, "%d\n", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list matching keys without deleting them")
	return cmd
}

func formatTTL(ttl time.Duration) string {
	if ttl == 0 {
		return "no expiry"
	}
	return ttl.Round(time.Millisecond).String()
}
