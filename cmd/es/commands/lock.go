package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirefrank/edgestack/internal/printer"
)

var (
	lockAgent string
	lockTTL   time.Duration

	unlockToken string
	unlockForce bool
)

var lockCmd = &cobra.Command{
	Use:   "lock ISSUE_ID",
	Short: "Acquire a lock lease on an issue",
	Long: `Acquire a lock lease on an issue for an agent.

The lease expires automatically after its TTL, so a crashed agent never
wedges an issue forever. The printed token is needed to release the
lease; losing it means waiting for expiry or using 'es unlock --force'.

Examples:
  # Lock with the configured TTL
  es lock es-a1b2c3 --agent worker-1

  # Short-lived lock
  es lock a1b --agent worker-1 --ttl 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runLock,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock ISSUE_ID",
	Short: "Release a lock lease on an issue",
	Long: `Release a lock lease using its token, or break someone else's lease
with --force.

Examples:
  # Release your own lease
  es unlock es-a1b2c3 --token 4f2a...

  # Break a stuck lease
  es unlock es-a1b2c3 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runUnlock,
}

func init() {
	lockCmd.Flags().StringVar(&lockAgent, "agent", "", "Agent acquiring the lock (required)")
	lockCmd.Flags().DurationVar(&lockTTL, "ttl", 0, "Lease duration (default from es.yml, 30m)")
	lockCmd.MarkFlagRequired("agent")

	unlockCmd.Flags().StringVar(&unlockToken, "token", "", "Lease token from 'es lock'")
	unlockCmd.Flags().BoolVar(&unlockForce, "force", false, "Break the lease without a token")

	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
}

func runLock(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := resolveID(ctx, client, args[0])
	if err != nil {
		return err
	}

	ttl := lockTTL
	if ttl == 0 {
		ttl = cfg.LockTTL()
	}

	token, err := client.AcquireLock(ctx, id, lockAgent, ttl)
	if err != nil {
		holder, expiresMs, holderErr := client.LockHolder(ctx, id)
		if holderErr == nil && holder != "" {
			remaining := time.Until(time.UnixMilli(expiresMs)).Round(time.Second)
			return printer.Error(
				fmt.Sprintf("issue %s is already locked", id),
				fmt.Sprintf("Held by %s, expires in %s.", holder, remaining),
				"Wait for the lease to expire, or break it:\n  es unlock "+id+" --force",
			)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	printer.Success("Locked %s for %s (ttl %s)\n", id, lockAgent, ttl)
	printer.Info("Token: %s\n", token)
	printer.Info("Release with: es unlock %s --token %s\n", id, token)

	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := resolveID(ctx, client, args[0])
	if err != nil {
		return err
	}

	if unlockForce {
		if err := client.BreakLock(ctx, id); err != nil {
			return fmt.Errorf("failed to break lock: %w", err)
		}
		printer.Success("Broke lock on %s\n", id)
		return nil
	}

	if unlockToken == "" {
		return printer.Error(
			"missing token",
			"Releasing a lease requires the token printed by 'es lock'.",
			fmt.Sprintf("Release with token:\n  es unlock %s --token <token>", id),
			fmt.Sprintf("Or break the lease:\n  es unlock %s --force", id),
		)
	}

	if err := client.ReleaseLock(ctx, id, unlockToken); err != nil {
		return printer.Error(
			fmt.Sprintf("failed to unlock %s", id),
			err.Error(),
			"The token may be stale. Check the holder:\n  es show "+id,
			fmt.Sprintf("Break the lease if it is stuck:\n  es unlock %s --force", id),
		)
	}

	printer.Success("Unlocked %s\n", id)
	return nil
}
