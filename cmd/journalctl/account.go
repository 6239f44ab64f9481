package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
)

type accountOutput struct {
	ID           string        `json:"id"`
	Email        string        `json:"email,omitempty"`
	Tier         quota.Tier    `json:"tier"`
	Credits      quota.Balance `json:"credits"`
	RenewalDate  *time.Time    `json:"renewalDate,omitempty"`
	Subscription string        `json:"subscriptionId,omitempty"`
}

func toAccountOutput(user *models.UserModel) accountOutput {
	return accountOutput{
		ID:           user.ID,
		Email:        user.Email,
		Tier:         quota.TierOf(user),
		Credits:      quota.BalanceOf(user),
		RenewalDate:  user.Subscription.RenewalDate,
		Subscription: user.Subscription.StripeSubscriptionID,
	}
}

func (c *cli) accountCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Inspect and adjust quota ledgers"}

	show := &cobra.Command{
		Use:   "show USER_ID",
		Short: "Print the tier and credit balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd.Context(), func(ledger *quota.Ledger) error {
				user, err := ledger.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("account %s: %w", args[0], err)
				}
				return c.printJSON(toAccountOutput(user))
			})
		},
	}

	setTier := &cobra.Command{
		Use:   "set-tier USER_ID TIER",
		Short: "Move an account to a tier with a fresh monthly allotment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, ok := quota.ParseTier(args[1])
			if !ok {
				return fmt.Errorf("unknown tier %q, expected free, basic or premium", args[1])
			}
			return c.withLedger(cmd.Context(), func(ledger *quota.Ledger) error {
				if _, err := ledger.Account(cmd.Context(), args[0], ""); err != nil {
					return err
				}
				user, err := ledger.Reset(cmd.Context(), args[0], tier)
				if err != nil {
					return err
				}
				return c.printJSON(toAccountOutput(user))
			})
		},
	}

	refill := &cobra.Command{
		Use:   "refill",
		Short: "Restore the monthly credits of free accounts past their renewal date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd.Context(), func(ledger *quota.Ledger) error {
				n, err := ledger.RefillFreeTier(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(c.out, "refilled %d accounts\n", n)
				return err
			})
		},
	}

	cmd.AddCommand(show, setTier, refill)
	return cmd
}
