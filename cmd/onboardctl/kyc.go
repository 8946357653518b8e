package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"brokerage/internal/kyc"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/requestcontext"
)

func kycCmd(b backend) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kyc",
		Short: "Inspect and review KYC records",
	}
	cmd.AddCommand(kycStatusCmd(b), kycReviewCmd(b))
	return cmd
}

func kycStatusCmd(b backend) *cobra.Command {
	return &cobra.Command{
		Use:   "status [identity]",
		Short: "Show the latest KYC record for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseIdentity(args[0])
			if err != nil {
				return err
			}
			svc, closeFn, err := openKYC(cmd, b)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			record, err := svc.Latest(cmd.Context(), id)
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				fmt.Fprintf(out, "identity:  %s\nstate:     %s\nvisible:   %s\n", id, kyc.StateUnset, kyc.VisibleUnverified)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "identity:  %s\nstate:     %s\nvisible:   %s\n", id, record.State(), kyc.VisibleStatus(record.Status))
			fmt.Fprintf(out, "documents: %d\n", len(record.Documents))
			if record.SubmittedAt != nil {
				fmt.Fprintf(out, "submitted: %s\n", record.SubmittedAt.Format(time.RFC3339))
			}
			if record.ReviewedAt != nil {
				fmt.Fprintf(out, "reviewed:  %s\n", record.ReviewedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func kycReviewCmd(b backend) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [identity]",
		Short: "Record a review decision on a submitted KYC record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseIdentity(args[0])
			if err != nil {
				return err
			}
			decision, _ := cmd.Flags().GetString("decision")
			svc, closeFn, err := openKYC(cmd, b)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := requestcontext.WithTime(cmd.Context(), time.Now().UTC())
			record, err := svc.Review(ctx, id, kyc.State(decision))
			if err != nil {
				return fmt.Errorf("review %s: %s", id, dErrors.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", id, record.State())
			return nil
		},
	}
	cmd.Flags().String("decision", "", "review decision: verified or rejected")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func openKYC(cmd *cobra.Command, b backend) (*kyc.Service, func(), error) {
	store, closeFn, err := b.kyc(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	svc, err := kyc.New(store)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}
