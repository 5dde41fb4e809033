package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warely/stockledger/internal/usecase"
)

// headerFlags carries the movement header options shared by every write
// command.
type headerFlags struct {
	actorID    string
	actorName  string
	reason     string
	notes      string
	occurredAt string
	lines      []string
}

func (h *headerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.actorID, "actor", "", "id of the user recording the movement (required)")
	cmd.Flags().StringVar(&h.actorName, "actor-name", "", "display name of the recording user")
	cmd.Flags().StringVar(&h.reason, "reason", "", "reason for the movement")
	cmd.Flags().StringVar(&h.notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&h.occurredAt, "occurred-at", "", "business timestamp, RFC 3339 (default: now)")
	cmd.Flags().StringArrayVar(&h.lines, "line", nil, "movement line as ITEM:QUANTITY, repeatable (required)")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("line")
}

func (h *headerFlags) input() (usecase.CommandInput, error) {
	input := usecase.CommandInput{
		ActorID:   h.actorID,
		ActorName: h.actorName,
		Reason:    h.reason,
		Notes:     h.notes,
	}

	if h.occurredAt != "" {
		ts, err := time.Parse(time.RFC3339, h.occurredAt)
		if err != nil {
			return input, fmt.Errorf("parse --occurred-at: %w", err)
		}

		input.OccurredAt = &ts
	}

	return input, nil
}

func (h *headerFlags) lineInputs() ([]usecase.LineInput, error) {
	lines := make([]usecase.LineInput, 0, len(h.lines))

	for _, raw := range h.lines {
		itemID, qty, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("line %q: want ITEM:QUANTITY", raw)
		}

		quantity, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("line %q: bad quantity: %w", raw, err)
		}

		lines = append(lines, usecase.LineInput{ItemID: itemID, Quantity: quantity})
	}

	return lines, nil
}

// runMovement wires a write command through setup, conflict retry and
// output in one place.
func runMovement(cmd *cobra.Command, h *headerFlags, create func(a *app, input usecase.CommandInput, lines []usecase.LineInput) (string, error)) error {
	ctx := cmd.Context()

	input, err := h.input()
	if err != nil {
		return err
	}

	lines, err := h.lineInputs()
	if err != nil {
		return err
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var id string

	err = a.retrier.Retry(ctx, func() error {
		var createErr error
		id, createErr = create(a, input, lines)
		return createErr
	})
	if err != nil {
		return err
	}

	return printJSON(map[string]string{"movement_id": id})
}

func newEntryCmd() *cobra.Command {
	h := &headerFlags{}

	var destination string

	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Record stock arriving at a warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMovement(cmd, h, func(a *app, input usecase.CommandInput, lines []usecase.LineInput) (string, error) {
				return a.movements.CreateEntry(cmd.Context(), input, destination, lines)
			})
		},
	}

	h.register(cmd)
	cmd.Flags().StringVar(&destination, "to", "", "destination warehouse id (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newExitCmd() *cobra.Command {
	h := &headerFlags{}

	var origin string

	cmd := &cobra.Command{
		Use:   "exit",
		Short: "Record stock leaving a warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMovement(cmd, h, func(a *app, input usecase.CommandInput, lines []usecase.LineInput) (string, error) {
				return a.movements.CreateExit(cmd.Context(), input, origin, lines)
			})
		},
	}

	h.register(cmd)
	cmd.Flags().StringVar(&origin, "from", "", "origin warehouse id (required)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func newTransferCmd() *cobra.Command {
	h := &headerFlags{}

	var origin, destination string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move stock between two warehouses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMovement(cmd, h, func(a *app, input usecase.CommandInput, lines []usecase.LineInput) (string, error) {
				return a.movements.CreateTransfer(cmd.Context(), input, origin, destination, lines)
			})
		},
	}

	h.register(cmd)
	cmd.Flags().StringVar(&origin, "from", "", "origin warehouse id (required)")
	cmd.Flags().StringVar(&destination, "to", "", "destination warehouse id (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newAdjustCmd() *cobra.Command {
	h := &headerFlags{}

	var warehouse string

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Set balances to counted target values",
		Long:  "Each --line quantity is the desired resulting balance, not a delta. The recorded movement holds the computed differences.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMovement(cmd, h, func(a *app, input usecase.CommandInput, lines []usecase.LineInput) (string, error) {
				return a.movements.CreateAdjustment(cmd.Context(), input, warehouse, lines)
			})
		},
	}

	h.register(cmd)
	cmd.Flags().StringVar(&warehouse, "warehouse", "", "warehouse id (required)")
	_ = cmd.MarkFlagRequired("warehouse")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}
