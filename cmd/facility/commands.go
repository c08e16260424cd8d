package facility

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/fbook/lib/booking"
	"github.com/ValentinKolb/fbook/lib/executor"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"
)

// result types printed by the commands

type bookingResult struct {
	ConfirmationID uint32 `json:"confirmation_id" yaml:"confirmation_id"`
}

type messageResult struct {
	Message string `json:"message" yaml:"message"`
}

type lastBookingResult struct {
	Facility string    `json:"facility" yaml:"facility"`
	LastEnd  time.Time `json:"last_end" yaml:"last_end"`
	Status   string    `json:"status" yaml:"status"`
}

type extendResult struct {
	NewEnd  time.Time `json:"new_end" yaml:"new_end"`
	Message string    `json:"message" yaml:"message"`
}

type updateRow struct {
	Op             string    `json:"op" yaml:"op"`
	ConfirmationID uint32    `json:"confirmation_id" yaml:"confirmation_id"`
	Start          time.Time `json:"start" yaml:"start"`
	End            time.Time `json:"end" yaml:"end"`
	Message        string    `json:"message" yaml:"message"`
}

var (
	queryCmd = &cobra.Command{
		Use:   "query [facility] [day...]",
		Short: "Lists the free slots of a facility on the given days",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			days := make([]time.Time, 0, len(args)-1)
			for _, arg := range args[1:] {
				day, err := parseTime(arg)
				if err != nil {
					return err
				}
				days = append(days, day)
			}

			slots, err := executor.Run(cmd.Context(), pool, func(ctx context.Context) ([]booking.TimeSlot, error) {
				return rpcClient.QueryAvailability(ctx, args[0], days)
			})
			if err != nil {
				return err
			}
			fmt.Print(formatter.Format(slots))
			return nil
		},
	}
	bookCmd = &cobra.Command{
		Use:   "book [facility] [start] [end]",
		Short: "Books a facility from start to end",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseTime(args[1])
			if err != nil {
				return err
			}
			end, err := parseTime(args[2])
			if err != nil {
				return err
			}

			id, err := executor.Run(cmd.Context(), pool, func(ctx context.Context) (uint32, error) {
				return rpcClient.Book(ctx, args[0], start, end)
			})
			if err != nil {
				return err
			}
			fmt.Print(formatter.Format(bookingResult{ConfirmationID: id}))
			return nil
		},
	}
	changeCmd = &cobra.Command{
		Use:   "change [confirmation-id] [offset]",
		Short: "Moves a booking by an offset (e.g. 30m, -1h or minutes)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseConfirmationID(args[0])
			if err != nil {
				return err
			}
			offset, err := parseMinutes(args[1])
			if err != nil {
				return err
			}

			msg, err := executor.Run(cmd.Context(), pool, func(ctx context.Context) (string, error) {
				return rpcClient.ChangeBooking(ctx, id, offset)
			})
			if err != nil {
				return err
			}
			fmt.Print(formatter.Format(messageResult{Message: msg}))
			return nil
		},
	}
	monitorCmd = &cobra.Command{
		Use:   "monitor [facility] [interval]",
		Short: "Prints booking updates of a facility for an interval (e.g. 10m)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("interval must be a duration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			msg, err := executor.Run(ctx, pool, func(ctx context.Context) (string, error) {
				msg, updates, err := rpcClient.Monitor(ctx, args[0], interval)
				if err != nil {
					return "", err
				}
				fmt.Println(msg)
				for u := range updates {
					fmt.Print(formatter.Format([]updateRow{{
						Op:             u.Op.String(),
						ConfirmationID: u.ConfirmationID,
						Start:          u.Slot.Start,
						End:            u.Slot.End,
						Message:        u.Message,
					}}))
				}
				return "monitoring ended", nil
			})
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	lastCmd = &cobra.Command{
		Use:   "last [facility]",
		Short: "Prints the end of the latest booking of a facility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := executor.Run(cmd.Context(), pool, func(ctx context.Context) (lastBookingResult, error) {
				last, status, err := rpcClient.LastBookingTime(ctx, args[0])
				return lastBookingResult{Facility: args[0], LastEnd: last, Status: status}, err
			})
			if err != nil {
				return err
			}
			fmt.Print(formatter.Format(res))
			return nil
		},
	}
	extendCmd = &cobra.Command{
		Use:   "extend [confirmation-id] [extension]",
		Short: "Extends a booking (e.g. 30m or minutes)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseConfirmationID(args[0])
			if err != nil {
				return err
			}
			extension, err := parseMinutes(args[1])
			if err != nil {
				return err
			}

			res, err := executor.Run(cmd.Context(), pool, func(ctx context.Context) (extendResult, error) {
				newEnd, msg, err := rpcClient.ExtendBooking(ctx, id, extension)
				return extendResult{NewEnd: newEnd, Message: msg}, err
			})
			if err != nil {
				return err
			}
			fmt.Print(formatter.Format(res))
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Argument parsing
// --------------------------------------------------------------------------

var timeLayouts = []string{time.DateTime, "2006-01-02T15:04", "2006-01-02 15:04", time.DateOnly}

// parseTime accepts Unix seconds or a local date (time)
func parseTime(s string) (time.Time, error) {
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, use unix seconds or %s", s, strings.Join(timeLayouts, ", "))
}

// parseMinutes accepts a duration (30m, -1h30m) or a plain number of minutes
func parseMinutes(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func parseConfirmationID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("confirmation id must be a number: %w", err)
	}
	return uint32(id), nil
}
