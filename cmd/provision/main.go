package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/iliyamo/library-seat-reservation/internal/bootstrap"
	"github.com/iliyamo/library-seat-reservation/internal/config"
	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/model"
)

var flagFloors *cli.IntFlag = &cli.IntFlag{
	Name:  "floors",
	Value: 5,
	Usage: "Number of floors to lay out",
}
var flagRows *cli.IntFlag = &cli.IntFlag{
	Name:  "rows",
	Value: 10,
	Usage: "Rows per floor (A, B, ... Z, AA, ...)",
}
var flagCols *cli.IntFlag = &cli.IntFlag{
	Name:  "cols",
	Value: 10,
	Usage: "Seats per row",
}
var flagSeat *cli.StringFlag = &cli.StringFlag{
	Name:     "seat",
	Usage:    "Seat id to release, e.g. 3F-B12",
	Required: true,
}

func main() {
	app := &cli.App{
		Name:  "provision",
		Usage: "seat inventory maintenance for the library reservation store",
		Commands: []*cli.Command{
			{
				Name:        "seed",
				Usage:       "create missing seats for a floors x rows x cols layout",
				Description: "Existing seats are left untouched, so seeding twice is harmless.",
				Flags:       []cli.Flag{flagFloors, flagRows, flagCols},
				Action: withApp(func(cCtx *cli.Context, app *bootstrap.App) error {
					floors, rows, cols := cCtx.Int(flagFloors.Name), cCtx.Int(flagRows.Name), cCtx.Int(flagCols.Name)
					if floors <= 0 || rows <= 0 || cols <= 0 {
						return errors.New("floors, rows and cols must be positive")
					}
					if rows > 26*27 {
						return fmt.Errorf("at most %d rows are addressable", 26*27)
					}
					seats := model.FloorLayout(floors, rows, cols, time.Now().UTC())
					created, err := app.Seats.Provision(cCtx.Context, seats)
					if err != nil {
						return err
					}
					fmt.Printf("created %d of %d seats\n", created, len(seats))
					return nil
				}),
			},
			{
				Name:  "release",
				Usage: "force a seat back to available",
				Flags: []cli.Flag{flagSeat},
				Action: withApp(func(cCtx *cli.Context, app *bootstrap.App) error {
					seatID := cCtx.String(flagSeat.Name)
					if !model.IsSeatID(seatID) {
						return fmt.Errorf("%w: %q", model.ErrInvalidSeatID, seatID)
					}
					if err := app.Seats.Release(cCtx.Context, seatID, time.Now().UTC()); err != nil {
						return err
					}
					fmt.Printf("released %s\n", seatID)
					return nil
				}),
			},
			{
				Name:  "sweep",
				Usage: "run one expiry pass and exit",
				Action: withApp(func(cCtx *cli.Context, app *bootstrap.App) error {
					report, err := app.Service.ExpireReservations(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Printf("marked %d expiring, released %d\n", report.MarkedExpiring, len(report.Released))
					return nil
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, opens the stores and hands them to action.
func withApp(action func(*cli.Context, *bootstrap.App) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.New(logger.Config{Level: cfg.LogLevel, Format: logger.TEXT, Output: os.Stderr})

		ctx, cancel := context.WithTimeout(cCtx.Context, time.Minute)
		defer cancel()
		cCtx.Context = ctx

		app, err := bootstrap.Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()
		return action(cCtx, app)
	}
}
