package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/robotalks/mantx/pkg/cli/sh"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/manchester"
	"github.com/robotalks/mantx/pkg/transmitter"
)

func standardFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "standard",
		Aliases: []string{"s"},
		Value:   manchester.IEEE.String(),
		Usage:   "Manchester standard: ieee or thomas",
	}
}

func hexInput(cmd *cli.Command) (manchester.Standard, []byte, error) {
	std, err := manchester.ParseStandard(cmd.String("standard"))
	if err != nil {
		return std, nil, err
	}
	if cmd.Args().Len() == 0 {
		return std, nil, fmt.Errorf("HEX required")
	}
	data, err := sh.ParseHex(cmd.Args().Slice())
	return std, data, err
}

func codecAction(fn func([]byte, manchester.Standard) ([]byte, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		std, data, err := hexInput(cmd)
		if err != nil {
			return err
		}
		out, err := fn(data, std)
		if err != nil {
			return cli.Exit(fmt.Sprintf("%s: %v", manchester.StatusOf(err), err), 1)
		}
		fmt.Println(sh.FormatHex(out))
		return nil
	}
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	_, data, err := hexInput(cmd)
	if err != nil {
		return err
	}
	if err := manchester.Validate(data); err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", manchester.StatusOf(err), err), 1)
	}
	fmt.Println(manchester.StatusOK)
	return nil
}

func waveAction(ctx context.Context, cmd *cli.Command) error {
	std, data, err := hexInput(cmd)
	if err != nil {
		return err
	}
	conf := transmitter.DefaultConfig()
	conf.Standard = std
	if len(data) > conf.MaxPayload {
		conf.MaxPayload = len(data)
	}
	dev, err := sh.NewLocal(conf)
	if err != nil {
		return err
	}
	if err := dev.Transmit(data); err != nil {
		return err
	}
	levels := dev.LastWaveform()
	fmt.Println(line.FormatLevels(levels))
	fmt.Println(line.Waveform(levels))
	return nil
}

func main() {
	app := &cli.Command{
		Name:  "mancodec",
		Usage: "Manchester encode and decode hex bytes",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Aliases:   []string{"e"},
				Usage:     "encode payload bytes",
				ArgsUsage: "HEX",
				Flags:     []cli.Flag{standardFlag()},
				Action:    codecAction(manchester.Encode),
			},
			{
				Name:      "decode",
				Aliases:   []string{"d"},
				Usage:     "decode an encoded frame",
				ArgsUsage: "HEX",
				Flags:     []cli.Flag{standardFlag()},
				Action:    codecAction(manchester.Decode),
			},
			{
				Name:      "validate",
				Usage:     "check a frame only contains valid symbols",
				ArgsUsage: "HEX",
				Action:    validateAction,
			},
			{
				Name:      "wave",
				Aliases:   []string{"w"},
				Usage:     "print the line levels transmitting a payload",
				ArgsUsage: "HEX",
				Flags:     []cli.Flag{standardFlag()},
				Action:    waveAction,
			},
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
