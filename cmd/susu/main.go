package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	susu "github.com/susuprotocol/susu-go"
	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/log"
)

func main() {
	app := cli.NewApp()
	app.Name = "susu"
	app.Usage = "inspect susu circles and marketplace state from the command line"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "api.host",
			Value: "127.0.0.1",
			Usage: "ledger API host",
		},
		cli.UintFlag{
			Name:  "api.port",
			Value: 3999,
			Usage: "ledger API port",
		},
		cli.BoolFlag{
			Name:  "api.https",
			Usage: "use HTTPS for ledger API calls",
		},
		cli.StringFlag{
			Name:  "contract",
			Value: "SP000000000000000000002Q6VF78",
			Usage: "principal of the circle contract",
		},
		cli.StringFlag{
			Name:  "contract.name",
			Value: "susu-circles",
			Usage: "name of the circle contract",
		},
		cli.StringFlag{
			Name:  "sender",
			Value: "SP000000000000000000002Q6VF78",
			Usage: "sender principal for read-only calls",
		},
		cli.StringFlag{
			Name:  "loglevel",
			Value: "info",
			Usage: "minimum log level",
		},
	}

	app.Before = func(c *cli.Context) error {
		log.SetWriter("console", zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		log.SetLevel(c.String("loglevel"))
		return nil
	}

	app.Commands = []cli.Command{
		{
			Name:      "circle",
			Usage:     "show one circle's state and payout schedule",
			ArgsUsage: "<circle-id>",
			Action:    cmdCircle,
		},
		{
			Name:      "scan",
			Usage:     "scan the newest marketplace listings",
			ArgsUsage: "[limit]",
			Action:    cmdScan,
		},
		{
			Name:      "floor",
			Usage:     "show a circle's floor price",
			ArgsUsage: "<circle-id>",
			Action:    cmdFloor,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEngine(c *cli.Context) (*susu.Engine, error) {
	client, err := gateway.NewClient(gateway.Config{
		APIHost:           c.GlobalString("api.host"),
		APIPort:           uint16(c.GlobalUint("api.port")),
		UseHTTPS:          c.GlobalBool("api.https"),
		ContractPrincipal: c.GlobalString("contract"),
		ContractName:      c.GlobalString("contract.name"),
	})
	if err != nil {
		return nil, err
	}

	return susu.NewEngine(susu.EngineConfig{
		Ledger: client,
		Sender: c.GlobalString("sender"),
	}), nil
}

func circleIDArg(c *cli.Context) (uint64, error) {
	if c.NArg() < 1 {
		return 0, cli.NewExitError("missing circle id", 1)
	}

	var id uint64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil {
		return 0, cli.NewExitError("circle id must be numeric", 1)
	}

	return id, nil
}

func cmdCircle(c *cli.Context) error {
	id, err := circleIDArg(c)
	if err != nil {
		return err
	}

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	circle, err := engine.Circles.Get(ctx, id, true)
	if err != nil {
		return err
	}

	if circle == nil {
		return cli.NewExitError(fmt.Sprintf("circle %d not found", id), 1)
	}

	fmt.Printf("%s (#%d)\n", circle.Name, circle.ID)
	fmt.Printf("  status:       %s\n", circle.Status)
	fmt.Printf("  members:      %d/%d\n", circle.CurrentMembers, circle.MaxMembers)
	fmt.Printf("  round:        %d\n", circle.CurrentRound)
	fmt.Printf("  contribution: %d\n", circle.Contribution)
	fmt.Printf("  frequency:    %s\n", circle.Frequency)

	members, err := engine.Circles.Members(ctx, id)
	if err != nil || len(members) == 0 {
		return nil
	}

	height, err := engine.Ledger.BlockHeight(ctx)
	if err != nil {
		return nil
	}

	fmt.Println("  schedule:")
	for _, slot := range susu.Schedule(members, circle.CurrentRound, circle.PayoutInterval, circle.StartBlock) {
		marker := " "
		if slot.IsCurrent {
			marker = "*"
		}

		fmt.Printf("  %s slot %d  %s  payout@%d (in %s)\n",
			marker, slot.Member.Slot, slot.Member.Address,
			slot.PayoutBlock, slot.TimeToPayout(height))
	}

	return nil
}

func cmdScan(c *cli.Context) error {
	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	limit := conf.GetScanDefaultSpan()
	if c.NArg() > 0 {
		fmt.Sscanf(c.Args().First(), "%d", &limit)
	}

	last, err := engine.Scanner.LastTokenID(ctx)
	if err != nil {
		return err
	}

	tokens, err := engine.Scanner.ScanListings(ctx, last, limit)
	if err != nil {
		return err
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Price < tokens[j].Price })

	for _, token := range tokens {
		fmt.Printf("token %d  circle %d  slot %d  price %d  seller %s\n",
			token.ID, token.CircleID, token.Slot, token.Price, token.Seller)
	}

	if len(tokens) == 0 {
		fmt.Println("no active listings")
	}

	return nil
}

func cmdFloor(c *cli.Context) error {
	id, err := circleIDArg(c)
	if err != nil {
		return err
	}

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	price, listed, err := engine.Scanner.FloorPrice(context.Background(), id)
	if err != nil {
		return err
	}

	if !listed {
		fmt.Printf("circle %d has no active listings\n", id)
		return nil
	}

	fmt.Printf("circle %d floor price: %d\n", id, price)
	return nil
}
