// anchorctl is the operator's toolbox: keystore management, carrier codec
// inspection, DID parsing, and read-only index queries.
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/did"
	"github.com/opencura/anchor/index"
	"github.com/opencura/anchor/ledger"
)

func main() {
	app := cli.NewApp()
	app.Name = "anchorctl"
	app.Usage = "inspect and manage an opencura anchor deployment"
	app.Commands = []cli.Command{
		keysCommand(),
		carrierCommand(),
		didCommand(),
		indexCommand(),
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func keysCommand() cli.Command {
	dirFlag := cli.StringFlag{Name: "dir", Usage: "keystore directory (default: ~/.opencura/keys)"}
	return cli.Command{
		Name:  "keys",
		Usage: "manage wallet identities",
		Subcommands: []cli.Command{
			{
				Name:      "init",
				Usage:     "create a named identity with a fresh seed",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					dirFlag,
					cli.StringFlag{Name: "seed", Usage: "hex seed to import instead of generating"},
					cli.BoolFlag{Name: "overwrite", Usage: "replace an existing identity"},
				},
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return cli.NewExitError("identity name required", 1)
					}
					ks, err := custody.NewKeyStore(c.String("dir"))
					if err != nil {
						return err
					}
					var pub []byte
					if seedHex := c.String("seed"); seedHex != "" {
						seed, err := custody.ParseSeedHex(seedHex)
						if err != nil {
							return err
						}
						pub, err = ks.Import(name, seed, c.Bool("overwrite"))
						if err != nil {
							return err
						}
					} else {
						pub, err = ks.Generate(name, c.Bool("overwrite"))
						if err != nil {
							return err
						}
					}
					fmt.Printf("%s\t%s\n", name, base64.StdEncoding.EncodeToString(pub))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list stored identities",
				Flags: []cli.Flag{dirFlag},
				Action: func(c *cli.Context) error {
					ks, err := custody.NewKeyStore(c.String("dir"))
					if err != nil {
						return err
					}
					names, err := ks.List()
					if err != nil {
						return err
					}
					for _, name := range names {
						seed, err := ks.Seed(name)
						if err != nil {
							return err
						}
						pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
						fmt.Printf("%s\t%s\n", name, base64.StdEncoding.EncodeToString(pub))
					}
					return nil
				},
			},
		},
	}
}

func carrierCommand() cli.Command {
	return cli.Command{
		Name:  "carrier",
		Usage: "encode and decode carrier scripts",
		Subcommands: []cli.Command{
			{
				Name:      "encode",
				Usage:     "frame payload bytes (hex) into a carrier script",
				ArgsUsage: "<payload-hex>",
				Action: func(c *cli.Context) error {
					payload, err := hex.DecodeString(c.Args().First())
					if err != nil {
						return err
					}
					script, err := carrier.Encode(payload)
					if err != nil {
						return err
					}
					fmt.Println(hex.EncodeToString(script))
					return nil
				},
			},
			{
				Name:      "decode",
				Usage:     "recover payload bytes from a carrier script (hex)",
				ArgsUsage: "<script-hex>",
				Action: func(c *cli.Context) error {
					script, err := hex.DecodeString(c.Args().First())
					if err != nil {
						return err
					}
					payload, err := carrier.Decode(script)
					if err != nil {
						return err
					}
					fmt.Println(hex.EncodeToString(payload))
					return nil
				},
			},
		},
	}
}

func didCommand() cli.Command {
	return cli.Command{
		Name:      "did",
		Usage:     "parse a DID into its components",
		ArgsUsage: "<did>",
		Action: func(c *cli.Context) error {
			method, topic, op, err := did.ParseDID(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Printf("method\t%s\ntopic\t%s\ntxid\t%s\nvout\t%d\n", method, topic, op.TxID, op.Vout)
			return nil
		},
	}
}

func indexCommand() cli.Command {
	dbFlag := cli.StringFlag{Name: "db", Usage: "index database path", Value: "anchor-index.db"}
	topicFlag := cli.StringFlag{Name: "topic", Usage: "topic to query"}
	return cli.Command{
		Name:  "index",
		Usage: "read-only index queries",
		Subcommands: []cli.Command{
			{
				Name:      "latest",
				Usage:     "show the latest anchor for a serial number",
				ArgsUsage: "<serial>",
				Flags:     []cli.Flag{dbFlag, topicFlag},
				Action: func(c *cli.Context) error {
					ix, err := index.Open(c.String("db"))
					if err != nil {
						return err
					}
					defer ix.Close()
					rec, err := ix.Latest(c.String("topic"), c.Args().First())
					if err != nil {
						return err
					}
					printRecord(rec)
					return nil
				},
			},
			{
				Name:      "anchor",
				Usage:     "show the anchor at an explicit coordinate",
				ArgsUsage: "<txid:vout>",
				Flags:     []cli.Flag{dbFlag, topicFlag},
				Action: func(c *cli.Context) error {
					op, err := ledger.ParseOutpoint(c.Args().First())
					if err != nil {
						return err
					}
					ix, err := index.Open(c.String("db"))
					if err != nil {
						return err
					}
					defer ix.Close()
					rec, err := ix.ByCoordinate(c.String("topic"), op)
					if err != nil {
						return err
					}
					printRecord(rec)
					return nil
				},
			},
		},
	}
}

func printRecord(rec index.Record) {
	fmt.Printf("txid\t%s\nvout\t%d\nserial\t%s\nkind\t%s\nseq\t%d\ntime\t%s\n",
		rec.TxID, rec.Vout, rec.Serial, rec.Kind, rec.Seq, rec.CreatedAt)
	for k, v := range rec.Tags {
		fmt.Printf("tag\t%s=%s\n", k, v)
	}
}
