// Command client is a command line client of the vault server.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
)

// set by the linker: go build -ldflags "-X main.version=M.N -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

type metadata struct {
	baseURL  string
	certFile string
	keyFile  string
	caFile   string
	w        io.Writer
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vaultkeeper"
	app.Usage = "store and sync encrypted vaults"
	app.Version = fmt.Sprintf("%s (built %s)", version, buildDate)

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "url, u", Value: "https://localhost:8080", Usage: " server base `URL`"},
		cli.StringFlag{Name: "cert", Value: "client.crt", Usage: " client certificate `FILE`"},
		cli.StringFlag{Name: "key", Value: "client.key", Usage: " client key `FILE`"},
		cli.StringFlag{Name: "ca", Value: "certs/ca.crt", Usage: " CA certificate `FILE`"},
	}

	vaultFlag := cli.StringFlag{Name: "vault, v", Usage: "*vault `ID` (base58)"}
	app.Commands = []cli.Command{
		{
			Name:      "register",
			Usage:     "register an owner and save its client certificate",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "login, l", Usage: "*owner `NAME`"},
				cli.StringFlag{Name: "dir, d", Value: ".", Usage: " output `DIR` for the certificate and key"},
			},
			Action: runRegister,
		},
		{
			Name:   "login",
			Usage:  "check that the client certificate is accepted",
			Action: runLogin,
		},
		{
			Name:  "vault",
			Usage: "manage vaults",
			Subcommands: []cli.Command{
				{
					Name:   "new",
					Usage:  "create a named vault with a fresh identifier",
					Flags:  []cli.Flag{cli.StringFlag{Name: "name, n", Usage: "*vault `NAME`"}},
					Action: runVaultNew,
				},
				{
					Name:   "rename",
					Usage:  "rename a vault; an empty name removes it from the list",
					Flags:  []cli.Flag{vaultFlag, cli.StringFlag{Name: "name, n", Usage: " vault `NAME`"}},
					Action: runVaultRename,
				},
				{
					Name:   "names",
					Usage:  "list vault names",
					Action: runVaultNames,
				},
				{
					Name:   "get",
					Usage:  "print the content of a vault",
					Flags:  []cli.Flag{vaultFlag},
					Action: runVaultGet,
				},
				{
					Name:   "all",
					Usage:  "print every named vault",
					Action: runVaultAll,
				},
				{
					Name:   "delete",
					Usage:  "delete a vault",
					Flags:  []cli.Flag{vaultFlag},
					Action: runVaultDelete,
				},
				{
					Name:   "purge",
					Usage:  "delete every named vault",
					Action: runVaultPurge,
				},
			},
		},
		{
			Name:  "cell",
			Usage: "edit spreadsheet or login cells",
			Subcommands: []cli.Command{
				{
					Name:  "set",
					Usage: "set a cell; empty data deletes it",
					Flags: []cli.Flag{
						vaultFlag,
						cli.UintFlag{Name: "x", Usage: " column"},
						cli.UintFlag{Name: "y", Usage: " row"},
						cli.StringFlag{Name: "data, d", Usage: " cell `PAYLOAD`"},
						cli.BoolFlag{Name: "login", Usage: " target login cells"},
					},
					Action: runCellSet,
				},
				{
					Name:  "delete",
					Usage: "delete a cell",
					Flags: []cli.Flag{
						vaultFlag,
						cli.UintFlag{Name: "x", Usage: " column"},
						cli.UintFlag{Name: "y", Usage: " row"},
						cli.BoolFlag{Name: "login", Usage: " target login cells"},
					},
					Action: runCellDelete,
				},
			},
		},
		{
			Name:  "column",
			Usage: "edit column metadata",
			Subcommands: []cli.Command{
				{
					Name:  "label",
					Usage: "label a login column; an empty label deletes the column and its cells",
					Flags: []cli.Flag{
						vaultFlag,
						cli.UintFlag{Name: "x", Usage: " column"},
						cli.StringFlag{Name: "label, l", Usage: " column `LABEL`"},
					},
					Action: runColumnLabel,
				},
				{
					Name:  "info",
					Usage: "set spreadsheet column display settings",
					Flags: []cli.Flag{
						vaultFlag,
						cli.UintFlag{Name: "x", Usage: " column"},
						cli.StringFlag{Name: "name, n", Usage: " column `NAME`; empty removes the settings"},
						cli.BoolFlag{Name: "hidden", Usage: " hide the column"},
					},
					Action: runColumnInfo,
				},
			},
		},
		{
			Name:  "note",
			Usage: "edit secure notes",
			Subcommands: []cli.Command{
				{
					Name:  "set",
					Usage: "set a note; an empty label deletes it",
					Flags: []cli.Flag{
						vaultFlag,
						cli.UintFlag{Name: "index, i", Usage: " note index"},
						cli.StringFlag{Name: "label, l", Usage: " note `LABEL`"},
						cli.StringFlag{Name: "body, b", Usage: " note `BODY`"},
					},
					Action: runNoteSet,
				},
			},
		},
		{
			Name:  "key",
			Usage: "manage the owner key",
			Subcommands: []cli.Command{
				{
					Name:  "derive",
					Usage: "derive the owner key, sealed to a transport public key",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "scope, s", Value: "owner", Usage: " `SCOPE` [instance|owner|org]"},
						cli.StringFlag{Name: "scope-id", Usage: " owner or organization `ID`"},
						cli.StringFlag{Name: "input, i", Usage: " derivation `INPUT`"},
						cli.StringFlag{Name: "transport, t", Usage: "*X25519 public key `HEX`"},
					},
					Action: runKeyDerive,
				},
				{
					Name:   "get",
					Usage:  "print the stored key blob",
					Action: runKeyGet,
				},
			},
		},
	}

	app.Before = func(c *cli.Context) error {
		c.App.Metadata["config"] = &metadata{
			baseURL:  c.GlobalString("url"),
			certFile: c.GlobalString("cert"),
			keyFile:  c.GlobalString("key"),
			caFile:   c.GlobalString("ca"),
			w:        c.App.Writer,
		}
		return nil
	}
	return app
}
