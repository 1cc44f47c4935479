// Package main generates a vault service certificate bundle: a CA, a
// server certificate and optional owner client certificates.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli"

	"github.com/atinyakov/vaultkeeper/internal/certgen"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "certgen"
	app.Usage = "generate the vaultkeeper CA, server and client certificates"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "dir", Value: "certs", Usage: "output directory"},
		cli.StringSliceFlag{Name: "host", Usage: "server host name or IP (default localhost)"},
		cli.StringSliceFlag{Name: "client", Usage: "owner to issue a client certificate for"},
	}
	app.Action = run
	return app
}

func run(c *cli.Context) error {
	dir := c.String("dir")
	hosts := c.StringSlice("host")
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}

	created, err := certgen.EnsureBundle(dir, hosts)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(c.App.Writer, "bundle written to %s\n", dir)
	}

	clients := c.StringSlice("client")
	if len(clients) == 0 {
		return nil
	}
	caCert, caKey, err := certgen.LoadCA(dir)
	if err != nil {
		return err
	}
	for _, name := range clients {
		if err := tenant.ID(name).Validate(); err != nil {
			return fmt.Errorf("client %q: %w", name, err)
		}
		certPEM, keyPEM, err := certgen.IssueClientCertificate(name, caCert, caKey)
		if err != nil {
			return err
		}
		if err := certgen.WritePair(dir, name+".crt", name+".key", certPEM, keyPEM); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "client certificate for %s written\n", name)
	}
	return nil
}
