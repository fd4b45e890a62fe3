package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/kong"

	"github.com/Alia5/blemouse/apiclient"
)

// Ctl talks to a running peripheral over the control API. The client built
// from its flags is bound for the subcommands.
type Ctl struct {
	Addr     string        `help:"API server address" default:"127.0.0.1:3243" env:"BLEMOUSE_API_ADDR"`
	Password string        `help:"API password, read from the key file when empty" default:"" env:"BLEMOUSE_API_PASSWORD"`
	KeyFile  string        `help:"API password file" default:"" env:"BLEMOUSE_KEY_FILE"`
	Timeout  time.Duration `help:"Request timeout" default:"5s"`

	Ping    CtlPing    `cmd:"" help:"Check that the server is reachable"`
	Status  CtlStatus  `cmd:"" help:"Show advertising, clients and queue state"`
	Clients CtlClients `cmd:"" help:"List connected clients"`
	Bonds   CtlBonds   `cmd:"" help:"List bonded peers"`
	Pairing CtlPairing `cmd:"" help:"Inspect and answer pairing requests"`
	Move    CtlMove    `cmd:"" help:"Move the pointer of every client"`
	Press   CtlPress   `cmd:"" help:"Report a button mask"`
	Media   CtlMedia   `cmd:"" help:"Report a consumer control key mask"`
}

func (c *Ctl) AfterApply(kctx *kong.Context) error {
	pwd := c.Password
	if pwd == "" {
		pwd = readKey(c.KeyFile)
	}
	client := apiclient.NewWithConfig(c.Addr, &apiclient.Config{
		DialTimeout:  c.Timeout,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
		Password:     pwd,
	})
	kctx.Bind(client)
	kctx.BindTo(kctx.Stdout, (*io.Writer)(nil))
	return nil
}

func printJSON(w io.Writer, v any, err error) error {
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

type CtlPing struct{}

func (c *CtlPing) Run(client *apiclient.Client, w io.Writer) error {
	resp, err := client.Ping()
	return printJSON(w, resp, err)
}

type CtlStatus struct{}

func (c *CtlStatus) Run(client *apiclient.Client, w io.Writer) error {
	resp, err := client.Status()
	return printJSON(w, resp, err)
}

type CtlClients struct{}

func (c *CtlClients) Run(client *apiclient.Client, w io.Writer) error {
	resp, err := client.Clients()
	return printJSON(w, resp, err)
}

type CtlBonds struct{}

func (c *CtlBonds) Run(client *apiclient.Client, w io.Writer) error {
	resp, err := client.Bonds()
	return printJSON(w, resp, err)
}

type CtlPairing struct {
	List   CtlPairingList    `cmd:"" default:"1" help:"List pending requests, head first"`
	Accept CtlPairingResolve `cmd:"" help:"Accept the request at the head of the queue"`
	Reject CtlPairingResolve `cmd:"" help:"Reject the request at the head of the queue"`
}

type CtlPairingList struct{}

func (c *CtlPairingList) Run(client *apiclient.Client, w io.Writer) error {
	resp, err := client.Pairing()
	return printJSON(w, resp, err)
}

type CtlPairingResolve struct{}

func (c *CtlPairingResolve) Run(kctx *kong.Context, client *apiclient.Client, w io.Writer) error {
	accept := kctx.Selected().Name == "accept"
	resp, err := client.ResolvePairing(accept)
	return printJSON(w, resp, err)
}

type CtlMove struct {
	DX int16 `arg:"" name:"dx" help:"Horizontal delta, negative moves left"`
	DY int16 `arg:"" name:"dy" help:"Vertical delta, negative moves up"`
}

func (c *CtlMove) Run(client *apiclient.Client) error { return client.Move(c.DX, c.DY) }

type CtlPress struct {
	Buttons uint8 `arg:"" help:"Button mask, bit 0 is the left button"`
}

func (c *CtlPress) Run(client *apiclient.Client) error { return client.Press(c.Buttons) }

type CtlMedia struct {
	Keys uint8 `arg:"" help:"Consumer control key mask"`
}

func (c *CtlMedia) Run(client *apiclient.Client) error { return client.Media(c.Keys) }
