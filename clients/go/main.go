// Messenger CLI - command line client for a messenger node
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/eldtechnologies/messenger/clients/go/messenger"
)

func main() {
	p := arg.MustParse(&args)
	if args.Command == "" {
		p.WriteHelp(os.Stdout)
		usage()
		os.Exit(1)
	}

	client := messenger.NewClient(args.URL)
	if args.Config != "" {
		client.ConfigDir = args.Config
		_ = client.LoadConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch args.Command {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "keygen":
		exitOnError(client.GenerateKeypair())
		exitOnError(client.SaveConfig())
		key, err := client.EncryptionKey()
		exitOnError(err)
		fmt.Printf("Identity:       %s\n", client.Identity())
		fmt.Printf("Encryption key: %s\n", key)

	case "whoami":
		requireIdentity(client)
		fmt.Println(client.Identity())

	case "config":
		resp, err := client.Config(ctx)
		exitOnError(err)
		printJSON(resp)

	case "init-config":
		requireArgs("init-config <fee_vault> <protocol_fee>", 2)
		requireIdentity(client)
		resp, err := client.InitializeConfig(ctx, args.Args[0], parseUint(args.Args[1]))
		exitOnError(err)
		printJSON(resp)

	case "set-protocol-fee":
		requireArgs("set-protocol-fee <lamports>", 1)
		requireIdentity(client)
		fee := parseUint(args.Args[0])
		resp, err := client.UpdateConfig(ctx, nil, &fee)
		exitOnError(err)
		printJSON(resp)

	case "set-fee-vault":
		requireArgs("set-fee-vault <address>", 1)
		requireIdentity(client)
		resp, err := client.UpdateConfig(ctx, &args.Args[0], nil)
		exitOnError(err)
		printJSON(resp)

	case "register":
		requireIdentity(client)
		resp, err := client.Register(ctx)
		exitOnError(err)
		fmt.Printf("Registered at: %s\n", resp.Address)

	case "lookup":
		requireArgs("lookup <identity>", 1)
		resp, err := client.Registry(ctx, args.Args[0])
		exitOnError(err)
		if resp == nil {
			fmt.Println("not registered")
			return
		}
		printJSON(resp.Registry)

	case "rotate-key":
		requireArgs("rotate-key <encryption_key>", 1)
		requireIdentity(client)
		resp, err := client.UpdateEncryptionKey(ctx, args.Args[0])
		exitOnError(err)
		printJSON(resp.Registry)

	case "set-min-fee":
		requireArgs("set-min-fee <lamports>", 1)
		requireIdentity(client)
		resp, err := client.SetMinFee(ctx, parseUint(args.Args[0]))
		exitOnError(err)
		printJSON(resp.Registry)

	case "deregister":
		requireIdentity(client)
		resp, err := client.Deregister(ctx)
		exitOnError(err)
		fmt.Printf("Deregistered: %s\n", resp.TxID)

	case "balance":
		address := client.Identity()
		if len(args.Args) > 0 {
			address = args.Args[0]
		}
		resp, err := client.Account(ctx, address)
		exitOnError(err)
		fmt.Printf("%s: %d lamports\n", resp.Address, resp.Lamports)

	case "airdrop":
		requireArgs("airdrop <lamports> [address]", 1)
		address := client.Identity()
		if len(args.Args) > 1 {
			address = args.Args[1]
		}
		resp, err := client.Airdrop(ctx, address, parseUint(args.Args[0]))
		exitOnError(err)
		fmt.Printf("%s: %d lamports\n", resp.Address, resp.Lamports)

	case "send":
		requireArgs("send <recipient> <message>", 2)
		requireIdentity(client)
		resp, err := client.Send(ctx, args.Args[0], []byte(strings.Join(args.Args[1:], " ")))
		exitOnError(err)
		fmt.Printf("Sent: %s\n", resp.TxID)

	case "open":
		requireArgs("open <event.json>", 1)
		requireIdentity(client)
		data, err := os.ReadFile(args.Args[0])
		exitOnError(err)
		var ev messenger.Event
		exitOnError(json.Unmarshal(data, &ev))
		pt, err := client.Decrypt(ev)
		exitOnError(err)
		ts := time.Unix(ev.Timestamp, 0).Format("2006-01-02 15:04:05")
		fmt.Printf("[%s] %s: %s\n", ts, ev.Sender, pt)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args.Command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`
Commands:
  keygen                              Generate and save a new identity
  whoami                              Print the saved identity
  health                              Check node health
  config                              Show platform config
  init-config <vault> <fee>           Initialize platform config
  set-protocol-fee <lamports>         Update protocol fee (authority)
  set-fee-vault <address>             Update fee vault (authority)
  register                            Publish your encryption key
  lookup <identity>                   Show an identity's registry
  rotate-key <key>                    Replace your encryption key
  set-min-fee <lamports>              Set your inbound message fee
  deregister                          Remove your registry
  balance [address]                   Show a balance
  airdrop <lamports> [address]        Request development funds
  send <recipient> <message>          Encrypt and relay a message
  open <event.json>                   Decrypt a received event`)
}

func requireArgs(syntax string, n int) {
	if len(args.Args) < n {
		fmt.Fprintln(os.Stderr, "Usage: messenger "+syntax)
		os.Exit(1)
	}
}

func requireIdentity(client *messenger.Client) {
	if client.PrivateKey == nil {
		fmt.Fprintln(os.Stderr, "No identity found. Run: messenger keygen")
		os.Exit(1)
	}
}

func parseUint(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	exitOnError(err)
	return n
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
