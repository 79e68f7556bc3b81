// Command airc is the AIRC agent CLI: registration, presence, messaging and
// the v0.2 key-rotation/revocation flows against an AIRC registry.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/brightseth/airc-go/client"
	"github.com/brightseth/airc-go/config"
	"github.com/brightseth/airc-go/identity"
	"github.com/brightseth/airc-go/keys"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "register":
		return cmdRegister(args[1:], out, errOut)
	case "heartbeat":
		return cmdHeartbeat(args[1:], out, errOut)
	case "send":
		return cmdSend(args[1:], out, errOut)
	case "poll":
		return cmdPoll(args[1:], out, errOut)
	case "rotate":
		return cmdRotate(args[1:], out, errOut)
	case "revoke":
		return cmdRevoke(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "airc: AIRC agent CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  airc register [--with-recovery]")
	fmt.Fprintln(w, "  airc heartbeat [--status <s>]")
	fmt.Fprintln(w, "  airc send --to <@handle> --text <message> [--type <t>]")
	fmt.Fprintln(w, "  airc poll [--since <unix>]")
	fmt.Fprintln(w, "  airc rotate")
	fmt.Fprintln(w, "  airc revoke --reason <text>")
	fmt.Fprintln(w, "  airc key init [--with-recovery]")
	fmt.Fprintln(w, "  airc key show")
	fmt.Fprintln(w, "  airc key backup --out <file>")
	fmt.Fprintln(w, "  airc key restore (--in <file> | --mnemonic)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags (every subcommand):")
	fmt.Fprintln(w, "  --config <path>    config file (default <storage root>/config.yaml)")
	fmt.Fprintln(w, "  --name <handle>    agent handle")
	fmt.Fprintln(w, "  --registry <url>   registry base URL")
	fmt.Fprintln(w, "  --sign             sign outbound requests")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - signing keys live under <storage root>/keys (0600 artifacts)")
	fmt.Fprintln(w, "  - recovery keys live under <storage root>/recovery (0400 artifacts)")
	fmt.Fprintln(w, "  - key restore refuses to overwrite an existing recovery key")
}

// commonFlags carries the flags shared by every subcommand.
type commonFlags struct {
	configPath string
	name       string
	registry   string
	sign       bool
}

func addCommonFlags(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.configPath, "config", "", "config file path")
	fs.StringVar(&cf.name, "name", "", "agent handle")
	fs.StringVar(&cf.registry, "registry", "", "registry base URL")
	fs.BoolVar(&cf.sign, "sign", false, "sign outbound requests")
}

// settings resolves config file + flags into the effective configuration.
func (cf *commonFlags) settings(errOut io.Writer) (config.Config, bool) {
	cfg, err := config.Load(cf.configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return config.Config{}, false
	}
	if cf.name != "" {
		cfg.Handle = cf.name
	}
	if cf.registry != "" {
		cfg.Registry = strings.TrimRight(cf.registry, "/")
	}
	if cf.sign {
		cfg.SignRequests = true
	}
	if cfg.Handle == "" {
		fmt.Fprintln(errOut, "an agent handle is required (--name, config file, or AIRC_HANDLE)")
		return config.Config{}, false
	}
	if cfg.StorageRoot == "" {
		fmt.Fprintln(errOut, "a storage root is required (config file or AIRC_STORAGE_ROOT)")
		return config.Config{}, false
	}
	return cfg, true
}

func signingIdentity(cfg config.Config) (*identity.SigningIdentity, error) {
	store, err := keys.NewStore(cfg.SigningKeyDir(), keys.SigningKeyMode)
	if err != nil {
		return nil, err
	}
	return identity.NewSigningIdentity(cfg.Handle, store), nil
}

func recoveryIdentity(cfg config.Config) (*identity.RecoveryIdentity, error) {
	store, err := keys.NewStore(cfg.RecoveryKeyDir(), keys.RecoveryKeyMode)
	if err != nil {
		return nil, err
	}
	return identity.NewRecoveryIdentity(cfg.Handle, store), nil
}

func newClient(cfg config.Config, withRecovery bool, errOut io.Writer) (*client.Client, bool) {
	signing, err := signingIdentity(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return nil, false
	}
	opts := []client.Option{client.WithSignedRequests(cfg.SignRequests)}
	if withRecovery {
		recovery, err := recoveryIdentity(cfg)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return nil, false
		}
		opts = append(opts, client.WithRecovery(recovery))
	}
	return client.New(cfg.Handle, cfg.Registry, signing, opts...), true
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func cmdRegister(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	withRecovery := fs.Bool("with-recovery", false, "create and register a recovery key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	cl, ok := newClient(cfg, *withRecovery, errOut)
	if !ok {
		return 1
	}
	result, err := cl.Register(context.Background())
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printJSON(out, result)
	return 0
}

func cmdHeartbeat(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("heartbeat", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	status := fs.String("status", "available", "presence status")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	cl, ok := newClient(cfg, false, errOut)
	if !ok {
		return 1
	}
	result, err := cl.Heartbeat(context.Background(), *status)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printJSON(out, result)
	return 0
}

func cmdSend(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	to := fs.String("to", "", "recipient handle")
	text := fs.String("text", "", "message text")
	payloadType := fs.String("type", "text", "message type")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *to == "" || *text == "" {
		fmt.Fprintln(errOut, "send requires --to and --text")
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	cl, ok := newClient(cfg, false, errOut)
	if !ok {
		return 1
	}
	result, err := cl.Send(context.Background(), *to, *text, *payloadType)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printJSON(out, result)
	return 0
}

func cmdPoll(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("poll", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	since := fs.Int64("since", 0, "only messages after this unix timestamp")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	cl, ok := newClient(cfg, false, errOut)
	if !ok {
		return 1
	}
	messages, err := cl.Poll(context.Background(), *since)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printJSON(out, messages)
	return 0
}

func cmdRotate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("rotate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	cl, ok := newClient(cfg, true, errOut)
	if !ok {
		return 1
	}
	result, err := cl.RotateKey(context.Background())
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printJSON(out, result)
	return 0
}

func cmdRevoke(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	reason := fs.String("reason", "", "revocation reason")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *reason == "" {
		fmt.Fprintln(errOut, "revoke requires --reason")
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	cl, ok := newClient(cfg, true, errOut)
	if !ok {
		return 1
	}
	result, err := cl.Revoke(context.Background(), *reason)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printJSON(out, result)
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "key requires a subcommand: init, show, backup, restore")
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "show":
		return cmdKeyShow(args[1:], out, errOut)
	case "backup":
		return cmdKeyBackup(args[1:], out, errOut)
	case "restore":
		return cmdKeyRestore(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	withRecovery := fs.Bool("with-recovery", false, "also create a recovery key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	signing, err := signingIdentity(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	outcome, err := signing.EnsureKeypair()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fingerprint, err := signing.Fingerprint()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "signing key %s (%s)\n", outcome, fingerprint)

	if *withRecovery {
		recovery, err := recoveryIdentity(cfg)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		outcome, err := recovery.EnsureKeypair()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fingerprint, err := recovery.Fingerprint()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprintf(out, "recovery key %s (%s)\n", outcome, fingerprint)
	}
	return 0
}

func cmdKeyShow(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key show", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	signing, err := signingIdentity(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if _, err := signing.EnsureKeypair(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	tagged, err := signing.TaggedPublicKey()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fingerprint, err := signing.Fingerprint()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "handle:      %s\n", cfg.Handle)
	fmt.Fprintf(out, "public key:  %s\n", tagged)
	fmt.Fprintf(out, "fingerprint: %s\n", fingerprint)
	return 0
}

func cmdKeyBackup(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key backup", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	outPath := fs.String("out", "", "backup envelope output file")
	showMnemonic := fs.Bool("mnemonic", false, "print the recovery mnemonic instead of writing an envelope")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}
	recovery, err := recoveryIdentity(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if _, err := recovery.EnsureKeypair(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	if *showMnemonic {
		mnemonic, err := recovery.Mnemonic()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprintln(out, mnemonic)
		return 0
	}

	if *outPath == "" {
		fmt.Fprintln(errOut, "key backup requires --out (or --mnemonic)")
		return 2
	}
	passphrase, err := readPassphrase(errOut, "backup passphrase: ")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	env, err := recovery.ExportBackup(passphrase)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := os.WriteFile(*outPath, data, 0o600); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "recovery key backed up to %s\n", *outPath)
	return 0
}

func cmdKeyRestore(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key restore", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	inPath := fs.String("in", "", "backup envelope input file")
	fromMnemonic := fs.Bool("mnemonic", false, "restore from a mnemonic read on stdin")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := cf.settings(errOut)
	if !ok {
		return 2
	}

	var seed []byte
	switch {
	case *fromMnemonic:
		fmt.Fprint(errOut, "mnemonic: ")
		var words []string
		for {
			var w string
			if _, err := fmt.Scan(&w); err != nil {
				break
			}
			words = append(words, w)
			if len(words) == 24 {
				break
			}
		}
		var err error
		seed, err = identity.SeedFromMnemonic(strings.Join(words, " "))
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
	case *inPath != "":
		data, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		var env identity.BackupEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			fmt.Fprintf(errOut, "parsing %s: %v\n", filepath.Base(*inPath), err)
			return 1
		}
		passphrase, err := readPassphrase(errOut, "backup passphrase: ")
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		seed, err = identity.OpenBackup(&env, passphrase)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
	default:
		fmt.Fprintln(errOut, "key restore requires --in or --mnemonic")
		return 2
	}

	store, err := keys.NewStore(cfg.RecoveryKeyDir(), keys.RecoveryKeyMode)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if _, err := store.Import(cfg.Handle, seed); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	recovery := identity.NewRecoveryIdentity(cfg.Handle, store)
	if _, err := recovery.EnsureKeypair(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fingerprint, err := recovery.Fingerprint()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "recovery key restored (%s)\n", fingerprint)
	return 0
}

// readPassphrase prompts without echo when stdin is a terminal, and falls
// back to AIRC_BACKUP_PASSPHRASE for scripted use.
func readPassphrase(errOut io.Writer, prompt string) ([]byte, error) {
	if v := os.Getenv("AIRC_BACKUP_PASSPHRASE"); v != "" {
		return []byte(v), nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, fmt.Errorf("stdin is not a terminal; set AIRC_BACKUP_PASSPHRASE")
	}
	fmt.Fprint(errOut, prompt)
	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(errOut)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("empty passphrase")
	}
	return passphrase, nil
}
