// Command dcv runs one validation prepare or validate step from the
// command line, printing the result as JSON. It exists for manual
// checks against live DNS and web servers; the library is the product.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/synqronlabs/dcv"
	"github.com/synqronlabs/dcv/dns"
)

type options struct {
	Domain      string   `short:"d" long:"domain" description:"Domain to validate" required:"true"`
	Method      string   `short:"m" long:"method" description:"Validation method" choice:"dns" choice:"file" choice:"email" default:"dns"`
	RecordType  string   `long:"record-type" description:"DNS record type" choice:"TXT" choice:"CNAME" choice:"CAA" default:"TXT"`
	EmailSource string   `long:"email-source" description:"Email contact discovery source" choice:"constructed" choice:"dns_caa" choice:"dns_txt" choice:"whois" default:"constructed"`
	Servers     []string `short:"s" long:"server" description:"DNS server (host:port), repeatable"`
	Timeout     int      `short:"t" long:"timeout" description:"Overall run timeout in seconds" default:"30"`
	Validate    bool     `long:"validate" description:"Run the validate step instead of prepare"`
	RandomValue string   `long:"random-value" description:"Prepared random value (with --validate)"`
	State       string   `long:"state" description:"State JSON printed by prepare (with --validate)"`
	Body        string   `long:"body" description:"Mail reply body (email method, with --validate)"`
	Address     string   `long:"address" description:"Contact address the challenge was mailed to (email method)"`
	Debug       bool     `long:"debug" description:"Enable debug logging"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engine, err := dcv.New().
		DNSServers(opts.Servers...).
		Logger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.Timeout)*time.Second)
	defer cancel()

	var out any
	var errs dcv.ErrorSet

	switch {
	case opts.Method == "dns" && !opts.Validate:
		out, errs = engine.DNS().Prepare(ctx, dcv.DNSPreparationRequest{
			Domain:        opts.Domain,
			RecordType:    dns.Type(opts.RecordType),
			ChallengeType: dcv.ChallengeRandomValue,
		})
	case opts.Method == "dns":
		out, errs = engine.DNS().Validate(ctx, dcv.DNSValidationRequest{
			Domain:        opts.Domain,
			RecordType:    dns.Type(opts.RecordType),
			ChallengeType: dcv.ChallengeRandomValue,
			RandomValue:   opts.RandomValue,
			State:         parseState(opts.State),
		})
	case opts.Method == "file" && !opts.Validate:
		out, errs = engine.File().Prepare(ctx, dcv.FilePreparationRequest{
			Domain:        opts.Domain,
			ChallengeType: dcv.ChallengeRandomValue,
		})
	case opts.Method == "file":
		out, errs = engine.File().Validate(ctx, dcv.FileValidationRequest{
			Domain:        opts.Domain,
			ChallengeType: dcv.ChallengeRandomValue,
			RandomValue:   opts.RandomValue,
			State:         parseState(opts.State),
		})
	case opts.Method == "email" && !opts.Validate:
		out, errs = engine.Email().Prepare(ctx, dcv.EmailPreparationRequest{
			Domain: opts.Domain,
			Source: dcv.EmailSource(opts.EmailSource),
		})
	case opts.Method == "email":
		out, errs = engine.Email().Validate(ctx, dcv.EmailValidationRequest{
			Domain:       opts.Domain,
			EmailAddress: opts.Address,
			RandomValue:  opts.RandomValue,
			Body:         opts.Body,
			State:        parseState(opts.State),
		})
	}

	if errs != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", errs)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseState(raw string) dcv.ValidationState {
	var state dcv.ValidationState
	if raw == "" {
		return state
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad --state JSON: %v\n", err)
		os.Exit(1)
	}
	return state
}
