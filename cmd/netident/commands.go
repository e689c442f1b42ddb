package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/abczzz13/netident"
)

// minExpandPrefix bounds expand output to 65536 addresses.
const minExpandPrefix = 16

func (a *app) check(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: check requires an IP address", errUsage)
	}

	ip := args[0]
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	var undetermined bool
	for _, name := range a.listNames(args[1:]) {
		ok, err := a.provider.IsMember(ctx, ip, name)
		if err != nil {
			if errors.Is(err, netident.ErrUnknownList) {
				return fmt.Errorf("%w: %w", errUsage, err)
			}
			a.logger.Error("membership check failed", "list", name, "ip", ip, "error", err)
			fmt.Fprintf(tw, "%s\t%s\n", name, "unknown")
			undetermined = true
			continue
		}
		fmt.Fprintf(tw, "%s\t%t\n", name, ok)
	}

	if undetermined {
		return errUndetermined
	}
	return nil
}

func (a *app) refresh(ctx context.Context, args []string) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	var errs []error
	for _, name := range a.listNames(args) {
		entries, err := a.provider.Refresh(ctx, name)
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(tw, "%s\tfailed\n", name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d entries\n", name, len(entries))
	}

	return errors.Join(errs...)
}

func (a *app) invalidate(ctx context.Context, args []string) error {
	for _, name := range a.listNames(args) {
		if err := a.provider.Invalidate(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\tinvalidated\n", name)
	}
	return nil
}

func (a *app) expand(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expand requires exactly one CIDR", errUsage)
	}

	spec, err := netident.ParseCIDRSpec(args[0])
	if err != nil {
		return err
	}
	if bits := spec.PrefixLen(netident.FamilyV4); bits < minExpandPrefix {
		return fmt.Errorf("%w: /%d expands to more than 2^%d addresses, use /%d or longer",
			errUsage, bits, 32-minExpandPrefix, minExpandPrefix)
	}

	addrs, err := netident.Enumerate(spec.String())
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		fmt.Fprintln(a.out, addr)
	}
	return nil
}

func (a *app) resolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(a.out)

	var rc netident.RequestContext
	var forwardedFor string
	fs.StringVar(&rc.PeerAddr, "peer", "", "directly connected peer address")
	fs.StringVar(&rc.CFConnectingIP, "cf-connecting-ip", "", "CF-Connecting-IP header value")
	fs.StringVar(&rc.CDNLoop, "cdn-loop", "", "CDN-Loop header value")
	fs.StringVar(&rc.XRealIP, "x-real-ip", "", "X-Real-IP header value")
	fs.StringVar(&forwardedFor, "x-forwarded-for", "", "X-Forwarded-For header value")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if forwardedFor != "" {
		rc.XForwardedFor = []string{forwardedFor}
	}
	rc.Context = ctx

	resolver, err := netident.NewResolver(a.provider, a.resolverOptions()...)
	if err != nil {
		return err
	}

	identity := resolver.Resolve(rc)
	fmt.Fprintf(a.out, "%s\t%s", identity.IP, identity.Source)
	if identity.Fallback {
		fmt.Fprintf(a.out, "\tfallback from %q", identity.Raw)
	}
	fmt.Fprintln(a.out)

	return nil
}
