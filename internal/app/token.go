package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"

	"bridge-wrapped/internal/bridge"
)

// Token resolves metadata for the given contract addresses in one batch.
func (a *App) Token(ctx context.Context, out io.Writer, addresses []string) error {
	if len(addresses) == 0 {
		return fmt.Errorf("at least one token address is required")
	}

	canonical := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid token address %q", addr)
		}
		canonical = append(canonical, bridge.CanonicalAddress(addr))
	}

	resolved := a.newResolver(nil).ResolveMany(ctx, canonical)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Address\tSymbol\tName\tDecimals")
	for _, addr := range canonical {
		info, ok := resolved[addr]
		if !ok {
			fmt.Fprintf(w, "%s\t-\tunresolved\t-\n", addr)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", addr, info.Symbol, sanitizeInline(info.Name), info.Decimals)
	}
	return w.Flush()
}
