package lzarc

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	units "github.com/docker/go-units"
	"github.com/opencontainers/go-digest"
)

// previewLen is the number of leading bytes shown per entry.
const previewLen = 4

// ListOption configures WriteListing.
type ListOption func(*listConfig)

type listConfig struct {
	byteSizes bool
	digests   bool
}

// ListWithByteSizes prints exact byte counts instead of human-readable sizes.
func ListWithByteSizes(enabled bool) ListOption {
	return func(c *listConfig) {
		c.byteSizes = enabled
	}
}

// ListWithDigests adds a column with the sha256 digest of each entry.
func ListWithDigests(enabled bool) ListOption {
	return func(c *listConfig) {
		c.digests = enabled
	}
}

// WriteListing writes a table of the entries in a to w: size, name, and the
// first bytes of each entry in hex and printable ASCII, followed by a total.
func WriteListing(w io.Writer, a *Archive, opts ...ListOption) error {
	cfg := listConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"SIZE", "NAME", "FIRST BYTES"}
	rule := []string{"--------", "", "---------------"}
	if cfg.digests {
		header = append(header, "DIGEST")
		rule = append(rule, "")
	}
	writeRow(tw, header...)

	for _, e := range a.Entries {
		row := []string{cfg.size(uint64(len(e.Data))), e.Name, preview(e.Data)}
		if cfg.digests {
			row = append(row, digest.FromBytes(e.Data).String())
		}
		writeRow(tw, row...)
	}

	writeRow(tw, rule...)
	writeRow(tw, cfg.size(a.TotalSize()), "", fmt.Sprintf("%d file(s)", a.Len()))
	return tw.Flush()
}

func (c listConfig) size(n uint64) string {
	if c.byteSizes {
		return strconv.FormatUint(n, 10)
	}
	return units.BytesSize(float64(n))
}

func writeRow(w io.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

// preview renders up to previewLen leading bytes as "48656C6C | Hell".
func preview(data []byte) string {
	data = data[:min(len(data), previewLen)]
	var hex, text strings.Builder
	for _, b := range data {
		fmt.Fprintf(&hex, "%02X", b)
		if b >= ' ' && b <= '~' {
			text.WriteByte(b)
		} else {
			text.WriteByte('.')
		}
	}
	return hex.String() + " | " + text.String()
}
