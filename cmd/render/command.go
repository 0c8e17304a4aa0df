// Package render prints stored note or chat content to the terminal, with
// citation markers and the citation list underneath.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/insightslm/insightslm/pkg/content"
)

type Options struct {
	File  string
	Mode  string
	Width int
	// Stored reads the note column format, where plain text is not JSON encoded.
	Stored bool
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.File, "file", "f", "-", "content file, - for stdin")
	flagSet.StringVarP(&o.Mode, "mode", "m", "block", "block or inline")
	flagSet.IntVarP(&o.Width, "width", "w", 80, "wrap width, 0 disables wrapping")
	flagSet.BoolVar(&o.Stored, "stored", false, "input is a stored note body")
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "render note content in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options, stdin io.Reader, out io.Writer) error {
	raw, err := read(opts.File, stdin)
	if err != nil {
		return err
	}

	var c content.Content
	if opts.Stored {
		c = content.Decode(string(raw))
	} else {
		c = content.Parse(json.RawMessage(raw))
	}

	doc := content.Render(c, content.ParseMode(opts.Mode))
	fmt.Fprintln(out, doc.Terminal(opts.Width))

	markers := doc.Markers()
	if len(markers) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	for _, m := range markers {
		line := fmt.Sprintf("[%d] %s", m.Ordinal, m.Citation.SourceTitle)
		if from, to, ok := m.Citation.LineBounds(); ok {
			line += fmt.Sprintf(" (lines %d-%d)", from, to)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func read(file string, stdin io.Reader) ([]byte, error) {
	if file == "" || file == "-" {
		raw, err := io.ReadAll(stdin)
		return []byte(strings.TrimSpace(string(raw))), err
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimSpace(string(raw))), nil
}
