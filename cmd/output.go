package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/supersonic-app/trackplayer-bridge/backend/ipc"
	"golang.org/x/term"
)

// readJSONArg decodes a JSON object given inline, as @path, or as @- for stdin.
func readJSONArg(arg string, stdin io.Reader) (map[string]any, error) {
	var data []byte
	switch {
	case arg == "@-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		data = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
		data = b
	default:
		data = []byte(arg)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("argument is not a JSON object: %w", err)
	}
	return raw, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printConstants(w io.Writer, r *ipc.ConstantsResponse) {
	keys := make([]string, 0, len(r.Constants))
	for k := range r.Constants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, r.Constants[k])
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Events:")
	for _, e := range r.Events {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// formatEvent renders e as a JSON line, or as aligned text for terminals.
func formatEvent(e ipc.Event, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(e)
		return string(b)
	}
	if len(e.Body) == 0 {
		return e.Name
	}
	return fmt.Sprintf("%-22s %s", e.Name, e.Body)
}
