package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/pkg/errors"
)

// Process exit codes
const (
	ExitOK = 0

	// validation, protocol or malformed frame error
	ExitError = 1

	// transport failure or closed connection
	ExitTransport = 2

	// bad command line or configuration
	ExitUsage = 64
)

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch core.KindOf(err) {
	case core.KindTransport, core.KindClosed:
		return ExitTransport
	default:
		return ExitError
	}
}

// output is the result of a command: Text (and Body, written raw after
// it) for humans, Value for --json
type output struct {
	Text  string
	Body  []byte
	Value interface{}
}

func (o *output) write(w io.Writer, asJSON bool) error {
	if asJSON {
		b, err := json.MarshalIndent(o.Value, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}

	if _, err := fmt.Fprintln(w, o.Text); err != nil {
		return err
	}

	if o.Body != nil {
		if _, err := w.Write(o.Body); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeError reports err on w, with its kind
func writeError(w io.Writer, err error, asJSON bool) {
	kind := core.KindOf(err)
	if asJSON {
		b, _ := json.Marshal(map[string]string{"error": err.Error(), "kind": kind.String()})
		fmt.Fprintf(w, "%s\n", b)
		return
	}
	fmt.Fprintf(w, "error (%s): %v\n", kind, err)
}

type statusView struct {
	Status core.Status `json:"status"`
}

type countView struct {
	Status core.Status `json:"status"`
	Count  uint64      `json:"count"`
}

type tubeView struct {
	Status core.Status `json:"status"`
	Tube   string      `json:"tube"`
}

type jobView struct {
	Status core.Status `json:"status"`
	ID     core.JobID  `json:"id,omitempty"`

	// []byte (base64 in JSON) or string with --utf8
	Body interface{} `json:"body,omitempty"`
}

func statusOutput(s core.Status) *output {
	return &output{Text: s.Name(), Value: &statusView{Status: s}}
}

func countOutput(s core.Status, n uint64) *output {
	return &output{
		Text:  fmt.Sprintf("%s(%d)", s.Name(), n),
		Value: &countView{Status: s, Count: n},
	}
}

func tubeOutput(tube string) *output {
	return &output{
		Text:  fmt.Sprintf("%s(%s)", core.StatusUsing.Name(), tube),
		Value: &tubeView{Status: core.StatusUsing, Tube: tube},
	}
}

func putOutput(r *core.PutResult) *output {
	return &output{Text: r.String(), Value: r}
}

// errNotUTF8 is returned when a body shown as text is not valid UTF-8
var errNotUTF8 = errors.New("job's data appears to not be UTF-8 encoded")

// jobOutput prints a job found by peek or reserved. With asText the body
// is shown as text, otherwise it is written as raw bytes (base64 in JSON).
func jobOutput(s core.Status, j *core.Job, asText bool) (*output, error) {
	v := &jobView{Status: s}
	o := &output{Text: s.Name(), Value: v}
	if j == nil {
		return o, nil
	}

	v.ID = j.ID
	o.Text = fmt.Sprintf("%s(%d, %d bytes)", s.Name(), j.ID, len(j.Body))
	if asText {
		if !utf8.Valid(j.Body) {
			return nil, errNotUTF8
		}
		v.Body = string(j.Body)
	} else {
		v.Body = j.Body
	}
	o.Body = j.Body
	return o, nil
}

func statsOutput(s core.StatsMap) *output {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s: %s", k, s[k])
	}
	return &output{Text: strings.Join(lines, "\n"), Value: s}
}

func listOutput(l []string) *output {
	return &output{Text: strings.Join(l, "\n"), Value: l}
}
