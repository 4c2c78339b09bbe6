// Package cliio holds the JSON in / JSON out plumbing shared by the command
// line tools: input from a file or stdin, a single object or an array.
package cliio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/sugawarayuuta/sonnet"

	"github.com/meenmo/latent/config"
)

// ReadInput reads path, or stdin when path is empty.
func ReadInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

// StdinIsTerminal reports whether stdin is interactive, i.e. nothing is piped.
func StdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}

// ParseInputs decodes either one object or a non-empty array of objects.
// The bool reports whether the input was an array.
func ParseInputs[T any](raw []byte) ([]T, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	if trimmed[0] == '[' {
		var inputs []T
		if err := sonnet.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	}
	var input T
	if err := sonnet.Unmarshal(trimmed, &input); err != nil {
		return nil, false, err
	}
	return []T{input}, false, nil
}

// Write encodes outputs as an array when isArray, else the first element.
func Write[T any](w io.Writer, outputs []T, isArray bool) error {
	var (
		b   []byte
		err error
	)
	if isArray {
		b, err = sonnet.Marshal(outputs)
	} else {
		b, err = sonnet.Marshal(outputs[0])
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Float is a float64 that encodes NaN and ±Inf as the strings "NaN", "+Inf"
// and "-Inf", which plain JSON numbers cannot carry.
type Float float64

// MarshalJSON implements sonnet.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// ErrorOutput is printed when a tool fails before producing results.
type ErrorOutput struct {
	Error string `json:"error"`
}

// ExitError prints msg as a JSON error object and exits 1.
func ExitError(msg string) {
	b, _ := sonnet.Marshal(ErrorOutput{Error: msg})
	fmt.Println(string(b))
	os.Exit(1)
}

// LoadNumerics applies the numerics section of a config file (and LATENT_*
// overrides) to the process-wide solver settings.
func LoadNumerics(path string) error {
	f, err := config.Load(path)
	if err != nil {
		return err
	}
	config.SetConfig(f.Numerics)
	return nil
}
