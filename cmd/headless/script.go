// cmd/headless/script.go
package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/opd-ai/go-trackdrive/pkg/input"
)

// KeyStep is one scripted key transition
type KeyStep struct {
	Frame uint64
	Code  string
	Down  bool
}

// Script is a list of key transitions ordered by frame
type Script []KeyStep

// ParseScript reads "frame:+Code" (press) and "frame:-Code" (release)
// entries separated by commas, e.g. "0:+KeyW,600:-KeyW". Only control keys
// are accepted.
func ParseScript(s string) (Script, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out Script
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		frameText, action, ok := strings.Cut(entry, ":")
		if !ok || len(action) < 2 {
			return nil, fmt.Errorf("script entry %q: want frame:+Code or frame:-Code", entry)
		}
		frame, err := strconv.ParseUint(frameText, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("script entry %q: bad frame: %w", entry, err)
		}

		step := KeyStep{Frame: frame, Code: action[1:]}
		switch action[0] {
		case '+':
			step.Down = true
		case '-':
		default:
			return nil, fmt.Errorf("script entry %q: action must start with + or -", entry)
		}
		if _, ok := input.ActionFor(step.Code); !ok {
			return nil, fmt.Errorf("script entry %q: %q is not a control key", entry, step.Code)
		}
		out = append(out, step)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
	return out, nil
}

// At returns the steps scheduled for frame
func (s Script) At(frame uint64) []KeyStep {
	lo := sort.Search(len(s), func(i int) bool { return s[i].Frame >= frame })
	hi := lo
	for hi < len(s) && s[hi].Frame == frame {
		hi++
	}
	return s[lo:hi]
}
