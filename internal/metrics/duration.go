package metrics

import (
	"regexp"
	"strconv"

	"github.com/ppiankov/openinfo/internal/model"
)

var (
	durationLinePattern  = regexp.MustCompile(`(?m)^Duration +: (.+)$`)
	durationTokenPattern = regexp.MustCompile(`(\d+)\s*([a-z]+)`)
)

// Seconds per mediainfo duration unit
var durationUnits = map[string]float64{
	"h":   3600,
	"mn":  60,
	"min": 60,
	"s":   1,
	"ms":  0.001,
}

// ParseDuration reads the first "Duration : 1h 2mn 3s" line of mediainfo
// output and returns the total in seconds
func ParseDuration(output string) (float64, error) {
	m := durationLinePattern.FindStringSubmatch(output)
	if m == nil {
		return 0, model.Analysisf("no Duration field in mediainfo output")
	}
	return ParseDurationTokens(m[1])
}

// ParseDurationTokens sums "<int><unit>" tokens such as "1h 2mn 3s" or "500ms"
func ParseDurationTokens(text string) (float64, error) {
	tokens := durationTokenPattern.FindAllStringSubmatch(text, -1)
	if len(tokens) == 0 {
		return 0, model.Analysisf("no duration tokens in %q", text)
	}

	var total float64
	for _, token := range tokens {
		value, err := strconv.Atoi(token[1])
		if err != nil {
			return 0, model.Analysisf("duration value %q: %v", token[1], err)
		}
		unit, ok := durationUnits[token[2]]
		if !ok {
			return 0, model.Analysisf("unknown duration unit %q in %q", token[2], text)
		}
		total += float64(value) * unit
	}
	return total, nil
}
