package tools

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jllopis/spaceagent/pkg/tool"
)

// SignalDecoder is the namespace of the signal decoding tools.
const SignalDecoder = "signal_decoder"

// Applied in order; multi-character codes may overlap single ones.
var alienSubstitutions = [][2]string{
	{"§", "a"}, {"Ω", "e"}, {"π", "i"}, {"∆", "o"}, {"Φ", "u"},
	{"¥", "t"}, {"µ", "n"}, {"ß", "s"}, {"∞", "m"}, {"λ", "l"},
	{"!+!", "please"}, {"?-?", "urgent"}, {"*^*", "warning"},
	{"<<", "begin"}, {">>", "end"},
}

var (
	importantPattern = regexp.MustCompile(`###(.*?)###`)
	commandPattern   = regexp.MustCompile(`^CMD:(\w+):(\w+):?(.*)`)
	unclearCleaner   = strings.NewReplacer("$", " ", "#", "", "@", "")
)

type signalParams struct {
	EncodedSignal string `json:"encoded_signal" jsonschema:"required,description=The raw signal text to decode"`
	SignalType    string `json:"signal_type" jsonschema:"description=Origin of the signal,enum=alien,enum=satellite,enum=unknown,default=unknown"`
}

// DecodedSignal is the output of decode_signal.
type DecodedSignal struct {
	DecodedMessage string  `json:"decoded_message"`
	Confidence     float64 `json:"confidence"`
	Source         string  `json:"source"`
	SignalType     string  `json:"signal_type"`
}

// NewSignalDecoder returns the decode_signal tool.
func NewSignalDecoder() *tool.Group {
	return tool.NewGroup(SignalDecoder).
		Add("decode_signal", tool.Func(decodeSignal),
			tool.WithDescription("Decodes intercepted alien, satellite or unidentified signals into readable text with a confidence estimate."),
			tool.WithParams(&signalParams{}))
}

func decodeSignal(_ context.Context, args tool.Args) (tool.Result, error) {
	p := signalParams{SignalType: "unknown"}
	if err := args.Decode(&p); err != nil {
		return tool.Result{}, err
	}
	if p.EncodedSignal == "" {
		return tool.Err("Encoded signal must be a non-empty string"), nil
	}
	out := DecodedSignal{SignalType: p.SignalType}
	switch p.SignalType {
	case "alien":
		out.DecodedMessage, out.Confidence, out.Source = decodeAlien(p.EncodedSignal), 0.85, "Extraterrestrial origin"
	case "satellite":
		out.DecodedMessage, out.Confidence, out.Source = decodeSatellite(p.EncodedSignal), 0.95, "Earth satellite network"
	case "unknown":
		out.DecodedMessage, out.Confidence, out.Source = decodeUnknown(p.EncodedSignal), 0.70, "Unidentified source"
	default:
		return tool.Err("Signal type must be 'alien', 'satellite', or 'unknown'"), nil
	}
	return tool.OK(out), nil
}

func decodeAlien(signal string) string {
	decoded := signal
	for _, sub := range alienSubstitutions {
		decoded = strings.ReplaceAll(decoded, sub[0], sub[1])
	}
	decoded = importantPattern.ReplaceAllString(decoded, "IMPORTANT: $1")
	return strings.TrimSpace(decoded)
}

func decodeSatellite(signal string) string {
	var parts []string
	for _, line := range strings.Split(signal, "\n") {
		if m := commandPattern.FindStringSubmatch(line); m != nil {
			parts = append(parts, m[1]+" system: "+m[2]+" operation "+m[3])
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.Trim(trimmed, "01 ") != "" {
			parts = append(parts, line)
			continue
		}
		if text := decodeBinary(trimmed); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// decodeBinary turns space separated 8-bit groups into printable ASCII.
func decodeBinary(line string) string {
	var b strings.Builder
	for _, group := range strings.Fields(line) {
		code, err := strconv.ParseInt(group, 2, 64)
		if err != nil || code < 32 || code > 126 {
			continue
		}
		b.WriteByte(byte(code))
	}
	return b.String()
}

func decodeUnknown(signal string) string {
	alien := decodeAlien(signal)
	satellite := decodeSatellite(signal)
	a, s := countLetters(alien), countLetters(satellite)
	switch {
	case a > s:
		return "Possible alien message: " + alien
	case s > a:
		return "Possible satellite message: " + satellite
	default:
		return "Unclear origin. Best translation attempt: " + unclearCleaner.Replace(signal)
	}
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
