package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// ParseStage records which strategy recovered a structured result
type ParseStage string

const (
	StageNone      ParseStage = "none"
	StageDirect    ParseStage = "direct"
	StageExtracted ParseStage = "extracted"
	StageAnchored  ParseStage = "anchored"
)

var (
	fencedObject   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")
	embeddedObject = regexp.MustCompile(`(?s)\{.*\}`)
	anchoredObject = regexp.MustCompile(`(?m)^[ \t]*(\{[^{}\n]*\})[ \t]*,?[ \t]*$`)
)

// ParseStructured decodes a JSON object from raw model text into out. It tries,
// in order, the whole response, an object extracted from surrounding prose, and
// flat single-line objects anchored on their own line. out is only meaningful
// when the returned stage is not StageNone.
func ParseStructured(raw string, out any) ParseStage {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StageNone
	}

	if decodeObject(trimmed, out) {
		return StageDirect
	}

	if m := fencedObject.FindStringSubmatch(trimmed); m != nil && decodeObject(m[1], out) {
		return StageExtracted
	}
	if m := embeddedObject.FindString(trimmed); m != "" && decodeObject(m, out) {
		return StageExtracted
	}

	for _, m := range anchoredObject.FindAllStringSubmatch(trimmed, -1) {
		if decodeObject(m[1], out) {
			return StageAnchored
		}
	}

	return StageNone
}

func decodeObject(candidate string, out any) bool {
	data := bytes.TrimSpace([]byte(candidate))
	if len(data) == 0 || data[0] != '{' || !json.Valid(data) {
		return false
	}
	return json.Unmarshal(data, out) == nil
}
