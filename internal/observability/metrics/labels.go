package metrics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var labelKeyRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Label is a single metric label pair.
type Label struct {
	Key   string
	Value string
}

// Labels is a label set in canonical order (sorted by key, unique keys).
type Labels []Label

// parseLabels turns alternating key/value strings into canonical Labels.
func parseLabels(kv []string) (Labels, error) {
	if len(kv)%2 != 0 {
		return nil, ErrOddLabels
	}
	if len(kv) == 0 {
		return nil, nil
	}

	byKey := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		if kv[i] == "" {
			return nil, ErrEmptyLabelKey
		}
		if !labelKeyRE.MatchString(kv[i]) {
			return nil, fmt.Errorf("%q: %w", kv[i], ErrInvalidLabelKey)
		}
		if _, dup := byKey[kv[i]]; dup {
			return nil, fmt.Errorf("%q: %w", kv[i], ErrDuplicateLabelKey)
		}
		byKey[kv[i]] = kv[i+1]
	}

	labels := make(Labels, 0, len(byKey))
	for k, v := range byKey {
		labels = append(labels, Label{Key: k, Value: v})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Key < labels[j].Key })
	return labels, nil
}

// Map returns the labels as a map.
func (l Labels) Map() map[string]string {
	m := make(map[string]string, len(l))
	for _, label := range l {
		m[label.Key] = label.Value
	}
	return m
}

// String renders the labels in exposition form, e.g. {check="cache",name="weather-api"}.
// An empty set renders as an empty string.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteByte('{')
	for i, label := range l {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(label.Key)
		sb.WriteString(`="`)
		sb.WriteString(escapeLabelValue(label.Value))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabelValue(v string) string {
	return labelValueEscaper.Replace(v)
}

// identityKey returns the map key addressing a metric instance.
func identityKey(name string, labels Labels) string {
	return name + labels.String()
}
