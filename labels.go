package lokiship

import (
	"fmt"
)

const (
	frameworkLabel = "logging_framework"
	frameworkName  = "lokiship"
	levelLabel     = "level"
)

// labelPolicy computes the tag set attached to an entry. Overlay order is
// fixed: derived labels first, then static tags, then structured fields, so
// a later layer always wins on key collision.
type labelPolicy struct {
	includeFramework bool
	includeLevel     bool
	structured       bool
	static           map[string]string
}

func (p labelPolicy) labels(rec LogRecord) (map[string]string, error) {
	labels := make(map[string]string, len(p.static)+2)

	if p.includeFramework {
		labels[frameworkLabel] = frameworkName
	}
	if p.includeLevel {
		labels[levelLabel] = rec.Level.String()
	}

	for k, v := range p.static {
		labels[k] = v
	}

	if p.structured && rec.Fields != nil {
		err := rec.Fields.VisitFields(func(k, v string) {
			labels[k] = v
		})
		if err != nil {
			return nil, fmt.Errorf("extract structured fields: %w", err)
		}
	}

	return labels, nil
}
