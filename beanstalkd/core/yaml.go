package core

import (
	"bytes"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StatsMap is the key/value mapping returned by stats, stats-tube &
// stats-job. Values are kept exactly as sent by the server.
type StatsMap map[string]string

// ParseStats parses an OK body holding a flat mapping of scalars, ex:
//
//	---
//	current-jobs-ready: 3
//	version: "1.12"
func ParseStats(body []byte) (StatsMap, error) {
	n, err := parseDocument(body, yaml.MappingNode)
	if err != nil {
		return nil, errors.Wrap(err, "stats body")
	}

	m := make(StatsMap, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, errors.Wrapf(ErrBadFrame, "stats body: value of %q is not a scalar", k.Value)
		}
		m[k.Value] = v.Value
	}

	if len(m) == 0 {
		return nil, errors.Wrap(ErrBadFrame, "stats body is an empty mapping")
	}

	return m, nil
}

// ParseList parses an OK body holding a flat sequence of scalars, ex:
//
//	---
//	- default
//	- emails
func ParseList(body []byte) ([]string, error) {
	n, err := parseDocument(body, yaml.SequenceNode)
	if err != nil {
		return nil, errors.Wrap(err, "list body")
	}

	l := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, errors.Wrapf(ErrBadFrame, "list body: item %d is not a scalar", len(l))
		}
		l = append(l, item.Value)
	}

	return l, nil
}

// parseDocument returns the top node of body, which must be of kind.
// Scalars are left as written (a tube named null stays "null").
func parseDocument(body []byte, kind yaml.Kind) (*yaml.Node, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.Wrap(ErrBadFrame, "empty body")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrapf(ErrBadFrame, "%v", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != kind {
		return nil, errors.Wrap(ErrBadFrame, "unexpected document shape")
	}

	return doc.Content[0], nil
}
