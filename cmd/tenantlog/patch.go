// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tenantlog/internal/auditlog"
	"tenantlog/internal/tenant"
)

// settingsPatch holds the edits requested by a settings file or by flags.
// Only the fields and lists present are touched.
type settingsPatch struct {
	Fields map[auditlog.Field]string
	Lists  map[auditlog.ListKind][]tenant.KeyValue
}

func newSettingsPatch() *settingsPatch {
	return &settingsPatch{
		Fields: make(map[auditlog.Field]string),
		Lists:  make(map[auditlog.ListKind][]tenant.KeyValue),
	}
}

// merge copies the edits of other over p.
func (p *settingsPatch) merge(other *settingsPatch) {
	for f, v := range other.Fields {
		p.Fields[f] = v
	}
	for k, v := range other.Lists {
		p.Lists[k] = v
	}
}

func (p *settingsPatch) empty() bool {
	return len(p.Fields) == 0 && len(p.Lists) == 0
}

// apply feeds the edits through the controller in display order so that
// rejected values are recorded the same way as interactive edits.
func (p *settingsPatch) apply(ctrl *auditlog.Controller) {
	for _, f := range auditlog.AllFields {
		if v, ok := p.Fields[f]; ok {
			_ = ctrl.SetField(f, v)
		}
	}
	for _, k := range auditlog.AllLists {
		if v, ok := p.Lists[k]; ok {
			_ = ctrl.SetList(k, v)
		}
	}
}

// loadPatchFile reads a YAML settings file.
func loadPatchFile(path string) (*settingsPatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	p, err := parsePatch(data)
	if err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return p, nil
}

// parsePatch decodes a YAML mapping of field names and list names. Lists
// may be given as a sequence of {key, value} pairs or as a mapping, whose
// document order is kept.
func parsePatch(data []byte) (*settingsPatch, error) {
	p := newSettingsPatch()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return p, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", root.Line)
	}

	fields := make(map[string]auditlog.Field, len(auditlog.AllFields))
	for _, f := range auditlog.AllFields {
		fields[string(f)] = f
	}
	lists := make(map[string]auditlog.ListKind, len(auditlog.AllLists))
	for _, k := range auditlog.AllLists {
		lists[string(k)] = k
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if f, ok := fields[key.Value]; ok {
			if val.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: %s must be a scalar", val.Line, key.Value)
			}
			p.Fields[f] = val.Value
			continue
		}
		if k, ok := lists[key.Value]; ok {
			entries, err := decodeList(val)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", val.Line, key.Value, err)
			}
			p.Lists[k] = entries
			continue
		}
		return nil, fmt.Errorf("line %d: unknown setting %q", key.Line, key.Value)
	}
	return p, nil
}

func decodeList(n *yaml.Node) ([]tenant.KeyValue, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		var out []tenant.KeyValue
		if err := n.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	case yaml.MappingNode:
		out := make([]tenant.KeyValue, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			out = append(out, tenant.KeyValue{Key: n.Content[i].Value, Value: n.Content[i+1].Value})
		}
		return out, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return []tenant.KeyValue{}, nil
		}
	}
	return nil, fmt.Errorf("expected a list or mapping")
}

// parseKeyValues parses repeated key=value flag values.
func parseKeyValues(values []string) ([]tenant.KeyValue, error) {
	out := make([]tenant.KeyValue, 0, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not in key=value form", v)
		}
		out = append(out, tenant.KeyValue{Key: strings.TrimSpace(k), Value: val})
	}
	return out, nil
}
