// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package seed loads genesis pact definitions from a JSONC file at
// startup, the same way the teacher's lib/pipelinedef parses pipeline
// definitions: strip JSONC's comments and trailing commas with
// tidwall/jsonc, then unmarshal the remaining JSON. Authoring pacts as
// commented JSONC rather than strict JSON lets an operator annotate
// why a threshold or risk level was chosen directly in the file that
// defines it.
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/danvoulez/UBL-Containers/internal/pact"
)

// Document is the on-disk shape of a genesis seed file: a flat list of
// pacts to register before the core accepts its first commit.
type Document struct {
	Pacts []PactDef `json:"pacts"`
}

// PactDef is the JSONC representation of a pact.Pact. Scope and
// RiskLevel are spelled out as strings on disk rather than the
// integers pact.Scope/pact.RiskLevel use internally, so a seed file
// stays readable without cross-referencing the enum.
type PactDef struct {
	PactID      string   `json:"pact_id"`
	Scope       string   `json:"scope"` // "container", "namespace", or "global"
	ContainerID string   `json:"container_id,omitempty"`
	Threshold   int      `json:"threshold"`
	Signers     []string `json:"signers"`
	NotBefore   int64    `json:"not_before"`
	NotAfter    int64    `json:"not_after"`
	RiskLevel   string   `json:"risk_level"` // "L0".."L5"
}

// Parse strips JSONC syntax from data and unmarshals the result into a
// Document.
func Parse(data []byte) (*Document, error) {
	stripped := jsonc.ToJSON(data)
	var doc Document
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("seed: parsing: %w", err)
	}
	return &doc, nil
}

// ReadFile reads and parses a JSONC genesis seed file from disk.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: reading %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed: %s: %w", path, err)
	}
	return doc, nil
}

// Register converts each PactDef in doc into a pact.Pact and registers
// it with reg. The first malformed definition aborts registration and
// returns an error identifying it by pact_id; already-registered pacts
// from the same call are left registered, since a seed file is only
// ever loaded once at startup and a partial load should fail the
// process rather than run with a subset of intended authority.
func Register(reg *pact.Registry, doc *Document) error {
	for _, def := range doc.Pacts {
		p, err := def.toPact()
		if err != nil {
			return fmt.Errorf("seed: pact %q: %w", def.PactID, err)
		}
		reg.Register(p)
	}
	return nil
}

func (d PactDef) toPact() (pact.Pact, error) {
	scope, err := parseScope(d.Scope)
	if err != nil {
		return pact.Pact{}, err
	}
	risk, err := parseRiskLevel(d.RiskLevel)
	if err != nil {
		return pact.Pact{}, err
	}
	if scope == pact.ScopeContainer && d.ContainerID == "" {
		return pact.Pact{}, fmt.Errorf("container_id is required for scope \"container\"")
	}
	if d.Threshold < 1 {
		return pact.Pact{}, fmt.Errorf("threshold must be at least 1")
	}

	signers := make(map[string]struct{}, len(d.Signers))
	for _, s := range d.Signers {
		signers[s] = struct{}{}
	}
	if len(signers) < d.Threshold {
		return pact.Pact{}, fmt.Errorf("threshold %d exceeds signer count %d", d.Threshold, len(signers))
	}

	return pact.Pact{
		PactID:      d.PactID,
		Scope:       scope,
		ContainerID: d.ContainerID,
		Threshold:   d.Threshold,
		Signers:     signers,
		Window:      pact.TimeWindow{NotBefore: d.NotBefore, NotAfter: d.NotAfter},
		RiskLevel:   risk,
	}, nil
}

func parseScope(s string) (pact.Scope, error) {
	switch s {
	case "container":
		return pact.ScopeContainer, nil
	case "namespace":
		return pact.ScopeNamespace, nil
	case "global":
		return pact.ScopeGlobal, nil
	default:
		return 0, fmt.Errorf("unrecognized scope %q", s)
	}
}

func parseRiskLevel(s string) (pact.RiskLevel, error) {
	switch s {
	case "L0":
		return pact.L0, nil
	case "L1":
		return pact.L1, nil
	case "L2":
		return pact.L2, nil
	case "L3":
		return pact.L3, nil
	case "L4":
		return pact.L4, nil
	case "L5":
		return pact.L5, nil
	default:
		return 0, fmt.Errorf("unrecognized risk_level %q", s)
	}
}
