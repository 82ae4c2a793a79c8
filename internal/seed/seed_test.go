// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package seed

import (
	"testing"

	"github.com/danvoulez/UBL-Containers/internal/pact"
)

const sample = `{
  // genesis authority for the treasury container
  "pacts": [
    {
      "pact_id": "treasury-genesis",
      "scope": "container",
      "container_id": "treasury",
      "threshold": 2,
      "signers": ["aa", "bb", "cc"],
      "not_before": 0,
      "not_after": 4102444800,
      "risk_level": "L5", // sovereignty-grade
    },
  ],
}`

func TestParseStripsJSONC(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Pacts) != 1 || doc.Pacts[0].PactID != "treasury-genesis" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestRegisterPopulatesRegistry(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	reg := pact.NewRegistry()
	if err := Register(reg, doc); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, ok := reg.Get("treasury-genesis")
	if !ok {
		t.Fatal("expected pact to be registered")
	}
	if p.Threshold != 2 || p.RiskLevel != pact.L5 || len(p.Signers) != 3 {
		t.Fatalf("unexpected pact: %+v", p)
	}
	if !reg.HasAny("treasury") {
		t.Fatal("expected HasAny to see the registered pact")
	}
}

func TestRegisterRejectsThresholdExceedingSigners(t *testing.T) {
	reg := pact.NewRegistry()
	doc := &Document{Pacts: []PactDef{{
		PactID:    "bad",
		Scope:     "global",
		Threshold: 3,
		Signers:   []string{"aa"},
		RiskLevel: "L1",
	}}}
	if err := Register(reg, doc); err == nil {
		t.Fatal("expected error for threshold exceeding signer count")
	}
}

func TestRegisterRejectsUnknownScope(t *testing.T) {
	reg := pact.NewRegistry()
	doc := &Document{Pacts: []PactDef{{
		PactID:    "bad",
		Scope:     "planet",
		Threshold: 1,
		Signers:   []string{"aa"},
		RiskLevel: "L0",
	}}}
	if err := Register(reg, doc); err == nil {
		t.Fatal("expected error for unrecognized scope")
	}
}
