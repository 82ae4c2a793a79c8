// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import "testing"

type sample struct {
	B int64
	A string
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{B: 42, A: "hello"}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	in := sample{B: 7, A: "x"}
	a, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("encoding is not deterministic")
	}
}
