package pkgid

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/peergraph/pkg/errors"
)

func TestIDString(t *testing.T) {
	id := ID{
		NV: NV{Name: "a", Version: "1.0.0"},
		Peers: []ID{
			{
				NV:    NV{Name: "b", Version: "2.0.0"},
				Peers: []ID{{NV: NV{Name: "@scope/c", Version: "3.0.0"}}},
			},
			{NV: NV{Name: "d", Version: "4.0.0"}},
		},
	}
	want := "a@1.0.0_b@2.0.0__@scope+c@3.0.0_d@4.0.0"
	if got := id.String(); got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
}

func TestParseIDRoundTrip(t *testing.T) {
	tests := []string{
		"react@18.2.0",
		"@types/node@20.1.0",
		"my_pkg@1.0.0-beta.1",
		"react-dom@18.2.0_react@18.2.0",
		"@scope/host@1.0.0_@scope+plugin@2.0.0",
		"a@1.0.0_b@2.0.0__@scope+c@3.0.0_d@4.0.0",
		"a@1.0.0_b@1.0.0__c@1.0.0___d@1.0.0_e@1.0.0",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			id, err := ParseID(s)
			if err != nil {
				t.Fatalf("ParseID(%q) error: %v", s, err)
			}
			if got := id.String(); got != s {
				t.Errorf("ParseID(%q).String() = %v", s, got)
			}
		})
	}
}

func TestParseIDStructure(t *testing.T) {
	id, err := ParseID("@scope/host@1.0.0_@scope+plugin@2.0.0__x@1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if id.NV.Name != "@scope/host" || id.NV.Version != "1.0.0" {
		t.Errorf("NV = %v, want @scope/host@1.0.0", id.NV)
	}
	if len(id.Peers) != 1 || id.Peers[0].NV.Name != "@scope/plugin" {
		t.Fatalf("Peers = %v, want one @scope/plugin", id.Peers)
	}
	if len(id.Peers[0].Peers) != 1 || id.Peers[0].Peers[0].NV.Name != "x" {
		t.Errorf("nested peers = %v, want x", id.Peers[0].Peers)
	}
}

func TestParseIDInvalid(t *testing.T) {
	tests := []string{
		"",
		"react",
		"react@",
		"@scope",
		"a@1.0.0__b@1.0.0",
		"@1.0.0",
	}
	for _, s := range tests {
		if _, err := ParseID(s); !errors.Is(err, errors.ErrCodeInvalidPackage) {
			t.Errorf("ParseID(%q) error = %v, want INVALID_PACKAGE", s, err)
		}
	}
}

func TestIDJSON(t *testing.T) {
	id, _ := ParseID("a@1.0.0_b@2.0.0")
	data, err := json.Marshal([]ID{id})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["a@1.0.0_b@2.0.0"]` {
		t.Errorf("Marshal = %s", data)
	}
	var back []ID
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 1 || back[0].String() != id.String() {
		t.Errorf("Unmarshal = %v, want %v", back, id)
	}
}

func TestParseReq(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantRange string
	}{
		{"react@^18", "react", "^18"},
		{"@types/node", "@types/node", ""},
		{"@types/node@>=20 <21", "@types/node", ">=20 <21"},
		{"npm:left-pad@1", "left-pad", "1"},
		{"typescript@next", "typescript", "next"},
	}
	for _, tt := range tests {
		r, err := ParseReq(tt.in)
		if err != nil {
			t.Errorf("ParseReq(%q) error: %v", tt.in, err)
			continue
		}
		if r.Name != tt.wantName || r.Range != tt.wantRange {
			t.Errorf("ParseReq(%q) = %+v, want %s %s", tt.in, r, tt.wantName, tt.wantRange)
		}
	}

	if _, err := ParseReq("Not A Package"); !errors.Is(err, errors.ErrCodeInvalidRequirement) {
		t.Errorf("ParseReq(invalid) error = %v, want INVALID_REQUIREMENT", err)
	}
}

func TestNVCompare(t *testing.T) {
	a := NV{Name: "a", Version: "1.10.0"}
	b := NV{Name: "a", Version: "1.9.0"}
	if a.Compare(b) <= 0 {
		t.Errorf("expected %v > %v", a, b)
	}
	if (NV{Name: "a", Version: "9.0.0"}).Compare(NV{Name: "b", Version: "1.0.0"}) >= 0 {
		t.Error("expected names to order first")
	}
}
