package main

import (
	"os"
	"path/filepath"
	"testing"
)

const testServicePrefix = "tally/contexts/governance/voting-system"

func mustRule(t *testing.T, layer string) layerRule {
	t.Helper()
	rule, ok := ruleFor(layer)
	if !ok {
		t.Fatalf("no rule for layer %q", layer)
	}
	return rule
}

func writeSource(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.go")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestSplitContextPackage(t *testing.T) {
	cases := []struct {
		pkgPath string
		layer   string
		ok      bool
	}{
		{pkgPath: testServicePrefix, layer: "", ok: true},
		{pkgPath: testServicePrefix + "/domain/entities", layer: "domain/entities", ok: true},
		{pkgPath: testServicePrefix + "/adapters/postgres", layer: "adapters/postgres", ok: true},
		{pkgPath: "tally/contexts/governance", ok: false},
		{pkgPath: "tally/internal/platform/db", ok: false},
	}
	for _, tc := range cases {
		prefix, layer, ok := splitContextPackage(tc.pkgPath)
		if ok != tc.ok {
			t.Fatalf("%s: expected ok=%v, got %v", tc.pkgPath, tc.ok, ok)
		}
		if ok && (prefix != testServicePrefix || layer != tc.layer) {
			t.Fatalf("%s: got prefix=%s layer=%s", tc.pkgPath, prefix, layer)
		}
	}
}

func TestRuleForPicksMostSpecificLayer(t *testing.T) {
	if got := mustRule(t, "application/workers").Layer; got != "application" {
		t.Fatalf("expected application rule, got %q", got)
	}
	if got := mustRule(t, "adapters/postgres").Layer; got != "adapters/postgres" {
		t.Fatalf("expected adapters/postgres rule, got %q", got)
	}
	if got := mustRule(t, "").Layer; got != "" {
		t.Fatalf("expected module root rule, got %q", got)
	}
	if _, ok := ruleFor("adapters/redis"); ok {
		t.Fatalf("unknown adapter must not match a rule")
	}
}

func TestCheckImportRules(t *testing.T) {
	cases := []struct {
		layer  string
		path   string
		reason string
	}{
		{layer: "domain/entities", path: "time"},
		{layer: "domain/entities", path: "github.com/ethereum/go-ethereum/common"},
		{layer: "domain/services", path: testServicePrefix + "/domain/entities"},
		{layer: "domain/entities", path: testServicePrefix + "/ports", reason: "domain must not import ports"},
		{layer: "domain/entities", path: "gorm.io/gorm", reason: "domain import is outside explicit allowlist"},
		{layer: "domain/entities", path: "tally/internal/platform/db", reason: "domain must not import runtime infrastructure"},
		{layer: "ports", path: testServicePrefix + "/application", reason: "ports must not import application"},
		{layer: "application/commands", path: testServicePrefix + "/adapters/memory", reason: "application must not import adapters/memory"},
		{layer: "application/commands", path: "github.com/google/uuid", reason: "application import is outside explicit allowlist"},
		{layer: "adapters/memory", path: "github.com/google/uuid"},
		{layer: "adapters/memory", path: "gorm.io/gorm", reason: "adapters/memory import is outside explicit allowlist"},
		{layer: "adapters/postgres", path: "gorm.io/gorm/clause"},
		{layer: "adapters/postgres", path: "github.com/jackc/pgx/v5/pgconn"},
		{layer: "adapters/postgres", path: testServicePrefix + "/adapters/memory", reason: "adapters/postgres must not import adapters/memory"},
		{layer: "adapters/http", path: testServicePrefix + "/transport/http"},
		{layer: "adapters/http", path: testServicePrefix + "/adapters/postgres", reason: "adapters/http must not import adapters/postgres"},
		{layer: "transport/http", path: "encoding/json"},
		{layer: "transport/http", path: testServicePrefix + "/domain/entities", reason: "transport/http must not import domain/entities"},
		{layer: "", path: testServicePrefix + "/adapters/memory"},
		{layer: "", path: testServicePrefix + "/adapters/postgres", reason: "module root must not import adapters/postgres"},
		{layer: "application", path: testServicePrefix, reason: "application must not import the module root"},
		{layer: "adapters/http", path: "tally/contexts/governance/other-service/domain", reason: "cross-module imports are forbidden"},
	}
	for _, tc := range cases {
		reason, ok := checkImport(mustRule(t, tc.layer), testServicePrefix, tc.path)
		if tc.reason == "" {
			if !ok {
				t.Fatalf("%s importing %s: unexpected violation %q", tc.layer, tc.path, reason)
			}
			continue
		}
		if ok || reason != tc.reason {
			t.Fatalf("%s importing %s: expected %q, got ok=%v reason=%q", tc.layer, tc.path, tc.reason, ok, reason)
		}
	}
}

func TestValidateFileReportsImportLines(t *testing.T) {
	path := writeSource(t, `package entities

import (
	"time"

	"tally/internal/platform/db"
)
`)
	got := validateFile(path, "entities.go", mustRule(t, "domain/entities"), testServicePrefix)
	if len(got) != 1 {
		t.Fatalf("expected one violation, got %+v", got)
	}
	if got[0].Line != 6 || got[0].Import != "tally/internal/platform/db" || got[0].File != "entities.go" {
		t.Fatalf("unexpected violation %+v", got[0])
	}
}

func TestValidateFileRejectsUnparsableSource(t *testing.T) {
	path := writeSource(t, `package entities import`)
	got := validateFile(path, path, mustRule(t, "domain"), testServicePrefix)
	if len(got) != 1 || got[0].Rule != "file must parse" {
		t.Fatalf("expected parse violation, got %+v", got)
	}
}

func TestVotingSystemRespectsBoundaries(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the module's packages")
	}
	violations, err := collectViolations("..")
	if err != nil {
		t.Fatalf("collect violations: %v", err)
	}
	for _, v := range violations {
		t.Errorf("%s:%d imports %q (%s)", v.File, v.Line, v.Import, v.Rule)
	}
}
