package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesRequiredTree(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "Acme", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, f := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("required file %s missing after Init: %v", f, err)
		}
	}
	for _, d := range requiredDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		if err != nil || !info.IsDir() {
			t.Errorf("required dir %s missing after Init", d)
		}
	}
}

func TestInitFailsOnNonEmptyWithoutForce(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(dir, "Acme", false); err == nil {
		t.Fatal("expected Init to fail on non-empty dir without force")
	}
	if err := Init(dir, "Acme", true); err != nil {
		t.Fatalf("Init with force: %v", err)
	}
}

func TestValidateAfterInitIsOK(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "Acme", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	result := Validate(dir)
	if !result.OK() {
		t.Errorf("Validate after Init = %+v, want OK", result.Issues)
	}
}

func TestValidateEmptyDirFails(t *testing.T) {
	dir := t.TempDir()
	result := Validate(dir)
	if result.OK() {
		t.Fatal("expected Validate on an empty directory to report missing-file issues")
	}
}

func TestDoctorOnFreshInitPasses(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "Acme", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	result := Doctor(dir)
	for _, c := range result.Checks {
		if c.Status == CheckFail {
			t.Errorf("check %s failed: %s", c.Name, c.Message)
		}
	}
}

func TestDoctorOnEmptyDirFails(t *testing.T) {
	dir := t.TempDir()
	result := Doctor(dir)
	if result.Healthy() {
		t.Fatal("expected Doctor on an empty directory to be unhealthy")
	}
}
