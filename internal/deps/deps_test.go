package deps

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeBinary puts an executable called name on PATH that prints out.
func fakeBinary(t *testing.T, name, out string) {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\nprintf '" + out + "'\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestCheck_Installed(t *testing.T) {
	fakeBinary(t, "pw-record", "\npw-record\nCompiled with libpipewire 1.2.7\n")

	status := Check("pw-record", "--version")
	if !status.Installed {
		t.Fatal("expected Installed=true")
	}
	if status.Path == "" {
		t.Error("installed but path empty")
	}
	if status.Version != "pw-record" {
		t.Errorf("Version = %q", status.Version)
	}
}

func TestCheck_NotInstalled(t *testing.T) {
	status := Check("voxbridge-definitely-missing", "--version")
	if status.Installed {
		t.Error("expected Installed=false")
	}
	if status.Path != "" {
		t.Error("expected empty path when not installed")
	}
}

func TestCheck_NoVersionFlag(t *testing.T) {
	fakeBinary(t, "wl-copy", "wl-clipboard 2.2.1\n")

	status := Check("wl-copy", "")
	if !status.Installed || status.Version != "" {
		t.Errorf("status = %+v", status)
	}
}

func TestCheckAll(t *testing.T) {
	reports := CheckAll()
	if len(reports) != len(Binaries) {
		t.Fatalf("got %d reports, want %d", len(reports), len(Binaries))
	}
	for i, r := range reports {
		if r.Name != Binaries[i].Name {
			t.Errorf("report %d is %s, want %s", i, r.Name, Binaries[i].Name)
		}
		if r.Installed && r.Path == "" {
			t.Errorf("%s installed but path empty", r.Name)
		}
	}
}

func TestMissingRequired(t *testing.T) {
	reports := []Report{
		{Binary: Binary{Name: "pw-record", Required: true}},
		{Binary: Binary{Name: "pw-play"}},
		{Binary: Binary{Name: "wl-copy", Required: true}, Status: Status{Installed: true}},
	}
	missing := MissingRequired(reports)
	if len(missing) != 1 || missing[0] != "pw-record" {
		t.Errorf("MissingRequired = %v", missing)
	}
}
