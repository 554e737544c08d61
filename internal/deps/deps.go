// Package deps reports which of the external programs voxbridge shells out
// to are installed.
package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Binary is one external program and what it is needed for.
type Binary struct {
	Name        string
	VersionFlag string
	Purpose     string
	Required    bool
}

// Binaries lists every program voxbridge runs.
var Binaries = []Binary{
	{Name: "pw-record", VersionFlag: "--version", Purpose: "microphone capture", Required: true},
	{Name: "pw-play", VersionFlag: "--version", Purpose: "speaking translations"},
	{Name: "notify-send", VersionFlag: "--version", Purpose: "desktop notifications"},
	{Name: "wl-copy", VersionFlag: "--version", Purpose: "copying translations to the clipboard"},
}

// Report pairs a binary with its status.
type Report struct {
	Binary
	Status
}

// Check looks up name in PATH and asks it for its version.
func Check(name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if versionFlag == "" {
		return status
	}

	output, err := exec.Command(path, versionFlag).CombinedOutput()
	if err == nil {
		// first non-empty line is the version banner
		for _, line := range strings.Split(string(output), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				status.Version = line
				break
			}
		}
	}
	return status
}

// CheckAll checks every entry of Binaries.
func CheckAll() []Report {
	out := make([]Report, 0, len(Binaries))
	for _, b := range Binaries {
		out = append(out, Report{Binary: b, Status: Check(b.Name, b.VersionFlag)})
	}
	return out
}

// MissingRequired returns the names of required binaries that are not
// installed.
func MissingRequired(reports []Report) []string {
	var missing []string
	for _, r := range reports {
		if r.Required && !r.Installed {
			missing = append(missing, r.Name)
		}
	}
	return missing
}
