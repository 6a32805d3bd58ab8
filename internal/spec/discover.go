package spec

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReportSuffix is the reserved file suffix for run reports. Files carrying
// it live alongside specifications but are never treated as specs.
const ReportSuffix = ".report.yml"

var specExtensions = map[string]bool{
	".yml":  true,
	".yaml": true,
	".json": true,
}

// FindSpecs lists the specification files directly inside dir, sorted by
// name. Prior reports are excluded by the reserved suffix convention.
func FindSpecs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var specs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !specExtensions[filepath.Ext(name)] {
			continue
		}
		if strings.HasSuffix(name, ".report.yml") || strings.HasSuffix(name, ".report.yaml") {
			continue
		}
		specs = append(specs, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(specs)
	return specs, nil
}

// FindReports lists prior report files for a spec, most recent first.
func FindReports(specPath string) ([]string, error) {
	stem := strings.TrimSuffix(filepath.Base(specPath), filepath.Ext(specPath))
	pattern := filepath.Join(filepath.Dir(specPath), stem+"-*.report.y*ml")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] > matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return matches, nil
}
