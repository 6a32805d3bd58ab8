package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vigil-run/vigil/internal/spec"
)

// timestampLayout stamps report filenames; second precision is enough because
// collisions fall back to an ordinal suffix.
const timestampLayout = "20060102-150405"

// Write renders the report and persists it next to the spec as
// <stem>-<timestamp>.report.yml. The reserved suffix keeps reports out of
// spec discovery, so writing can never clobber a spec. An existing report at
// the same second gets an ordinal suffix instead of being overwritten.
func Write(r *Report, specPath string, now time.Time) (string, error) {
	data, err := Render(r)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(specPath)
	stem := strings.TrimSuffix(filepath.Base(specPath), filepath.Ext(specPath))
	ts := now.UTC().Format(timestampLayout)

	for n := 0; ; n++ {
		name := fmt.Sprintf("%s-%s%s", stem, ts, spec.ReportSuffix)
		if n > 0 {
			name = fmt.Sprintf("%s-%s-%d%s", stem, ts, n+1, spec.ReportSuffix)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create report: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write report: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
		return path, nil
	}
}
