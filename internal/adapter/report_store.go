package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	m "sunset.dev/pkg/sunset/internal/model"
)

// ReportStore persists run reports so later invocations (and the view
// command) can inspect what a run did.
type ReportStore interface {
	// Save writes the report into dir and returns the path it landed at.
	Save(dir m.Path, report m.RunReport) (m.Path, error)

	// Load reads a single report file.
	Load(path m.Path) (m.RunReport, error)

	// List returns every report file under dir, oldest first.
	List(dir m.Path) ([]m.Path, error)

	// Latest loads the most recent report under dir.
	Latest(dir m.Path) (m.RunReport, m.Path, error)
}

// YAMLReportStore stores reports as one YAML document per run, named
// run-<id>.yaml inside the reports directory.
type YAMLReportStore struct{}

// NewYAMLReportStore constructs a YAMLReportStore.
func NewYAMLReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

const reportFilePerm = 0o644

// Save implements ReportStore.
func (s *YAMLReportStore) Save(dir m.Path, report m.RunReport) (m.Path, error) {
	if err := os.MkdirAll(string(dir), 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	path := m.Path(filepath.Join(string(dir), "run-"+report.ID+".yaml"))
	if err := os.WriteFile(string(path), data, reportFilePerm); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// Load implements ReportStore.
func (s *YAMLReportStore) Load(path m.Path) (m.RunReport, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return m.RunReport{}, fmt.Errorf("reading report: %w", err)
	}
	var report m.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.RunReport{}, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return report, nil
}

// List implements ReportStore. Reports are ordered by modification time
// so the newest run sorts last.
func (s *YAMLReportStore) List(dir m.Path) ([]m.Path, error) {
	entries, err := os.ReadDir(string(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	type stamped struct {
		path m.Path
		mod  int64
	}
	var reports []stamped
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "run-") || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, stamped{
			path: m.Path(filepath.Join(string(dir), name)),
			mod:  info.ModTime().UnixNano(),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].mod != reports[j].mod {
			return reports[i].mod < reports[j].mod
		}
		return reports[i].path < reports[j].path
	})

	paths := make([]m.Path, len(reports))
	for i, r := range reports {
		paths[i] = r.path
	}
	return paths, nil
}

// Latest implements ReportStore.
func (s *YAMLReportStore) Latest(dir m.Path) (m.RunReport, m.Path, error) {
	paths, err := s.List(dir)
	if err != nil {
		return m.RunReport{}, "", err
	}
	if len(paths) == 0 {
		return m.RunReport{}, "", fmt.Errorf("no reports found in %s", dir)
	}
	last := paths[len(paths)-1]
	report, err := s.Load(last)
	return report, last, err
}
