package bank

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iller5/content-cli/internal/model"
)

// quarantineDir holds source rows that failed validation; it never ships.
const quarantineDir = "incorrectly_formatted_questions"

// Bundle is the aggregate content document served to the app.
type Bundle struct {
	Subjects  []string         `json:"subjects"`
	Questions []BundleQuestion `json:"questions"`
	Meta      BundleMeta       `json:"meta"`
}

// BundleQuestion is a bank entry tagged with its subject/topic origin.
type BundleQuestion struct {
	model.Question
	Source string `json:"source"`
}

// BundleMeta describes the generated bundle.
type BundleMeta struct {
	TotalQuestions int    `json:"total_questions"`
	GeneratedAt    string `json:"generated_at"`
}

// BuildBundle merges every subject's banks under root into one document.
// Each directory under root is a subject; each YAML file inside is a
// topic. Hidden directories and the quarantine directory are skipped.
func BuildBundle(root string) (*Bundle, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "bank: read data dir %s", root)
	}

	b := &Bundle{Subjects: []string{}, Questions: []BundleQuestion{}}
	for _, subject := range entries {
		if !subject.IsDir() || strings.HasPrefix(subject.Name(), ".") || subject.Name() == quarantineDir {
			continue
		}
		subjectDir := filepath.Join(root, subject.Name())
		files, err := os.ReadDir(subjectDir)
		if err != nil {
			return nil, eris.Wrapf(err, "bank: read subject dir %s", subjectDir)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
				continue
			}
			topic := strings.TrimSuffix(f.Name(), ".yaml")
			qs, err := ReadQuestions(filepath.Join(subjectDir, f.Name()))
			if err != nil {
				return nil, err
			}
			for _, q := range qs {
				b.Questions = append(b.Questions, BundleQuestion{
					Question: q,
					Source:   subject.Name() + "/" + topic,
				})
			}
		}
		b.Subjects = append(b.Subjects, subject.Name())
	}

	b.Meta = BundleMeta{
		TotalQuestions: len(b.Questions),
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	return b, nil
}

// WriteBundle builds the bundle and writes it as indented JSON to out.
func WriteBundle(root, out string) (*Bundle, error) {
	b, err := BuildBundle(root)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "bank: encode bundle")
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "bank: create output dir %s", dir)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return nil, eris.Wrapf(err, "bank: write bundle %s", out)
	}
	return b, nil
}
