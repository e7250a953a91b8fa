package bank

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/iller5/content-cli/internal/model"
)

// StripImports removes import-minted questions from every bank file in
// dir, leaving hand-authored entries untouched. Only changed files are
// rewritten. With dryRun nothing is written. Returns the number of
// removed entries per file.
func StripImports(dir string, dryRun bool) (map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "bank: read dir %s", dir)
	}

	removed := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		seq, err := readSequence(path)
		if err != nil {
			return nil, err
		}

		kept := make([]*yaml.Node, 0, len(seq.Content))
		dropped := 0
		for _, n := range seq.Content {
			var probe struct {
				ID string `yaml:"id"`
			}
			if err := n.Decode(&probe); err != nil {
				return nil, eris.Wrapf(err, "bank: decode entry in %s", path)
			}
			if model.IsImportID(probe.ID) {
				dropped++
				continue
			}
			kept = append(kept, n)
		}
		if dropped == 0 {
			continue
		}
		removed[entry.Name()] = dropped
		if dryRun {
			continue
		}
		seq.Content = kept
		if err := writeSequence(path, seq); err != nil {
			return nil, err
		}
	}
	return removed, nil
}
