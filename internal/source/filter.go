package source

import (
	"strings"

	"go.uber.org/zap"

	"github.com/iller5/content-cli/internal/model"
)

// ImportedSet reports whether a source ID has already been imported.
type ImportedSet interface {
	Contains(id string) bool
}

// Split partitions source rows by what the importer should do with them.
type Split struct {
	Eligible []model.RawQuestion // needs enrichment
	Imported []model.RawQuestion // already in the import log
	Poisoned []model.RawQuestion // carries a poison marker, skip without enrichment
}

// Filter partitions rows against the import log and the poison markers.
// The log wins: a row that is both imported and poisoned counts as
// imported. Marking poisoned rows in the log is the caller's job.
func Filter(rows []model.RawQuestion, imported ImportedSet, markers []string) Split {
	var s Split
	for _, row := range rows {
		switch {
		case imported.Contains(row.SourceID):
			s.Imported = append(s.Imported, row)
		case poisoned(row.Text, markers):
			zap.L().Info("source: skipping image-bound question",
				zap.String("source_id", row.SourceID))
			s.Poisoned = append(s.Poisoned, row)
		default:
			s.Eligible = append(s.Eligible, row)
		}
	}
	return s
}

func poisoned(text string, markers []string) bool {
	upper := strings.ToUpper(text)
	for _, m := range markers {
		if m != "" && strings.Contains(upper, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}
