// Package bank reads and writes the YAML question banks.
//
// Every bank file is a single top-level sequence of questions. Mutations
// decode the whole document, change it, and rewrite the file under a
// per-file lock. Entries are kept as yaml nodes during the round trip so
// fields this tool does not know about survive a rewrite of hand-authored
// banks.
package bank

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/iller5/content-cli/internal/model"
)

// Writer serializes read-modify-write cycles on the bank files in dir.
// Each file gets its own lock, so appends to different banks proceed in
// parallel while appends to the same bank queue up.
type Writer struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriter creates a Writer for the bank files in dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, locks: make(map[string]*sync.Mutex)}
}

// Dir returns the directory this Writer manages.
func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) lock(file string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[file]
	if !ok {
		l = &sync.Mutex{}
		w.locks[file] = l
	}
	return l
}

// Append adds questions to the named bank file, preserving everything
// already present. The append is durable when Append returns.
func (w *Writer) Append(file string, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	l := w.lock(file)
	l.Lock()
	defer l.Unlock()

	path := filepath.Join(w.dir, file)
	seq, err := readSequence(path)
	if err != nil {
		return err
	}
	for i := range questions {
		var node yaml.Node
		if err := node.Encode(&questions[i]); err != nil {
			return eris.Wrapf(err, "bank: encode question %s", questions[i].ID)
		}
		seq.Content = append(seq.Content, &node)
	}
	return writeSequence(path, seq)
}

// ReadQuestions decodes a bank file into typed questions.
func ReadQuestions(path string) ([]model.Question, error) {
	seq, err := readSequence(path)
	if err != nil {
		return nil, err
	}
	out := make([]model.Question, 0, len(seq.Content))
	for _, n := range seq.Content {
		var q model.Question
		if err := n.Decode(&q); err != nil {
			return nil, eris.Wrapf(err, "bank: decode entry in %s", path)
		}
		out = append(out, q)
	}
	return out, nil
}

// readSequence loads the top-level sequence of a bank file. A missing
// file, empty document, or explicit null all yield an empty sequence; any
// other shape is an error rather than a silent reset.
func readSequence(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptySequence(), nil
		}
		return nil, eris.Wrapf(err, "bank: read %s", path)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "bank: parse %s", path)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return emptySequence(), nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return emptySequence(), nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, eris.Errorf("bank: %s is not a question list", path)
	}
	return root, nil
}

func emptySequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func writeSequence(path string, seq *yaml.Node) error {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrapf(err, "bank: encode %s", path)
	}
	if err := enc.Close(); err != nil {
		return eris.Wrapf(err, "bank: encode %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "bank: create dir for %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "bank: write %s", path)
	}
	return nil
}
