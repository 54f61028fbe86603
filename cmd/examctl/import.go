package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/validator"
)

// catalogFile is the on-disk format of one exam with its question bank.
type catalogFile struct {
	Exam      model.UpsertExamRequest       `json:"exam"`
	Questions []model.UpsertQuestionRequest `json:"questions"`
	Sets      []model.CreateSetRequest      `json:"sets"`
}

var importCmd = &cobra.Command{
	Use:   "import <catalog.json|catalog.yaml>...",
	Short: "Create or update exams, questions and sets from catalog files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Validate files without writing")
}

func runImport(cmd *cobra.Command, args []string) error {
	files := make([]catalogFile, 0, len(args))
	for _, path := range args {
		f, err := readCatalog(path)
		if err != nil {
			return err
		}
		files = append(files, *f)
	}

	out := cmd.OutOrStdout()
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		for i, f := range files {
			fmt.Fprintf(out, "%s: exam %s, %d questions, %d sets OK\n", args[i], f.Exam.ID, len(f.Questions), len(f.Sets))
		}
		return nil
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	for i := range files {
		f := &files[i]
		exam, err := a.exams.UpsertExam(ctx, &f.Exam)
		if err != nil {
			return fmt.Errorf("%s: exam: %w", args[i], err)
		}
		for j := range f.Questions {
			if _, err := a.questions.Upsert(ctx, exam.ID, &f.Questions[j]); err != nil {
				return fmt.Errorf("%s: question %s: %w", args[i], f.Questions[j].ID, err)
			}
		}
		for j := range f.Sets {
			if _, err := a.exams.CreateSet(ctx, exam.ID, &f.Sets[j]); err != nil {
				return fmt.Errorf("%s: set %q: %w", args[i], f.Sets[j].Name, err)
			}
		}
		a.exams.InvalidateExam(ctx, exam.ID)
		fmt.Fprintf(out, "Imported %s (%s): %d questions, %d sets\n", exam.ID, exam.Title, len(f.Questions), len(f.Sets))
	}
	return nil
}

// readCatalog decodes and validates one catalog file.
func readCatalog(path string) (*catalogFile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var r io.Reader = fh
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		r, err = yamlToJSON(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return decodeCatalog(path, r)
}

// yamlToJSON re-encodes a YAML document as JSON so both formats share the
// json field names of the request models.
func yamlToJSON(r io.Reader) (io.Reader, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return bytes.NewReader(b), nil
}

func decodeCatalog(name string, r io.Reader) (*catalogFile, error) {
	var f catalogFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", name, err)
	}

	v := validator.Engine()
	if err := v.Struct(&f.Exam); err != nil {
		return nil, fmt.Errorf("%s: exam: %v", name, validator.TranslateErrors(err))
	}
	seen := make(map[string]struct{}, len(f.Questions))
	for i := range f.Questions {
		q := &f.Questions[i]
		if err := v.Struct(q); err != nil {
			return nil, fmt.Errorf("%s: question %d: %v", name, i, validator.TranslateErrors(err))
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%s: question id %s appears twice", name, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	for i := range f.Sets {
		if err := v.Struct(&f.Sets[i]); err != nil {
			return nil, fmt.Errorf("%s: set %d: %v", name, i, validator.TranslateErrors(err))
		}
	}
	return &f, nil
}
