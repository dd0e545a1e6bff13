// Package exchange moves contacts in and out of the book as CSV and vCard.
package exchange

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/store"
)

// ErrNothingToExport is returned when an export selects no contact
var ErrNothingToExport = errors.New("no contacts to export")

// Book is the part of the store the exchange layer reads and writes
type Book interface {
	CreateContact(actor domain.Actor, in domain.ContactInput) (int64, error)
	IsDuplicate(surname, givenName string, blankGivenMatchesAny bool) (bool, error)
	EnsureTag(actor domain.Actor, name string) (*domain.Tag, error)
	AssignTag(actor domain.Actor, tagID, contactID int64) error
	DeleteContact(actor domain.Actor, id int64) error
	GetContact(id int64) (*domain.Contact, error)
	ListContacts(limit, offset uint64) ([]domain.Contact, error)
	Record(actor domain.Actor, action, table string, targetID int64, details string) error
}

// ImportReport summarises an import. Errors name the failing line or card.
type ImportReport struct {
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Errors     []string `json:"errors,omitempty"`
}

// Service runs imports and exports against a Book
type Service struct {
	book Book
	log  *zap.Logger
	// BlankGivenMatchesAny makes an imported contact without given name a
	// duplicate of any contact with the same surname
	BlankGivenMatchesAny bool
}

// New returns a Service. A nil logger discards output.
func New(book Book, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{book: book, log: log, BlankGivenMatchesAny: true}
}

// importOne creates a contact unless it duplicates an existing one, then
// attaches its tags. It reports whether the contact was a duplicate.
func (s *Service) importOne(actor domain.Actor, in domain.ContactInput, tags []string) (bool, error) {
	if strings.TrimSpace(in.Surname) == "" {
		return false, errors.New("surname is required")
	}

	dup, err := s.book.IsDuplicate(in.Surname, in.GivenName, s.BlankGivenMatchesAny)
	if err != nil {
		return false, err
	}
	if dup {
		return true, nil
	}

	id, err := s.book.CreateContact(actor, in)
	if err != nil {
		return false, err
	}
	if err := s.tag(actor, id, tags); err != nil {
		// A half-imported contact would turn the retry into a duplicate
		if derr := s.book.DeleteContact(actor, id); derr != nil {
			s.log.Warn("cannot undo partial import", zap.Int64("contact", id), zap.Error(derr))
		}
		return false, err
	}
	return false, nil
}

func (s *Service) tag(actor domain.Actor, contactID int64, tags []string) error {
	for _, name := range tags {
		tag, err := s.book.EnsureTag(actor, name)
		if err != nil {
			return fmt.Errorf("tag %q: %w", name, err)
		}
		if err := s.book.AssignTag(actor, tag.ID, contactID); err != nil {
			return fmt.Errorf("tag %q: %w", name, err)
		}
	}
	return nil
}

func (s *Service) finishImport(actor domain.Actor, format string, report *ImportReport) error {
	details := fmt.Sprintf("%s: imported %d, duplicates %d, errors %d",
		format, report.Imported, report.Duplicates, len(report.Errors))
	s.log.Info("import finished",
		zap.String("format", format),
		zap.Int("imported", report.Imported),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("errors", len(report.Errors)),
	)
	return s.book.Record(actor, store.ActionImport, "contacts", 0, details)
}

// contacts loads the selected contacts with their details. No ids selects
// every contact; unknown ids are skipped.
func (s *Service) contacts(ids []int64) ([]domain.Contact, error) {
	if len(ids) == 0 {
		all, err := s.book.ListContacts(0, 0)
		if err != nil {
			return nil, err
		}
		for _, c := range all {
			ids = append(ids, c.ID)
		}
	}

	var out []domain.Contact
	for _, id := range ids {
		c, err := s.book.GetContact(id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if len(out) == 0 {
		return nil, ErrNothingToExport
	}
	return out, nil
}

func (s *Service) finishExport(actor domain.Actor, format string, n int) error {
	s.log.Info("export finished", zap.String("format", format), zap.Int("contacts", n))
	return s.book.Record(actor, store.ActionExport, "contacts", 0,
		fmt.Sprintf("%s: %d contacts exported", format, n))
}

// splitList splits a separated list, dropping blanks and repeats
func splitList(s string, sep string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func tagNames(tags []domain.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}
