package exchange

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pbaille/carnet/internal/domain"
)

// Import targets besides the mergeable contact fields
const (
	TargetEmail = "email"
	TargetPhone = "phone"
	TargetTags  = "tags"
)

// Coordinate kinds written by imports and read by exports
const (
	KindEmail = "email"
	KindPhone = "telephone"
	KindCell  = "mobile"
)

// Mapping maps a CSV column header to a contact field name or one of the
// Target constants. Unmapped columns are ignored.
type Mapping map[string]string

// headerAliases recognises common English and French column names
var headerAliases = map[string]string{
	"civility": "civility", "civilite": "civility", "civilité": "civility",
	"surname": "surname", "nom": "surname", "name": "surname", "last_name": "surname", "lastname": "surname",
	"given_name": "given_name", "prenom": "given_name", "prénom": "given_name", "first_name": "given_name", "firstname": "given_name",
	"organization": "organization", "societe": "organization", "société": "organization", "company": "organization", "entreprise": "organization",
	"title": "title", "poste": "title", "job": "title", "fonction": "title",
	"category": "category", "categorie": "category", "catégorie": "category",
	"birth_date": "birth_date", "date_naissance": "birth_date", "birthday": "birth_date",
	"website": "website", "site_web": "website", "url": "website",
	"street": "street", "rue": "street", "adresse": "street", "adresse_rue": "street",
	"postal_code": "postal_code", "code_postal": "postal_code", "zip": "postal_code", "cp": "postal_code",
	"city": "city", "ville": "city", "adresse_ville": "city",
	"country": "country", "pays": "country", "adresse_pays": "country",
	"email": TargetEmail, "mail": TargetEmail, "e-mail": TargetEmail,
	"phone": TargetPhone, "telephone": TargetPhone, "téléphone": TargetPhone, "tel": TargetPhone, "mobile": TargetPhone,
	"tags": TargetTags, "tag": TargetTags,
}

// AutoMapping guesses a Mapping from a CSV header
func AutoMapping(header []string) Mapping {
	m := make(Mapping)
	for _, col := range header {
		if target, ok := headerAliases[strings.ToLower(strings.TrimSpace(col))]; ok {
			m[col] = target
		}
	}
	return m
}

func (m Mapping) validate() error {
	for col, target := range m {
		switch target {
		case "", TargetEmail, TargetPhone, TargetTags:
			continue
		}
		if !domain.IsMergeable(domain.Field(target)) {
			return fmt.Errorf("column %q: unknown field %q", col, target)
		}
	}
	return nil
}

// exportHeader is the fixed column set of CSV exports
var exportHeader = func() []string {
	h := []string{"id"}
	for _, f := range domain.MergeableFields {
		h = append(h, string(f))
	}
	return append(h, TargetEmail, TargetPhone, TargetTags)
}()

// ImportCSV creates a contact per CSV row. The first row is the header. A nil
// mapping is guessed with AutoMapping. Duplicates are counted and skipped; a
// failing row is reported and does not stop the import.
func (s *Service) ImportCSV(actor domain.Actor, r io.Reader, mapping Mapping) (*ImportReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if mapping == nil {
		mapping = AutoMapping(header)
	}
	if err := mapping.validate(); err != nil {
		return nil, err
	}

	report := &ImportReport{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		in, tags := rowInput(header, record, mapping)
		dup, err := s.importOne(actor, in, tags)
		switch {
		case err != nil:
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
		case dup:
			report.Duplicates++
		default:
			report.Imported++
		}
	}

	if err := s.finishImport(actor, "csv", report); err != nil {
		return report, err
	}
	return report, nil
}

func rowInput(header, record []string, mapping Mapping) (domain.ContactInput, []string) {
	var in domain.ContactInput
	var tags []string
	for i, col := range header {
		if i >= len(record) {
			break
		}
		value := strings.TrimSpace(record[i])
		if value == "" {
			continue
		}
		switch target := mapping[col]; target {
		case "":
		case TargetEmail:
			for _, v := range splitList(value, ";") {
				in.Coordinates = append(in.Coordinates, domain.Coordinate{Kind: KindEmail, Value: v})
			}
		case TargetPhone:
			for _, v := range splitList(value, ";") {
				in.Coordinates = append(in.Coordinates, domain.Coordinate{Kind: KindPhone, Value: v})
			}
		case TargetTags:
			tags = append(tags, splitList(value, ";")...)
		default:
			*in.Field(domain.Field(target)) = value
		}
	}
	return in, tags
}

// ExportCSV writes the selected contacts, or all when ids is empty, as CSV
// with a fixed header. It returns the number of contacts written.
func (s *Service) ExportCSV(actor domain.Actor, w io.Writer, ids []int64) (int, error) {
	contacts, err := s.contacts(ids)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range contacts {
		if err := cw.Write(exportRow(c)); err != nil {
			return 0, fmt.Errorf("write contact %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	return len(contacts), s.finishExport(actor, "csv", len(contacts))
}

func exportRow(c domain.Contact) []string {
	in := domain.InputOf(c)
	row := []string{strconv.FormatInt(c.ID, 10)}
	for _, f := range domain.MergeableFields {
		row = append(row, *in.Field(f))
	}

	var emails, phones []string
	for _, coord := range c.Coordinates {
		switch {
		case coord.Kind == KindEmail:
			emails = append(emails, coord.Value)
		case isPhone(coord.Kind):
			phones = append(phones, coord.Value)
		}
	}
	return append(row,
		strings.Join(emails, ";"),
		strings.Join(phones, ";"),
		strings.Join(tagNames(c.Tags), ";"),
	)
}

func isPhone(kind string) bool {
	switch strings.ToLower(kind) {
	case KindPhone, KindCell, "fixe", "phone", "tel":
		return true
	}
	return false
}
