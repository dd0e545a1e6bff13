package exchange

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/pbaille/carnet/internal/domain"
)

// ExportVCard writes the selected contacts, or all when ids is empty, as
// vCard 3.0 cards. It returns the number of cards written.
func (s *Service) ExportVCard(actor domain.Actor, w io.Writer, ids []int64) (int, error) {
	contacts, err := s.contacts(ids)
	if err != nil {
		return 0, err
	}

	enc := vcard.NewEncoder(w)
	for _, c := range contacts {
		if err := enc.Encode(toCard(c)); err != nil {
			return 0, fmt.Errorf("encode contact %d: %w", c.ID, err)
		}
	}
	return len(contacts), s.finishExport(actor, "vcard", len(contacts))
}

func toCard(c domain.Contact) vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, "3.0")
	card.AddName(&vcard.Name{
		FamilyName:      c.Surname,
		GivenName:       c.GivenName,
		HonorificPrefix: c.Civility,
	})
	card.SetValue(vcard.FieldFormattedName, c.DisplayName())

	if c.Organization != "" {
		card.SetValue(vcard.FieldOrganization, c.Organization)
	}
	if c.Title != "" {
		card.SetValue(vcard.FieldTitle, c.Title)
	}
	for _, coord := range c.Coordinates {
		switch {
		case coord.Kind == KindEmail:
			card.AddValue(vcard.FieldEmail, coord.Value)
		case isPhone(coord.Kind):
			field := &vcard.Field{Value: coord.Value}
			if strings.EqualFold(coord.Kind, KindCell) {
				field.Params = vcard.Params{vcard.ParamType: {vcard.TypeCell}}
			}
			card.Add(vcard.FieldTelephone, field)
		}
	}
	if c.Street != "" || c.City != "" || c.PostalCode != "" || c.Country != "" {
		card.AddAddress(&vcard.Address{
			StreetAddress: c.Street,
			Locality:      c.City,
			PostalCode:    c.PostalCode,
			Country:       c.Country,
		})
	}
	if c.Website != "" {
		card.SetValue(vcard.FieldURL, c.Website)
	}
	if c.BirthDate != "" {
		card.SetValue(vcard.FieldBirthday, c.BirthDate)
	}
	if len(c.Tags) > 0 {
		card.SetCategories(tagNames(c.Tags))
	}
	return card
}

// ImportVCard creates a contact per card, with the same duplicate policy and
// error reporting as ImportCSV. CATEGORIES become tags. A malformed card ends
// the import; the cards before it are kept.
func (s *Service) ImportVCard(actor domain.Actor, r io.Reader) (*ImportReport, error) {
	dec := vcard.NewDecoder(r)
	report := &ImportReport{}

	for n := 1; ; n++ {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The decoder cannot resync after a malformed card
			report.Errors = append(report.Errors, fmt.Sprintf("card %d: %v", n, err))
			break
		}

		in, tags := fromCard(card)
		dup, err := s.importOne(actor, in, tags)
		switch {
		case err != nil:
			report.Errors = append(report.Errors, fmt.Sprintf("card %d: %v", n, err))
		case dup:
			report.Duplicates++
		default:
			report.Imported++
		}
	}

	if err := s.finishImport(actor, "vcard", report); err != nil {
		return report, err
	}
	return report, nil
}

func fromCard(card vcard.Card) (domain.ContactInput, []string) {
	var in domain.ContactInput
	if name := card.Name(); name != nil {
		in.Surname = strings.TrimSpace(name.FamilyName)
		in.GivenName = strings.TrimSpace(name.GivenName)
		in.Civility = strings.TrimSpace(name.HonorificPrefix)
	}
	if in.Surname == "" {
		// Cards without N: take the last word of FN as surname
		parts := strings.Fields(card.Value(vcard.FieldFormattedName))
		if len(parts) > 0 {
			in.Surname = parts[len(parts)-1]
			in.GivenName = strings.Join(parts[:len(parts)-1], " ")
		}
	}

	in.Organization = strings.TrimSpace(strings.Split(card.Value(vcard.FieldOrganization), ";")[0])
	in.Title = card.Value(vcard.FieldTitle)
	in.Website = card.Value(vcard.FieldURL)
	in.BirthDate = card.Value(vcard.FieldBirthday)

	if addr := card.Address(); addr != nil {
		in.Street = addr.StreetAddress
		in.City = addr.Locality
		in.PostalCode = addr.PostalCode
		in.Country = addr.Country
	}

	for _, email := range card.Values(vcard.FieldEmail) {
		in.Coordinates = append(in.Coordinates, domain.Coordinate{Kind: KindEmail, Value: email})
	}
	for _, tel := range card[vcard.FieldTelephone] {
		kind := KindPhone
		for _, t := range tel.Params[vcard.ParamType] {
			if strings.EqualFold(t, vcard.TypeCell) {
				kind = KindCell
			}
		}
		in.Coordinates = append(in.Coordinates, domain.Coordinate{Kind: kind, Value: tel.Value})
	}

	return in, splitList(strings.Join(card.Categories(), ","), ",")
}
