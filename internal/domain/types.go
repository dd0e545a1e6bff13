package domain

import "time"

// Actor identifies who performs a mutation. The zero value is the system.
type Actor struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// IsSystem reports whether the actor is not tied to a user row
func (a Actor) IsSystem() bool {
	return a.UserID == 0
}

// Contact represents a person or organization in the book
type Contact struct {
	ID           int64        `json:"id"`
	Civility     string       `json:"civility,omitempty"`
	Surname      string       `json:"surname"`
	GivenName    string       `json:"given_name,omitempty"`
	Organization string       `json:"organization,omitempty"`
	Title        string       `json:"title,omitempty"`
	Category     string       `json:"category,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	PhotoPath    string       `json:"photo_path,omitempty"`
	BirthDate    string       `json:"birth_date,omitempty"`
	Website      string       `json:"website,omitempty"`
	Street       string       `json:"street,omitempty"`
	PostalCode   string       `json:"postal_code,omitempty"`
	City         string       `json:"city,omitempty"`
	Country      string       `json:"country,omitempty"`
	Coordinates  []Coordinate `json:"coordinates,omitempty"`
	SocialLinks  []SocialLink `json:"social_links,omitempty"`
	Tags         []Tag        `json:"tags,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DisplayName returns "Given Surname", or just the surname
func (c Contact) DisplayName() string {
	if c.GivenName == "" {
		return c.Surname
	}
	return c.GivenName + " " + c.Surname
}

// ContactInput carries the editable fields of a contact
type ContactInput struct {
	Civility     string
	Surname      string
	GivenName    string
	Organization string
	Title        string
	Category     string
	PhotoPath    string
	BirthDate    string
	Website      string
	Street       string
	PostalCode   string
	City         string
	Country      string
	Coordinates  []Coordinate
	SocialLinks  []SocialLink
}

// InputOf returns the editable fields of c
func InputOf(c Contact) ContactInput {
	return ContactInput{
		Civility:     c.Civility,
		Surname:      c.Surname,
		GivenName:    c.GivenName,
		Organization: c.Organization,
		Title:        c.Title,
		Category:     c.Category,
		PhotoPath:    c.PhotoPath,
		BirthDate:    c.BirthDate,
		Website:      c.Website,
		Street:       c.Street,
		PostalCode:   c.PostalCode,
		City:         c.City,
		Country:      c.Country,
	}
}

// Coordinate is a phone number or email attached to a contact
type Coordinate struct {
	ID        int64  `json:"id"`
	ContactID int64  `json:"contact_id"`
	Kind      string `json:"kind"`
	Value     string `json:"value"`
	Primary   bool   `json:"primary"`
}

// SocialLink is a web or social profile of a contact
type SocialLink struct {
	ID        int64  `json:"id"`
	ContactID int64  `json:"contact_id"`
	Platform  string `json:"platform"`
	URL       string `json:"url"`
}

// Tag represents a user-defined label
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagCount pairs a tag with the number of contacts holding it
type TagCount struct {
	Tag   Tag `json:"tag"`
	Count int `json:"count"`
}

// MatchMode selects intersection or union semantics for multi-tag search
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// Relation is a directed, labelled edge between two contacts
type Relation struct {
	ID                int64     `json:"id"`
	SourceID          int64     `json:"source_id"`
	TargetID          int64     `json:"target_id"`
	Kind              string    `json:"kind"`
	SourceDisplayName string    `json:"source_name,omitempty"`
	TargetDisplayName string    `json:"target_name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// GraphNode is a contact as seen by a network visualisation
type GraphNode struct {
	ID        int64  `json:"id"`
	Surname   string `json:"surname"`
	GivenName string `json:"given_name,omitempty"`
}

// Graph is the flat node/edge view of all relations
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []Relation  `json:"edges"`
}

// ContactRef is a short contact summary
type ContactRef struct {
	ID        int64  `json:"id"`
	Surname   string `json:"surname"`
	GivenName string `json:"given_name,omitempty"`
}

// DisplayName returns "Given Surname", or just the surname
func (r ContactRef) DisplayName() string {
	return Contact{Surname: r.Surname, GivenName: r.GivenName}.DisplayName()
}

// DuplicatePair is two contacts whose normalized names match. First.ID < Second.ID.
type DuplicatePair struct {
	First  ContactRef `json:"first"`
	Second ContactRef `json:"second"`
}

// Field names a mergeable contact field
type Field string

const (
	FieldCivility     Field = "civility"
	FieldSurname      Field = "surname"
	FieldGivenName    Field = "given_name"
	FieldOrganization Field = "organization"
	FieldTitle        Field = "title"
	FieldCategory     Field = "category"
	FieldBirthDate    Field = "birth_date"
	FieldWebsite      Field = "website"
	FieldStreet       Field = "street"
	FieldPostalCode   Field = "postal_code"
	FieldCity         Field = "city"
	FieldCountry      Field = "country"
)

// MergeableFields lists every field a merge can take from either contact
var MergeableFields = []Field{
	FieldCivility, FieldSurname, FieldGivenName, FieldOrganization, FieldTitle,
	FieldCategory, FieldBirthDate, FieldWebsite, FieldStreet, FieldPostalCode,
	FieldCity, FieldCountry,
}

// IsMergeable reports whether f is one of MergeableFields
func IsMergeable(f Field) bool {
	for _, m := range MergeableFields {
		if m == f {
			return true
		}
	}
	return false
}

// Field returns a pointer to the value of f in the input, or nil when f is not
// a mergeable field
func (in *ContactInput) Field(f Field) *string {
	switch f {
	case FieldCivility:
		return &in.Civility
	case FieldSurname:
		return &in.Surname
	case FieldGivenName:
		return &in.GivenName
	case FieldOrganization:
		return &in.Organization
	case FieldTitle:
		return &in.Title
	case FieldCategory:
		return &in.Category
	case FieldBirthDate:
		return &in.BirthDate
	case FieldWebsite:
		return &in.Website
	case FieldStreet:
		return &in.Street
	case FieldPostalCode:
		return &in.PostalCode
	case FieldCity:
		return &in.City
	case FieldCountry:
		return &in.Country
	}
	return nil
}

// Interaction is a logged exchange with a contact (call, meeting, email...)
type Interaction struct {
	ID          int64      `json:"id"`
	ContactID   int64      `json:"contact_id"`
	Kind        string     `json:"kind"`
	OccurredAt  time.Time  `json:"occurred_at"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Contact     ContactRef `json:"contact"`
}

// Reminder is a dated follow-up on a contact
type Reminder struct {
	ID          int64      `json:"id"`
	ContactID   int64      `json:"contact_id"`
	Kind        string     `json:"kind,omitempty"`
	Title       string     `json:"title"`
	DueAt       time.Time  `json:"due_at"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	Repeat      string     `json:"repeat,omitempty"`
	Done        bool       `json:"done"`
	Contact     ContactRef `json:"contact"`
}

// Birthday is an upcoming anniversary of a contact's birth date
type Birthday struct {
	Contact ContactRef `json:"contact"`
	Date    time.Time  `json:"date"`
	Age     int        `json:"age"`
}

// Task statuses as stored in the database
const (
	StatusTodo       = "A faire"
	StatusInProgress = "En cours"
	StatusDone       = "Terminé"
)

// Task is a to-do linked to one or more contacts
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DueDate     string       `json:"due_date,omitempty"`
	Priority    string       `json:"priority"`
	Status      string       `json:"status"`
	ProjectID   *int64       `json:"project_id,omitempty"`
	Contacts    []ContactRef `json:"contacts,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Project groups tasks
type Project struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Goal           string        `json:"goal,omitempty"`
	StartDate      string        `json:"start_date,omitempty"`
	PlannedEndDate string        `json:"planned_end_date,omitempty"`
	Stats          *ProjectStats `json:"stats,omitempty"`
	Contacts       []ContactRef  `json:"contacts,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ProjectStats summarises task progress within a project
type ProjectStats struct {
	Total      int     `json:"total"`
	Done       int     `json:"done"`
	InProgress int     `json:"in_progress"`
	Todo       int     `json:"todo"`
	Progress   float64 `json:"progress"`
}

// Roles of the user layer
const (
	RoleOwner      = "proprietaire"
	RoleConsultant = "consultant"
)

// User is an account of the thin multi-user layer
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	Surname     string     `json:"surname,omitempty"`
	GivenName   string     `json:"given_name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Actor returns the audit identity of u
func (u User) Actor() Actor {
	return Actor{UserID: u.ID, Username: u.Username}
}

// AuditEntry records one successful mutation
type AuditEntry struct {
	ID          string    `json:"id"`
	UserID      *int64    `json:"user_id,omitempty"`
	Action      string    `json:"action"`
	TargetTable string    `json:"target_table,omitempty"`
	TargetID    *int64    `json:"target_id,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Count is one bucket of a grouped statistic
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ActiveContact is a contact ranked by its number of interactions
type ActiveContact struct {
	Contact      ContactRef `json:"contact"`
	Interactions int        `json:"interactions"`
}

// Stats summarises the whole book
type Stats struct {
	Contacts      int `json:"contacts"`
	Tags          int `json:"tags"`
	Relations     int `json:"relations"`
	Interactions  int `json:"interactions"`
	OpenReminders int `json:"open_reminders"`
	OpenTasks     int `json:"open_tasks"`
	Projects      int `json:"projects"`
}
