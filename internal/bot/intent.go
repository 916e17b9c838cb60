// Package bot exposes the CRM's operations to a chat front end. The chat
// transport and the message classifier are external collaborators: whatever
// turns a raw message into an Intent lives outside this package, and replies
// come back as plain strings for the transport to deliver.
package bot

// Intent is one classified chat message. Exactly one variant per intent the
// classifier can produce; each carries only the fields that intent uses.
type Intent interface {
	isIntent()
}

type AddLead struct {
	Name     string
	Phone    string
	Email    string
	Address  string
	City     string
	State    string
	Zip      string
	Source   string
	Issue    string
	Priority string
	Notes    string
}

type UpdateLead struct {
	LeadRef  string // name or phone of the lead being referenced
	Name     string
	Phone    string
	Email    string
	Address  string
	City     string
	State    string
	Zip      string
	Status   string
	Priority string
	Notes    string
}

type SearchLead struct {
	Query string
}

type AddAppointment struct {
	LeadRef string
	Date    string // YYYY-MM-DD
	Time    string // HH:MM, optional
	Type    string
	Notes   string
}

type StatusCheck struct{}

type AddNote struct {
	LeadRef string
	Note    string
}

type SetReminder struct {
	LeadRef string // optional
	Date    string // YYYY-MM-DD
	Time    string // HH:MM, optional
	Text    string
}

func (AddLead) isIntent()        {}
func (UpdateLead) isIntent()     {}
func (SearchLead) isIntent()     {}
func (AddAppointment) isIntent() {}
func (StatusCheck) isIntent()    {}
func (AddNote) isIntent()        {}
func (SetReminder) isIntent()    {}
