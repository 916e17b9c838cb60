package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rooftrack-engine/internal/events"
	"rooftrack-engine/internal/followup"
	"rooftrack-engine/internal/pipeline"
	"rooftrack-engine/internal/store"
)

var statusEmoji = map[string]string{
	pipeline.StatusNew:            "🆕",
	pipeline.StatusContacted:      "📞",
	pipeline.StatusQuoted:         "💰",
	pipeline.StatusAccepted:       "✅",
	pipeline.StatusScheduled:      "📅",
	pipeline.StatusCompleted:      "🏠",
	pipeline.StatusPaid:           "💵",
	pipeline.StatusReviewReceived: "⭐",
	pipeline.StatusLost:           "❌",
}

var priorityEmoji = map[string]string{
	"hot":  "🔥",
	"warm": "🌡️",
	"cold": "❄️",
}

// Handler executes intents against the store. Now is injectable for tests.
type Handler struct {
	DB  *sql.DB
	Hub *events.Hub
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) publish(typ string, data any) {
	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent("", typ, 1, data))
	}
}

// Handle runs one intent for the given chat user and returns the reply text.
// Lookup misses and missing fields come back as friendly replies, not errors;
// the error return is for store failures only.
func (h *Handler) Handle(ctx context.Context, chatUserID string, in Intent) (string, error) {
	switch v := in.(type) {
	case AddLead:
		return h.addLead(ctx, v)
	case UpdateLead:
		return h.updateLead(ctx, v)
	case SearchLead:
		return h.searchLead(ctx, v)
	case AddAppointment:
		return h.addAppointment(ctx, v)
	case StatusCheck:
		return h.statusCheck(ctx)
	case AddNote:
		return h.addNote(ctx, v)
	case SetReminder:
		return h.setReminder(ctx, chatUserID, v)
	default:
		return "🤔 I didn't understand that. Try /help for examples.", nil
	}
}

// FormatPhone normalizes ten-digit phone numbers to xxx-xxx-xxxx; anything
// else passes through untouched.
func FormatPhone(phone string) string {
	if phone == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 10 {
		return d[0:3] + "-" + d[3:6] + "-" + d[6:]
	}
	return phone
}

func (h *Handler) addLead(ctx context.Context, in AddLead) (string, error) {
	if in.Name == "" {
		return "⚠️ Could not create lead: Name is required.", nil
	}

	notes := in.Notes
	if notes == "" {
		notes = in.Issue
	}
	l := store.Lead{
		Name:          in.Name,
		Phone:         FormatPhone(in.Phone),
		Email:         in.Email,
		Address:       in.Address,
		City:          in.City,
		State:         in.State,
		Zip:           in.Zip,
		SourceChannel: in.Source,
		Priority:      in.Priority,
		Notes:         notes,
	}
	if l.City == "" {
		l.City = "Irving"
	}
	if l.State == "" {
		l.State = "TX"
	}
	if l.SourceChannel == "" {
		l.SourceChannel = "chat"
	}
	if err := store.CreateLead(ctx, h.DB, &l); err != nil {
		return "", err
	}
	if _, err := store.LogInteraction(ctx, h.DB, l.ID, "system",
		fmt.Sprintf("Lead created via chat: %s", l.Name), "chat_bot"); err != nil {
		return "", err
	}
	h.publish(events.TypeLeadCreated, map[string]any{"id": l.ID})

	auto, err := followup.Schedule(ctx, h.DB, l.ID, l.Notes, h.now())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("✅ *Lead Created!*\n\n")
	fmt.Fprintf(&b, "👤 *Name:* %s\n", l.Name)
	if l.Phone != "" {
		fmt.Fprintf(&b, "📱 *Phone:* %s\n", l.Phone)
	}
	if l.Email != "" {
		fmt.Fprintf(&b, "📧 *Email:* %s\n", l.Email)
	}
	if l.Address != "" {
		fmt.Fprintf(&b, "📍 *Address:* %s\n", l.Address)
	}
	fmt.Fprintf(&b, "🏙️ *Location:* %s, %s\n", l.City, l.State)
	pe := priorityEmoji[l.Priority]
	if pe == "" {
		pe = "🌡️"
	}
	fmt.Fprintf(&b, "%s *Priority:* %s\n", pe, l.Priority)
	fmt.Fprintf(&b, "📣 *Source:* %s\n", l.SourceChannel)
	if l.Notes != "" {
		fmt.Fprintf(&b, "📝 *Notes:* %s\n", l.Notes)
	}
	for _, a := range auto {
		fmt.Fprintf(&b, "⏰ Follow-up booked for %s\n", a.ScheduledDate)
	}
	return b.String(), nil
}

func (h *Handler) updateLead(ctx context.Context, in UpdateLead) (string, error) {
	ref := in.LeadRef
	if ref == "" {
		ref = in.Name
	}
	if ref == "" {
		ref = in.Phone
	}
	lead, err := store.FindLead(ctx, h.DB, ref)
	if errors.Is(err, store.ErrNotFound) {
		return "⚠️ Could not find a lead matching that name or phone number.", nil
	}
	if err != nil {
		return "", err
	}

	var p store.LeadPatch
	set := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	if in.Name != "" && in.Name != lead.Name {
		p.Name = &in.Name
	}
	set(&p.Phone, FormatPhone(in.Phone))
	set(&p.Email, in.Email)
	set(&p.Address, in.Address)
	set(&p.City, in.City)
	set(&p.State, in.State)
	set(&p.Zip, in.Zip)
	set(&p.Priority, in.Priority)
	set(&p.Notes, in.Notes)

	changed, err := store.UpdateLead(ctx, h.DB, lead.ID, p)
	if err != nil {
		return "", err
	}

	if in.Status != "" {
		if err := pipeline.Transition(ctx, h.DB, lead.ID, in.Status, h.now()); err != nil {
			return "", err
		}
		changed++
		h.publish(events.TypeStatusChanged, map[string]any{"id": lead.ID, "status": in.Status})
	}

	if changed == 0 {
		return "⚠️ No fields to update were found in your message.", nil
	}

	if _, err := store.LogInteraction(ctx, h.DB, lead.ID, "note",
		fmt.Sprintf("Lead updated via chat: %d field(s) changed", changed), "chat_bot"); err != nil {
		return "", err
	}
	h.publish(events.TypeLeadUpdated, map[string]any{"id": lead.ID})

	// Edited notes get the same parse-and-schedule pass as fresh ones.
	var auto []store.Appointment
	if in.Notes != "" {
		auto, err = followup.Schedule(ctx, h.DB, lead.ID, in.Notes, h.now())
		if err != nil {
			return "", err
		}
	}

	reply := fmt.Sprintf("✅ *Lead Updated!*\n\n👤 %s\n📝 Updated %d field(s)", lead.Name, changed)
	for _, a := range auto {
		reply += fmt.Sprintf("\n⏰ Follow-up booked for %s", a.ScheduledDate)
	}
	return reply, nil
}

func (h *Handler) searchLead(ctx context.Context, in SearchLead) (string, error) {
	leads, err := store.SearchLeads(ctx, h.DB, in.Query, 10)
	if err != nil {
		return "", err
	}
	if len(leads) == 0 {
		return fmt.Sprintf("🔍 No leads found matching %q", in.Query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Found %d lead(s):*\n\n", len(leads))
	for _, l := range leads {
		se := statusEmoji[l.Status]
		if se == "" {
			se = "📋"
		}
		fmt.Fprintf(&b, "%s *%s*%s\n", se, l.Name, priorityEmoji[l.Priority])
		if l.Phone != "" {
			fmt.Fprintf(&b, "   📱 %s\n", l.Phone)
		}
		if l.Address != "" {
			fmt.Fprintf(&b, "   📍 %s\n", l.Address)
		}
		fmt.Fprintf(&b, "   Status: %s\n\n", l.Status)
	}
	return b.String(), nil
}

func (h *Handler) addAppointment(ctx context.Context, in AddAppointment) (string, error) {
	lead, err := store.FindLead(ctx, h.DB, in.LeadRef)
	if errors.Is(err, store.ErrNotFound) {
		return "⚠️ Could not find a lead matching that name. Please specify the customer name.", nil
	}
	if err != nil {
		return "", err
	}
	if in.Date == "" {
		return "⚠️ Please specify a date for the appointment.", nil
	}

	typ := in.Type
	if typ == "" {
		typ = store.ApptInspection
	}
	appt := store.Appointment{
		LeadID:        lead.ID,
		Type:          typ,
		ScheduledDate: in.Date,
		ScheduledTime: in.Time,
		Address:       lead.Address,
		Notes:         in.Notes,
	}
	if err := store.CreateAppointment(ctx, h.DB, &appt); err != nil {
		return "", err
	}

	if _, err := pipeline.AdvanceOnAppointment(ctx, h.DB, lead.ID, h.now()); err != nil {
		return "", err
	}

	if _, err := store.LogInteraction(ctx, h.DB, lead.ID, "system",
		fmt.Sprintf("Scheduled %s for %s", typ, in.Date), "chat_bot"); err != nil {
		return "", err
	}
	h.publish(events.TypeAppointmentCreated, map[string]any{"id": appt.ID, "leadId": lead.ID})

	var b strings.Builder
	b.WriteString("📅 *Appointment Scheduled!*\n\n")
	fmt.Fprintf(&b, "👤 *Customer:* %s\n", lead.Name)
	fmt.Fprintf(&b, "📆 *Date:* %s\n", in.Date)
	if in.Time != "" {
		fmt.Fprintf(&b, "🕐 *Time:* %s\n", in.Time)
	}
	fmt.Fprintf(&b, "📋 *Type:* %s\n", typ)
	if lead.Address != "" {
		fmt.Fprintf(&b, "📍 *Address:* %s\n", lead.Address)
	}
	return b.String(), nil
}

func (h *Handler) statusCheck(ctx context.Context) (string, error) {
	summary, err := store.DashboardSummary(ctx, h.DB)
	if err != nil {
		return "", err
	}

	total := 0
	for _, n := range summary.LeadsByStatus {
		total += n
	}

	var b strings.Builder
	b.WriteString("📊 *Pipeline Status*\n\n")
	fmt.Fprintf(&b, "📈 *Total Leads:* %d\n\n", total)
	for _, status := range pipeline.Statuses {
		if n := summary.LeadsByStatus[status]; n > 0 {
			fmt.Fprintf(&b, "%s %s: %d\n", statusEmoji[status], status, n)
		}
	}
	if summary.AppointmentsToday > 0 {
		fmt.Fprintf(&b, "\n📅 *Today's Appointments:* %d", summary.AppointmentsToday)
	}
	return b.String(), nil
}

func (h *Handler) addNote(ctx context.Context, in AddNote) (string, error) {
	lead, err := store.FindLead(ctx, h.DB, in.LeadRef)
	if errors.Is(err, store.ErrNotFound) {
		return "⚠️ Could not find a lead matching that name. Please specify the customer name.", nil
	}
	if err != nil {
		return "", err
	}
	if in.Note == "" {
		return "⚠️ No note content found in your message.", nil
	}

	if _, err := store.LogInteraction(ctx, h.DB, lead.ID, "note", in.Note, "chat_bot"); err != nil {
		return "", err
	}

	// Notes added by chat feed the same extractor as notes edited in the UI.
	auto, err := followup.Schedule(ctx, h.DB, lead.ID, in.Note, h.now())
	if err != nil {
		return "", err
	}

	reply := fmt.Sprintf("📝 *Note Added!*\n\n👤 *Lead:* %s\n📝 *Note:* %s", lead.Name, in.Note)
	for _, a := range auto {
		reply += fmt.Sprintf("\n⏰ Follow-up booked for %s", a.ScheduledDate)
	}
	return reply, nil
}

func (h *Handler) setReminder(ctx context.Context, chatUserID string, in SetReminder) (string, error) {
	if in.Date == "" || in.Text == "" {
		return "⚠️ Please specify a date and message for the reminder.", nil
	}

	var leadID string
	if in.LeadRef != "" {
		if lead, err := store.FindLead(ctx, h.DB, in.LeadRef); err == nil {
			leadID = lead.ID
		}
	}

	remindTime := in.Time
	if remindTime == "" {
		remindTime = "09:00"
	}
	r := store.Reminder{
		ChatUserID: chatUserID,
		LeadID:     leadID,
		RemindAt:   fmt.Sprintf("%s %s:00", in.Date, remindTime),
		Message:    in.Text,
	}
	if err := store.CreateReminder(ctx, h.DB, &r); err != nil {
		return "", err
	}

	return fmt.Sprintf("⏰ *Reminder Set!*\n\n📆 *When:* %s at %s\n📝 *Message:* %s",
		in.Date, remindTime, in.Text), nil
}
