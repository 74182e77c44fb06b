package notify

import (
	"fmt"
	"strings"

	"grahalia-estates/internal/models"
)

const missing = "—"

// LeadAlert builds the notification sent to the sales inbox for a new lead
func LeadAlert(lead *models.Lead, to string) *models.Notification {
	id := missing
	if lead.ID != 0 {
		id = fmt.Sprint(lead.ID)
	}
	propertyID := missing
	if lead.PropertyID != nil {
		propertyID = fmt.Sprint(*lead.PropertyID)
	}

	var b strings.Builder
	b.WriteString("New lead received\n\n")
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Phone: %s\n", lead.Phone)
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	fmt.Fprintf(&b, "Lang: %s\n", lead.Lang)
	fmt.Fprintf(&b, "Source: %s\n", orMissing(lead.Source))
	fmt.Fprintf(&b, "Page: %s\n", lead.PageURL)
	fmt.Fprintf(&b, "Property: %s (id: %s)\n", orMissing(lead.PropertySlug), propertyID)
	fmt.Fprintf(&b, "\nMessage:\n%s\n", orMissing(lead.Message))

	var leadID *uint
	if lead.ID != 0 {
		v := lead.ID
		leadID = &v
	}
	return &models.Notification{
		Kind:      models.NotificationLeadAlert,
		Recipient: to,
		Subject:   fmt.Sprintf("New lead #%s — %s", id, lead.Name),
		Body:      b.String(),
		LeadID:    leadID,
	}
}

// LeadsExport builds the mail carrying a CSV export to the admin address
func LeadsExport(to, filename, csv string, rows int, status, q string) *models.Notification {
	if status == "" {
		status = "all"
	}
	body := fmt.Sprintf("CSV export attached.\n\nFilters:\nstatus: %s\nq: %s\nrows: %d\n", status, orMissing(q), rows)
	return &models.Notification{
		Kind:           models.NotificationLeadsExport,
		Recipient:      to,
		Subject:        fmt.Sprintf("Leads export (%d)", rows),
		Body:           body,
		AttachmentName: filename,
		Attachment:     csv,
	}
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return missing
	}
	return s
}
