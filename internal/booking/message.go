package booking

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"bookinggate/internal/models"
	"bookinggate/internal/notify"
)

var bodyTemplate = template.Must(template.New("booking").Parse(`<h2>Nuova richiesta prenotazione</h2>
<p><strong>Nome:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Telefono:</strong> {{.Phone}}</p>
<p><strong>Veicolo:</strong> {{.Vehicle}}</p>
<p><strong>Servizio:</strong> {{.Service}}</p>
<p><strong>Data/Ora:</strong> {{.Date}} {{.Time}}</p>
<p><strong>Note:</strong> {{.Notes}}</p>
`))

type bodyData struct {
	Name    string
	Email   string
	Phone   string
	Vehicle string
	Service string
	Date    string
	Time    string
	Notes   string
}

// Subject returns the email subject for a booking. Runs of whitespace in the
// customer name, line breaks included, collapse to a single space.
func Subject(req *models.BookingRequest) string {
	name := strings.Join(strings.Fields(req.Name), " ")
	return fmt.Sprintf("Prenotazione • %s • %s %s • %s", req.Service.Label(), req.Date, req.Time, name)
}

// BuildMessage renders the notification for a sanitized booking. Replies go
// to the customer.
func BuildMessage(req *models.BookingRequest, from, to string) (notify.Message, error) {
	if !req.Vehicle.Valid() {
		return notify.Message{}, fmt.Errorf("unknown vehicle: %q", req.Vehicle)
	}
	if !req.Service.Valid() {
		return notify.Message{}, fmt.Errorf("unknown service: %q", req.Service)
	}

	notes := req.Notes
	if notes == "" {
		notes = "-"
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyData{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Vehicle: req.Vehicle.Label(),
		Service: req.Service.Label(),
		Date:    req.Date,
		Time:    req.Time,
		Notes:   notes,
	})
	if err != nil {
		return notify.Message{}, fmt.Errorf("failed to render booking email: %w", err)
	}

	return notify.Message{
		From:    from,
		To:      []string{to},
		ReplyTo: req.Email,
		Subject: Subject(req),
		HTML:    buf.String(),
	}, nil
}
