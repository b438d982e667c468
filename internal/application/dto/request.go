// Package dto contains data transfer objects for application layer use cases.
package dto

// ContactRequest is a contact form submission as received from a visitor.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Persona string `json:"persona"`
}

// Document returns the request as a generic JSON document for schema validation.
// Fields are passed through unmodified so the schema sees what the visitor sent.
func (r ContactRequest) Document() map[string]interface{} {
	return map[string]interface{}{
		"name":    r.Name,
		"email":   r.Email,
		"subject": r.Subject,
		"message": r.Message,
		"persona": r.Persona,
	}
}
