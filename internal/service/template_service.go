package service

import (
	"regexp"
	"strings"

	"replyflow/internal/models"
)

// FallbackName is used when a contact has no name
const FallbackName = "there"

var namePlaceholder = regexp.MustCompile(`(?i)\{name\}`)

// TemplateService handles message template rendering
type TemplateService struct{}

// NewTemplateService creates a new template service
func NewTemplateService() *TemplateService {
	return &TemplateService{}
}

// Render replaces every {Name} placeholder, in any letter case, with the contact's name
func (s *TemplateService) Render(template string, contact *models.Contact) string {
	name := FallbackName
	if contact != nil && contact.Name != nil && strings.TrimSpace(*contact.Name) != "" {
		name = strings.TrimSpace(*contact.Name)
	}
	return namePlaceholder.ReplaceAllLiteralString(template, name)
}
