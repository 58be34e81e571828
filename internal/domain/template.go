package domain

// Template is a customer-facing message body with {{placeholder}} tokens.
type Template struct {
	ID                        string
	Name                      string
	Content                   string
	IsActive                  bool
	RequiresAdditionalInfo    bool
	AdditionalInfoLabel       string
	AdditionalInfoPlaceholder string
}
