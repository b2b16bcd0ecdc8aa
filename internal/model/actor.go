package model

// DefaultActor is used when an authenticated request does not name its operator.
const DefaultActor = "api-key"

// Actor identifies who performed an operation. It is resolved at the HTTP
// boundary and passed explicitly into services.
type Actor struct {
	Subject string
}

// Name returns the subject, falling back to DefaultActor.
func (a Actor) Name() string {
	if a.Subject == "" {
		return DefaultActor
	}
	return a.Subject
}
