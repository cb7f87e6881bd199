package auth

import "time"

// AuthTokenHeader carries the session token on authenticated requests.
const AuthTokenHeader = "X-BECOMEPRO-TOKEN"

const (
	// CapManageTaxonomy allows managing exercise categories and exercises.
	CapManageTaxonomy = "manage:taxonomy"
	// CapManageArticles allows creating, updating and deleting articles.
	CapManageArticles = "manage:articles"
)

type Session struct {
	Token        string    `json:"token"`
	UserID       int       `json:"userId"`
	Capabilities []string  `json:"capabilities"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Session) Can(capability string) bool {
	for _, c := range s.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
