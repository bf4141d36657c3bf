package core

type (
	// Identity is the authenticated principal attached to a connection.
	// It is issued by the external identity provider; this server only
	// carries it as connection metadata and never validates it beyond
	// token signature checks.
	Identity struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
	}
)

// IsZero reports whether the identity has not been populated.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}
