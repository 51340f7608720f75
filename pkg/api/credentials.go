package api

type (
	// CredentialType selects how a credential bundle is applied to an
	// outgoing request
	CredentialType string

	// Credentials is the bundle attached to a request when its spec_id
	// resolves through the credential source
	Credentials struct {
		Type     CredentialType `json:"type"`
		Token    string         `json:"token,omitempty"`
		Username string         `json:"username,omitempty"`
		Password string         `json:"password,omitempty"`
		Header   string         `json:"header,omitempty"`
		Value    string         `json:"value,omitempty"`
	}
)

const (
	CredentialBearer CredentialType = "bearer"
	CredentialBasic  CredentialType = "basic"
	CredentialAPIKey CredentialType = "api_key"
)
