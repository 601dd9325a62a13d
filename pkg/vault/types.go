package vault

import "time"

// Identity is a ring's public identity tuple. Hidden marks an identity
// that should not appear in default identity pickers; it is otherwise a
// full identity with no weaker guarantees.
type Identity struct {
	ID     string
	Name   string
	Email  string
	Hidden bool
}

// SecretType is an extensible tag describing what shape of secret a
// version carries. New types are added by appending new constants; the
// zero value is never valid on a stored version.
type SecretType string

const (
	SecretTypeLogin   SecretType = "login"
	SecretTypeNote    SecretType = "note"
	SecretTypeLicence SecretType = "licence"
	SecretTypeWlan    SecretType = "wlan"
	SecretTypePassword SecretType = "password"
	SecretTypeOther   SecretType = "other"
)

// PasswordProperties lists the property names this type flags as
// passwords, so a password-strength estimator knows which values of a
// version to run against.
func (t SecretType) PasswordProperties() []string {
	switch t {
	case SecretTypeLogin, SecretTypeWlan, SecretTypePassword:
		return []string{"password"}
	default:
		return nil
	}
}

// SecretAttachment is an opaque blob carried alongside a SecretVersion,
// subject to the same padding and encryption as the rest of the version.
type SecretAttachment struct {
	Name     string
	MimeType string
	Content  []byte
}

// SecretVersion is the single unit a block ever holds: one version of
// one secret, sealed for a fixed set of recipients. Properties is
// order-significant in the sense that its serialized form (via
// encoding/json's sorted-key map encoding) is canonical, so two
// SecretVersions built from the same inputs serialize identically.
type SecretVersion struct {
	SecretID    string            `json:"secret_id"`
	Type        SecretType        `json:"type"`
	Timestamp   time.Time         `json:"timestamp"`
	Name        string            `json:"name"`
	Tags        []string          `json:"tags,omitempty"`
	URLs        []string          `json:"urls,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	Attachments []SecretAttachment `json:"attachments,omitempty"`
	Deleted     bool              `json:"deleted"`
	Recipients  []string          `json:"recipients"`
}

// SecretVersionRef names one stored version of a secret without its
// content, for Secret.Versions and get_version listings.
type SecretVersionRef struct {
	BlockID   string
	Timestamp time.Time
}

// Secret is the logical aggregate of every non-superseded version
// sharing a secret_id: the current version plus the full version
// history, newest first.
type Secret struct {
	ID                string
	Type              SecretType
	Current           SecretVersion
	CurrentBlockID    string
	Versions          []SecretVersionRef
	PasswordStrengths map[string]PasswordStrength
}

// SecretEntry is the denormalized metadata an index keeps per secret_id
// for listing, without having to decrypt every version on every list
// call.
type SecretEntry struct {
	ID        string
	Name      string
	Type      SecretType
	Tags      []string
	URLs      []string
	Timestamp time.Time
	Deleted   bool
}

// SecretEntryMatch pairs an entry with the positions a filter matched
// against it, so a UI can highlight why an entry was returned.
type SecretEntryMatch struct {
	Entry          SecretEntry
	NameScore      int
	NameHighlights []int
	TagsHighlights []int
}

// SecretList is the result of a list call: every matching entry plus
// the union of tags seen across entries that passed the non-tag
// filters.
type SecretList struct {
	AllTags []string
	Entries []SecretEntryMatch
}

// SecretListFilter narrows a list call. A nil Type/Tag/Name means "no
// constraint on this field"; Deleted is a direct boolean toggle since
// every entry has one.
type SecretListFilter struct {
	Deleted bool
	Type    *SecretType
	Tag     *string
	Name    *string
}

// Status is the facade's derived point-in-time view of one opened
// store.
type Status struct {
	Locked          bool
	UnlockedBy      *Identity
	AutolockAt      *time.Time
	Version         string
	AutolockTimeout time.Duration
}

// PasswordEstimate is the input to an injected password-strength
// estimator: the password value itself plus every property value of the
// same version (the password included), which strength estimators use as
// "don't credit the user for reusing these" inputs.
type PasswordEstimate struct {
	Password string
	Inputs   []string
}

// PasswordStrength is an estimator's verdict, attached to a
// password-flagged property on demand by Secret.PasswordStrengths.
type PasswordStrength struct {
	Entropy          float64
	CrackTime        float64
	CrackTimeDisplay string
	Score            uint32
}

// PasswordEstimator scores a password given every property value of its
// version. The facade's Get takes one as an optional argument;
// a nil estimator means no PasswordStrengths are attached.
type PasswordEstimator func(estimate PasswordEstimate) PasswordStrength
