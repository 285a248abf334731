// Package scope defines the closed catalog of capabilities a session token
// can carry. Every token holds exactly one scope; there is no hierarchy,
// wildcarding, or multi-scope grant.
package scope

// Scope is a single named capability.
type Scope string

// The capability catalog. Wire values are exact; handlers and clients must
// use these spellings.
const (
	ReadBusinessTransactions  Scope = "read_business_transactions"
	WriteBusinessTransactions Scope = "write_business_transactions"
	ReadPersonalData          Scope = "read_personal_data"
	WritePersonalData         Scope = "write_personal_data"
	ReadUsers                 Scope = "read_users"
	WriteUsers                Scope = "write_users"
	UploadFiles               Scope = "upload_files"
	DeleteFiles               Scope = "delete_files"
	AdminAccess               Scope = "admin_access"
)

// catalog is the set of valid scopes, keyed for O(1) validation.
var catalog = map[Scope]bool{
	ReadBusinessTransactions:  true,
	WriteBusinessTransactions: true,
	ReadPersonalData:          true,
	WritePersonalData:         true,
	ReadUsers:                 true,
	WriteUsers:                true,
	UploadFiles:               true,
	DeleteFiles:               true,
	AdminAccess:               true,
}

// String returns the wire value.
func (s Scope) String() string {
	return string(s)
}

// IsValid reports whether s is a member of the catalog.
// Matching is exact: case variants and the empty string are invalid.
func (s Scope) IsValid() bool {
	return catalog[s]
}

// All returns every scope in the catalog in a stable order.
func All() []Scope {
	return []Scope{
		ReadBusinessTransactions,
		WriteBusinessTransactions,
		ReadPersonalData,
		WritePersonalData,
		ReadUsers,
		WriteUsers,
		UploadFiles,
		DeleteFiles,
		AdminAccess,
	}
}
