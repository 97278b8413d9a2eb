// internal/membership/domain.go
package membership

import "libradesk/internal/library"

const (
	msgNameRequired   = "!!! Member name is required !!!"
	msgDuplicate      = "This member already exists. Please use the update operation."
	msgUpdateNotFound = "This member doesn't exist. Do you want to add a new member with these values? Set `confirm=true` in the query parameter to add it."
	msgDeleteNotFound = "!!! The member you are trying to delete does not exist in the DB. !!!"
	msgDeleteInUse    = "!!! The member has borrowing records and cannot be deleted. !!!"
	msgNotFound       = "!!! Member not found !!!"
	defaultEmail      = "No Email"
)

// MemberPatch carries a partial update. Empty fields keep the stored value.
type MemberPatch struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Member turns the patch into a full record for the create fallback.
func (p MemberPatch) Member() library.Member {
	return library.Member{Name: p.Name, Email: p.Email}
}
